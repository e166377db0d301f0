package gateway

import (
	"math"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/seguridad-santander/crimestats/internal/errors"
	"github.com/seguridad-santander/crimestats/pkg/api"
)

// params reads query parameters and keeps the first parse failure.
type params struct {
	c   echo.Context
	err error

	// given records every known parameter present, for the query log.
	given map[string]string
}

func newParams(c echo.Context) *params {
	return &params{c: c, given: map[string]string{}}
}

func (p *params) raw(name string) (string, bool) {
	values, ok := p.c.QueryParams()[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	p.given[name] = values[0]
	return values[0], true
}

// optString returns nil when the parameter is absent or empty.
func (p *params) optString(name string) *string {
	v, ok := p.raw(name)
	if !ok || v == "" {
		return nil
	}
	return &v
}

// reqString fails with ErrMissingParameter when the parameter is absent or blank.
func (p *params) reqString(name string) string {
	v, ok := p.raw(name)
	if !ok || strings.TrimSpace(v) == "" {
		p.fail(errors.NewMissingParameter(name))
	}
	return v
}

// optInt parses an optional integer within [lo, hi].
func (p *params) optInt(name string, lo, hi int) *int {
	v, ok := p.raw(name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.fail(errors.NewInvalidParameter(name, v, "value must be an integer"))
		return nil
	}
	if n < lo || n > hi {
		p.fail(errors.NewInvalidParameter(name, v, rangeReason(lo, hi)))
		return nil
	}
	return &n
}

// reqInt parses a required integer within [lo, hi].
func (p *params) reqInt(name string, lo, hi int) int {
	v, ok := p.raw(name)
	if !ok || strings.TrimSpace(v) == "" {
		p.fail(errors.NewMissingParameter(name))
		return 0
	}
	n := p.optInt(name, lo, hi)
	if n == nil {
		return 0
	}
	return *n
}

func (p *params) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func rangeReason(lo, hi int) string {
	if hi == math.MaxInt {
		return "value must be at least " + strconv.Itoa(lo)
	}
	return "value must be between " + strconv.Itoa(lo) + " and " + strconv.Itoa(hi)
}

// Bounds of the integer parameters.
const (
	minYear  = 1
	minMonth = 1
	maxMonth = 12
)

func (p *params) anio() *int   { return p.optInt(api.ParamAnio, minYear, math.MaxInt) }
func (p *params) mes() *int    { return p.optInt(api.ParamMes, minMonth, maxMonth) }
func (p *params) limit() *int  { return p.optInt(api.ParamLimit, 0, math.MaxInt) }
func (p *params) offset() *int { return p.optInt(api.ParamOffset, 0, math.MaxInt) }
