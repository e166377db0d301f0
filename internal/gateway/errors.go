package gateway

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/seguridad-santander/crimestats/internal/errors"
	"github.com/seguridad-santander/crimestats/pkg/models"
)

// writeError maps err to a status and an ErrorResponse. Validation errors go
// back verbatim; anything else is logged and answered with the generic data
// access failure.
func (g *Gateway) writeError(c echo.Context, queryID string, err error) error {
	d, ok := errors.Details(err)
	if ok && d.Code == errors.CodeValidation {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:      d.Message,
			Reason:     d.Reason,
			Suggestion: d.Suggestion,
			Code:       http.StatusBadRequest,
			QueryID:    queryID,
		})
	}

	g.cfg.Logger.Error().Err(err).Str("query_id", queryID).Str("uri", c.Request().RequestURI).Msg("query failed")

	generic := errors.NewDataAccess("query", nil)
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:      generic.Message,
		Suggestion: "retry later or contact the service operator",
		Code:       http.StatusInternalServerError,
		QueryID:    queryID,
	})
}

// handleHTTPError renders routing errors (404, 405) and panics recovered by
// echo in the same shape as query errors.
func (g *Gateway) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if stderrors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, models.ErrorResponse{Error: msg, Code: he.Code})
		return
	}

	_ = g.writeError(c, "", err)
}
