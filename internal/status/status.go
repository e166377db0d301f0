// Package status reports whether the store can serve statistics queries.
package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/seguridad-santander/crimestats/internal/storage"
)

// StatusResult represents the result of a status check.
type StatusResult struct {
	Ready       bool          `json:"ready"`
	Reason      string        `json:"reason,omitempty"`
	Driver      string        `json:"driver"`
	StoreHealth string        `json:"store_health"`
	Tables      []TableStatus `json:"tables"`
	Version     string        `json:"version"`
}

// TableStatus is the contract check of one relation.
type TableStatus struct {
	Table   string   `json:"table"`
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing,omitempty"`
}

// StatusChecker provides status checking functionality.
type StatusChecker interface {
	GetStatus(ctx context.Context) (*StatusResult, error)
}

// Probe is the store surface the checker needs. *storage.Store implements it.
type Probe interface {
	Driver() string
	CheckConnectivity(ctx context.Context) error
	InspectSchema(ctx context.Context, contracts []storage.TableContract) ([]storage.SchemaReport, error)
}

// StoreChecker checks connectivity, then every table contract.
type StoreChecker struct {
	probe     Probe
	contracts []storage.TableContract
	version   string
}

// NewStoreChecker creates a checker over probe.
func NewStoreChecker(probe Probe, contracts []storage.TableContract, version string) *StoreChecker {
	return &StoreChecker{probe: probe, contracts: contracts, version: version}
}

// GetStatus implements StatusChecker. An unreachable store or a missing
// relation or column makes the result not ready; it is never an error.
func (c *StoreChecker) GetStatus(ctx context.Context) (*StatusResult, error) {
	result := &StatusResult{
		Ready:   true,
		Driver:  c.probe.Driver(),
		Tables:  []TableStatus{},
		Version: c.version,
	}

	if err := c.probe.CheckConnectivity(ctx); err != nil {
		result.Ready = false
		result.StoreHealth = "unreachable"
		result.Reason = "store not reachable: " + causeOf(err)
		return result, nil
	}
	result.StoreHealth = "connected"

	reports, err := c.probe.InspectSchema(ctx, c.contracts)
	if err != nil {
		result.Ready = false
		result.Reason = "schema check failed: " + causeOf(err)
		return result, nil
	}

	var broken []string
	for _, r := range reports {
		result.Tables = append(result.Tables, TableStatus{Table: r.Table, Ready: r.OK(), Missing: r.Missing})
		if r.OK() {
			continue
		}
		result.Ready = false
		if !r.Exists {
			broken = append(broken, r.Table+" (missing)")
		} else {
			broken = append(broken, fmt.Sprintf("%s (missing columns: %s)", r.Table, strings.Join(r.Missing, ", ")))
		}
	}
	if len(broken) > 0 {
		result.Reason = "schema contract not met: " + strings.Join(broken, "; ")
	}

	return result, nil
}

// String renders the result for terminals.
func (s *StatusResult) String() string {
	var sb strings.Builder
	state := "READY"
	if !s.Ready {
		state = "NOT READY"
	}
	fmt.Fprintf(&sb, "Status: %s\n", state)
	fmt.Fprintf(&sb, "  Driver: %s\n", s.Driver)
	fmt.Fprintf(&sb, "  Store:  %s\n", s.StoreHealth)
	if s.Reason != "" {
		fmt.Fprintf(&sb, "  Reason: %s\n", s.Reason)
	}
	if len(s.Tables) > 0 {
		sb.WriteString("Tables:\n")
		for _, t := range s.Tables {
			mark := "ok"
			if !t.Ready {
				mark = "FAIL"
				if len(t.Missing) > 0 {
					mark += " missing " + strings.Join(t.Missing, ", ")
				}
			}
			fmt.Fprintf(&sb, "  - %s: %s\n", t.Table, mark)
		}
	}
	return sb.String()
}

// causeOf unwraps to the innermost error message.
func causeOf(err error) string {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok || u.Unwrap() == nil {
			return err.Error()
		}
		err = u.Unwrap()
	}
}
