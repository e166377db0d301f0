package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seguridad-santander/crimestats/internal/errors"
	"github.com/seguridad-santander/crimestats/internal/status"
)

func (c *CLI) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run system diagnostics",
		Long: `Run diagnostics against the configured store.

Checks:
  - configuration
  - store connectivity
  - statistics tables and their columns`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDoctor(cmd.Context())
		},
	}
}

// DiagnosticCheck represents a single diagnostic check result.
type DiagnosticCheck struct {
	Name    string `json:"name" yaml:"name"`
	Passed  bool   `json:"passed" yaml:"passed"`
	Message string `json:"message" yaml:"message"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
}

// DoctorReport is the structured output of doctor.
type DoctorReport struct {
	Checks    []DiagnosticCheck `json:"checks" yaml:"checks"`
	AllPassed bool              `json:"all_passed" yaml:"all_passed"`
}

func (c *CLI) runDoctor(ctx context.Context) error {
	report := c.diagnose(ctx)

	if done, err := c.outputStructured(report); done {
		if err != nil {
			return err
		}
		return doctorResult(report)
	}

	c.println("crimestats diagnostics")
	c.println("======================")
	c.println("")
	for _, check := range report.Checks {
		c.printCheck(check)
	}
	c.println("")
	if report.AllPassed {
		c.println("✓ All checks passed")
	} else {
		c.println("✗ Some checks failed - see above for details")
	}
	return doctorResult(report)
}

func doctorResult(report DoctorReport) error {
	if report.AllPassed {
		return nil
	}
	var failed []string
	for _, check := range report.Checks {
		if !check.Passed {
			failed = append(failed, check.Name)
		}
	}
	return errors.NewDataAccess("diagnostics ("+strings.Join(failed, ", ")+")", nil)
}

// diagnose runs the checks in order; a failed check skips the ones that
// depend on it.
func (c *CLI) diagnose(ctx context.Context) (report DoctorReport) {
	add := func(check DiagnosticCheck) bool {
		report.Checks = append(report.Checks, check)
		return check.Passed
	}
	defer func() {
		report.AllPassed = true
		for _, check := range report.Checks {
			report.AllPassed = report.AllPassed && check.Passed
		}
	}()

	if !add(c.checkConfig()) {
		return report
	}

	sys, err := c.startSystem(ctx, false)
	if err != nil {
		add(DiagnosticCheck{
			Name:    "Store Connectivity",
			Message: fmt.Sprintf("Cannot open %s store", c.cfg.Store.Driver),
			Details: errorDetails(err),
		})
		return report
	}
	defer sys.Close()

	add(DiagnosticCheck{
		Name:    "Store Connectivity",
		Passed:  true,
		Message: fmt.Sprintf("Connected (driver: %s)", sys.Store.Driver()),
	})

	result, err := sys.Checker.GetStatus(ctx)
	if err != nil {
		add(DiagnosticCheck{Name: "Schema", Message: "Schema check failed", Details: errorDetails(err)})
		return report
	}
	add(schemaCheck(result))
	return report
}

func (c *CLI) checkConfig() DiagnosticCheck {
	check := DiagnosticCheck{Name: "Configuration"}

	if c.cfg == nil {
		check.Message = "No configuration loaded"
		check.Details = "Create crimestats.yaml or use --config flag"
		return check
	}
	if err := c.cfg.Validate(); err != nil {
		check.Message = "Configuration is invalid"
		check.Details = errorDetails(err)
		return check
	}

	check.Passed = true
	check.Message = fmt.Sprintf("Driver: %s, listen: %s", c.cfg.Store.Driver, c.cfg.Server.Addr)
	return check
}

func schemaCheck(result *status.StatusResult) DiagnosticCheck {
	check := DiagnosticCheck{Name: "Schema"}

	var ready []string
	for _, t := range result.Tables {
		if t.Ready {
			ready = append(ready, t.Table)
		}
	}
	if result.Ready {
		check.Passed = true
		check.Message = fmt.Sprintf("%d table(s) ready: %s", len(ready), strings.Join(ready, ", "))
		return check
	}

	check.Message = "Statistics tables are not ready"
	check.Details = result.Reason
	return check
}

func errorDetails(err error) string {
	if d, ok := errors.Details(err); ok {
		if d.Reason != "" {
			return d.Message + ": " + d.Reason
		}
		return d.Message
	}
	return err.Error()
}

func (c *CLI) printCheck(check DiagnosticCheck) {
	mark := "✗"
	if check.Passed {
		mark = "✓"
	}
	c.printf("%s %s: %s\n", mark, check.Name, check.Message)
	if check.Details != "" && !check.Passed {
		c.printf("  → %s\n", check.Details)
	}
}
