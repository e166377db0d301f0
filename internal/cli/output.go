package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/seguridad-santander/crimestats/internal/errors"
	"github.com/seguridad-santander/crimestats/internal/storage"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func checkOutputFormat(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return errors.NewInvalidParameter("output", format, "output must be table, json or yaml")
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *CLI) outputYAML(v interface{}) error {
	enc := yaml.NewEncoder(c.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// outputStructured writes v as JSON or YAML and reports whether it did.
// Table output is left to the caller.
func (c *CLI) outputStructured(v interface{}) (bool, error) {
	switch c.output {
	case outputJSON:
		return true, c.outputJSON(v)
	case outputYAML:
		return true, c.outputYAML(v)
	}
	return false, nil
}

// renderRows writes query rows in the selected format. Rows keep their
// column order in every format.
func (c *CLI) renderRows(rows []storage.Row) error {
	if done, err := c.outputStructured(rows); done {
		return err
	}

	if len(rows) == 0 {
		c.println("(no rows)")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	columns := rows[0].Columns
	fmt.Fprintln(w, strings.ToUpper(strings.Join(columns, "\t")))

	underline := make([]string, len(columns))
	for i, col := range columns {
		underline[i] = strings.Repeat("-", len(col))
	}
	fmt.Fprintln(w, strings.Join(underline, "\t"))

	cells := make([]string, len(columns))
	for _, row := range rows {
		for i := range columns {
			cells[i] = formatCell(row.Values[i])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	c.printf("\n%d row(s)\n", len(rows))
	return nil
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}
