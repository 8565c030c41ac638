// Package report renders query results as text tables, JSON, or HTML.
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/nestdb/nestreport/internal/driver"
)

// Format selects an output rendering.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatHTML  Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON, FormatHTML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json, or html)", s)
	}
}

// Write renders rows to w in the given format.
func Write(w io.Writer, format Format, rows []driver.Row) error {
	switch format {
	case FormatTable:
		return writeTable(w, rows)
	case FormatJSON:
		return writeJSON(w, rows)
	case FormatHTML:
		return writeHTML(w, rows)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// columns returns the union of row keys, sorted for a stable layout.
func columns(rows []driver.Row) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, row := range rows {
		for k := range row {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func cell(row driver.Row, col string) string {
	v, ok := row[col]
	if !ok || v == nil {
		return ""
	}
	// JSON numbers decode as float64; print integral values without the
	// trailing ".0" noise.
	if f, isFloat := v.(float64); isFloat && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", v)
}

func writeTable(w io.Writer, rows []driver.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no rows")
		return err
	}

	cols := columns(rows)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, col := range cols {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)

	for _, row := range rows {
		for i, col := range cols {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell(row, col))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, rows []driver.Row) error {
	if rows == nil {
		rows = []driver.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

var htmlTemplate = template.Must(template.New("report").Parse(`<table>
  <thead>
    <tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
  </thead>
  <tbody>
{{- range .Rows}}
    <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
  </tbody>
</table>
`))

func writeHTML(w io.Writer, rows []driver.Row) error {
	cols := columns(rows)
	data := struct {
		Columns []string
		Rows    [][]string
	}{Columns: cols}

	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = cell(row, col)
		}
		data.Rows = append(data.Rows, cells)
	}
	return htmlTemplate.Execute(w, data)
}
