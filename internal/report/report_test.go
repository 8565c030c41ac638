package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nestdb/nestreport/internal/driver"
)

var sampleRows = []driver.Row{
	{"id": float64(1), "name": "alpha", "score": 3.5},
	{"id": float64(2), "name": "<beta>", "score": float64(7)},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"html", FormatHTML, false},
		{"csv", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatTable, sampleRows); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 rows:\n%s", len(lines), out)
	}
	// Columns are sorted: id, name, score.
	if !strings.HasPrefix(lines[0], "id") || !strings.Contains(lines[0], "name") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "alpha") {
		t.Errorf("row 1 = %q", lines[1])
	}
	// Integral floats print without a decimal point.
	if !strings.Contains(lines[2], "7") || strings.Contains(lines[2], "7.0") {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestWriteTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatTable, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no rows") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, sampleRows); err != nil {
		t.Fatal(err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("decoded %d rows, want 2", len(decoded))
	}
	if decoded[0]["name"] != "alpha" {
		t.Errorf("decoded[0][name] = %v", decoded[0]["name"])
	}
}

func TestWriteJSONEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("empty JSON output = %q, want []", got)
	}
}

func TestWriteHTMLEscapes(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatHTML, sampleRows); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "<table>") || !strings.Contains(out, "<th>id</th>") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "<beta>") {
		t.Error("cell values must be HTML-escaped")
	}
	if !strings.Contains(out, "&lt;beta&gt;") {
		t.Errorf("escaped value missing:\n%s", out)
	}
}

func TestColumnsUnion(t *testing.T) {
	rows := []driver.Row{{"b": 1}, {"a": 2, "b": 3}}
	got := columns(rows)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("columns = %v, want [a b]", got)
	}
}
