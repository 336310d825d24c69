package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatPDF, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	default:
		return "application/json"
	}
}

// WriteJSON writes the rows as an indented JSON array.
func WriteJSON(w io.Writer, r Report) error {
	rows := r.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteCSV writes a header row of column titles followed by one row per record.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		header[i] = c.Header
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(r.Columns))
	for _, row := range r.Rows {
		for i, c := range r.Columns {
			rec[i] = r.Cell(row, c.Key)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var pageTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: sans-serif; font-size: 11px; margin: 24px; }
  h1 { font-size: 18px; margin-bottom: 4px; }
  p.meta { color: #666; margin-top: 0; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border: 1px solid #ccc; padding: 4px 6px; text-align: left; }
  th { background: #f1f5f9; }
  tr:nth-child(even) td { background: #fafafa; }
</style>
</head>
<body data-ready="true">
<h1>{{.Title}}</h1>
<p class="meta">Generated {{.Generated}} &middot; {{len .Rows}} records</p>
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// WriteHTML renders the report as a standalone HTML page, the input of the
// PDF and PNG renderers.
func WriteHTML(w io.Writer, r Report) error {
	data := struct {
		Title     string
		Generated string
		Headers   []string
		Rows      [][]string
	}{
		Title:     r.Title,
		Generated: r.GeneratedAt.Format(time.RFC1123),
	}
	for _, c := range r.Columns {
		data.Headers = append(data.Headers, c.Header)
	}
	for _, row := range r.Rows {
		cells := make([]string, len(r.Columns))
		for i, c := range r.Columns {
			cells[i] = r.Cell(row, c.Key)
		}
		data.Rows = append(data.Rows, cells)
	}
	return pageTmpl.Execute(w, data)
}
