package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/olekukonko/tablewriter"
	"github.com/ssor/bom"
	"github.com/xuri/excelize/v2"

	"github.com/docmill/docmill/internal/models"
)

// extractCSV parses a CSV file permissively (ragged rows and lazy quotes
// allowed) and renders the surviving cells as a table.
func (e *Extractor) extractCSV(path string) (string, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, models.ExtractionError("read csv", err)
	}

	r := csv.NewReader(strings.NewReader(strings.ToValidUTF8(string(bom.Clean(raw)), " ")))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return "", nil, models.ExtractionError("parse csv", err)
	}
	return e.renderRows(rows)
}

// extractXLSX reads the first sheet of a workbook and renders it as a table.
func (e *Extractor) extractXLSX(path string) (string, []string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", nil, models.ExtractionError("open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", []string{"workbook has no sheets"}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", nil, models.ExtractionError("read workbook rows", err)
	}
	return e.renderRows(rows)
}

// renderRows drops fully-empty rows and columns, then renders what is left.
// The first surviving row is the header. Cell content is normalized but the
// row structure is kept: a table flattened to one line stops being a table.
func (e *Extractor) renderRows(rows [][]string) (string, []string, error) {
	rows = dropEmpty(rows)
	if len(rows) == 0 {
		return "", []string{"no data rows after removing empty rows and columns"}, nil
	}

	header, body := rows[0], rows[1:]
	var rendered string
	if !e.cfg.PlainTables {
		rendered = renderMarkdownTable(header, body)
	}
	if rendered == "" {
		rendered = renderPlainTable(header, body)
	}
	return rendered, nil, nil
}

// dropEmpty normalizes every cell, removes rows whose cells are all empty,
// pads ragged rows to a common width, and removes columns that are empty in
// every surviving row.
func dropEmpty(rows [][]string) [][]string {
	width := 0
	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		empty := true
		for i, cell := range row {
			row[i] = Normalize(cell)
			if row[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		if len(row) > width {
			width = len(row)
		}
		kept = append(kept, row)
	}
	if len(kept) == 0 {
		return nil
	}

	for i, row := range kept {
		for len(row) < width {
			row = append(row, "")
		}
		kept[i] = row
	}

	used := make([]bool, width)
	for _, row := range kept {
		for c, cell := range row {
			if cell != "" {
				used[c] = true
			}
		}
	}

	out := make([][]string, len(kept))
	for i, row := range kept {
		slim := make([]string, 0, width)
		for c, cell := range row {
			if used[c] {
				slim = append(slim, cell)
			}
		}
		out[i] = slim
	}
	return out
}

// renderMarkdownTable renders a pipe-separated markdown table.
func renderMarkdownTable(header []string, body [][]string) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.AppendBulk(body)
	table.Render()
	return strings.TrimRight(buf.String(), "\n")
}

// renderPlainTable is the fixed-width fallback used when markdown rendering
// is disabled or produced nothing.
func renderPlainTable(header []string, body [][]string) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range body {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}
