package extract

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeXLSX(t *testing.T, cells map[string]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for ref, val := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", ref, val))
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExtractCSV(t *testing.T) {
	e := newTestExtractor(Config{}, &stubOCR{})
	path := writeFile(t, "data.csv", []byte("Name,,Age\nAlice,,30\n,,\nBob,,41\n"))

	text, warnings, err := e.Extract(context.Background(), path, FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	// Empty middle column and empty row are gone; structure survives as a
	// markdown table: header, separator, two data rows.
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Name")
	assert.Contains(t, lines[0], "Age")
	assert.Contains(t, lines[2], "Alice")
	assert.Contains(t, lines[2], "30")
	assert.Contains(t, lines[3], "Bob")
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "|"), "line %q should be a table row", line)
	}
}

func TestExtractCSVRaggedRows(t *testing.T) {
	e := newTestExtractor(Config{}, &stubOCR{})
	path := writeFile(t, "ragged.csv", []byte("a,b,c\nd,e\nf\n"))

	text, _, err := e.Extract(context.Background(), path, FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, text, "a")
	assert.Contains(t, text, "f")
}

func TestExtractCSVCellsNormalized(t *testing.T) {
	e := newTestExtractor(Config{}, &stubOCR{})
	path := writeFile(t, "messy.csv", []byte("Header\n\"two\n lines\"\n"))

	text, _, err := e.Extract(context.Background(), path, FormatCSV)
	require.NoError(t, err)
	// The embedded newline collapses inside the cell, so the table keeps one
	// row per record.
	assert.Contains(t, text, "two lines")
}

func TestExtractCSVAllEmpty(t *testing.T) {
	e := newTestExtractor(Config{}, &stubOCR{})
	path := writeFile(t, "blank.csv", []byte(",,\n,,\n"))

	text, warnings, err := e.Extract(context.Background(), path, FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, text)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "no data rows")
}

func TestExtractCSVPlainTables(t *testing.T) {
	e := newTestExtractor(Config{PlainTables: true}, &stubOCR{})
	path := writeFile(t, "data.csv", []byte("Name,Age\nAlice,30\n"))

	text, _, err := e.Extract(context.Background(), path, FormatCSV)
	require.NoError(t, err)
	assert.NotContains(t, text, "|")
	assert.Contains(t, text, "Name")
	assert.Contains(t, text, "Alice")
}

func TestExtractXLSX(t *testing.T) {
	e := newTestExtractor(Config{}, &stubOCR{})
	path := writeXLSX(t, map[string]interface{}{
		"A1": "Product", "B1": "Price",
		// Row 2 left empty on purpose.
		"A3": "Widget", "B3": 9.99,
	})

	text, warnings, err := e.Extract(context.Background(), path, FormatXLSX)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 3, "empty spreadsheet row should be dropped")
	assert.Contains(t, lines[0], "Product")
	assert.Contains(t, lines[2], "Widget")
	assert.Contains(t, lines[2], "9.99")
}

func TestExtractXLSXCorrupt(t *testing.T) {
	e := newTestExtractor(Config{}, &stubOCR{})
	path := writeFile(t, "fake.xlsx", []byte("definitely not a workbook"))

	_, _, err := e.Extract(context.Background(), path, FormatXLSX)
	require.Error(t, err)
}

func TestDropEmpty(t *testing.T) {
	in := [][]string{
		{"Name", "  ", "Age"},
		{" Alice ", "", "30"},
		{"", "   ", ""},
		{"Bob"},
	}
	got := dropEmpty(in)
	want := [][]string{
		{"Name", "Age"},
		{"Alice", "30"},
		{"Bob", ""},
	}
	assert.Equal(t, want, got)
}

func TestDropEmptyAllBlank(t *testing.T) {
	assert.Nil(t, dropEmpty([][]string{{"", " "}, {"\t"}}))
	assert.Nil(t, dropEmpty(nil))
}
