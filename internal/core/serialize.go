package core

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Records are written by hand rather than with encoding/csv: the export
// quotes a cell only when it contains a comma, quote, CR or LF, while
// encoding/csv also quotes cells with a leading space.

// EscapeCell quotes s only if it contains a comma, quote, CR or LF, doubling
// embedded quotes.
func EscapeCell(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

type recordWriter struct {
	w   *bufio.Writer
	err error
}

func (rw *recordWriter) write(cells ...string) {
	if rw.err != nil {
		return
	}
	for i, c := range cells {
		if i > 0 {
			rw.w.WriteByte(',')
		}
		rw.w.WriteString(EscapeCell(c))
	}
	_, rw.err = rw.w.WriteString("\n")
}

func (rw *recordWriter) flush() error {
	if rw.err != nil {
		return rw.err
	}
	return rw.w.Flush()
}

// WriteCrosstabCSV renders a crosstab or frequency result.
//
// Crosstab: header "rowVar,<column values>,Total", one line per row value
// ending in its row total, then a "Total" line with the column totals and
// the grand total. Frequency: header "Value,Count" and one "value,count"
// line per row value, without a totals line.
func WriteCrosstabCSV(w io.Writer, res *CrosstabResult) error {
	rw := &recordWriter{w: bufio.NewWriter(w)}

	if res.Mode == ModeFrequency {
		rw.write("Value", "Count")
		for _, rv := range res.RowValues {
			rw.write(rv, strconv.Itoa(res.RowTotals[rv]))
		}
		return rw.flush()
	}

	header := make([]string, 0, len(res.ColumnValues)+2)
	header = append(header, res.RowVariable)
	header = append(header, res.ColumnValues...)
	rw.write(append(header, "Total")...)

	line := make([]string, 0, len(res.ColumnValues)+2)
	for _, rv := range res.RowValues {
		line = append(line[:0], rv)
		for _, cv := range res.ColumnValues {
			line = append(line, strconv.Itoa(res.Matrix[rv][cv]))
		}
		rw.write(append(line, strconv.Itoa(res.RowTotals[rv]))...)
	}

	line = append(line[:0], "Total")
	for _, cv := range res.ColumnValues {
		line = append(line, strconv.Itoa(res.ColumnTotals[cv]))
	}
	rw.write(append(line, strconv.Itoa(res.GrandTotal))...)
	return rw.flush()
}

// WriteRowsCSV renders a filtered result: its column list, then each row.
func WriteRowsCSV(w io.Writer, res *FilteredResult) error {
	rw := &recordWriter{w: bufio.NewWriter(w)}
	rw.write(res.Columns...)
	for _, row := range res.Rows {
		rw.write(row...)
	}
	return rw.flush()
}

// ExportCrosstab returns WriteCrosstabCSV output as a string.
func ExportCrosstab(res *CrosstabResult) string {
	var sb strings.Builder
	_ = WriteCrosstabCSV(&sb, res)
	return sb.String()
}

// ExportRows returns WriteRowsCSV output as a string.
func ExportRows(res *FilteredResult) string {
	var sb strings.Builder
	_ = WriteRowsCSV(&sb, res)
	return sb.String()
}
