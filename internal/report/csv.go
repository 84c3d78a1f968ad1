package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/listcutter/internal/core"
)

// CSVWriter writes results in the same CSV dialect the engine exports.
// The source name is not part of the output.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// WriteColumns writes one column name per line under a "column" header.
func (w *CSVWriter) WriteColumns(_ string, columns []string) error {
	bw := bufio.NewWriter(w.output)
	bw.WriteString("column\n")
	for _, c := range columns {
		bw.WriteString(core.EscapeCell(c))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func (w *CSVWriter) WriteCrosstab(_ string, res *core.CrosstabResult) error {
	return core.WriteCrosstabCSV(w.output, res)
}

func (w *CSVWriter) WriteRows(_ string, res *core.FilteredResult) error {
	return core.WriteRowsCSV(w.output, res)
}

// WriteProfiles writes one line per column profile.
func (w *CSVWriter) WriteProfiles(_ string, profiles []core.ColumnProfile) error {
	bw := bufio.NewWriter(w.output)
	bw.WriteString("column,type,confidence,unique_values,null_count,samples\n")
	for _, p := range profiles {
		fields := []string{
			p.Name,
			string(p.Type),
			strconv.FormatFloat(p.Confidence, 'f', 2, 64),
			strconv.Itoa(p.UniqueValueCount),
			strconv.Itoa(p.NullCount),
			strings.Join(p.SampleValues, "; "),
		}
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(core.EscapeCell(f))
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}
