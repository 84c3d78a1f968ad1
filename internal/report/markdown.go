package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/JonMunkholm/listcutter/internal/core"
)

// MarkdownWriter outputs results as Markdown sections with GitHub tables.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

func (w *MarkdownWriter) WriteColumns(source string, columns []string) error {
	md := markdown.NewMarkdown(w.output)
	w.writeTitle(md, "Columns", source)

	if len(columns) == 0 {
		md.Note("The file has no header row.")
		md.PlainText("")
		return md.Build()
	}

	rows := make([][]string, len(columns))
	for i, c := range columns {
		rows[i] = []string{strconv.Itoa(i + 1), cell(c)}
	}
	md.Table(markdown.TableSet{Header: []string{"#", "Column"}, Rows: rows})
	md.PlainText("")
	return md.Build()
}

// WriteCrosstab renders a frequency table or a contingency table with a
// totals row and column.
func (w *MarkdownWriter) WriteCrosstab(source string, res *core.CrosstabResult) error {
	md := markdown.NewMarkdown(w.output)

	if res.Mode == core.ModeCrosstab {
		w.writeTitle(md, "Crosstab: "+res.RowVariable+" by "+res.ColumnVariable, source)
	} else {
		w.writeTitle(md, "Frequency: "+res.RowVariable, source)
	}

	if len(res.RowValues) == 0 {
		md.Note("No rows to count.")
		md.PlainText("")
		return md.Build()
	}

	if res.Mode == core.ModeCrosstab {
		header := []string{cell(res.RowVariable)}
		for _, c := range res.ColumnValues {
			header = append(header, cell(c))
		}
		header = append(header, "Total")

		rows := make([][]string, 0, len(res.RowValues)+1)
		for _, r := range res.RowValues {
			line := []string{cell(r)}
			for _, c := range res.ColumnValues {
				line = append(line, strconv.Itoa(res.Matrix[r][c]))
			}
			rows = append(rows, append(line, strconv.Itoa(res.RowTotals[r])))
		}
		totals := []string{"**Total**"}
		for _, c := range res.ColumnValues {
			totals = append(totals, strconv.Itoa(res.ColumnTotals[c]))
		}
		rows = append(rows, append(totals, "**"+strconv.Itoa(res.GrandTotal)+"**"))

		md.Table(markdown.TableSet{Header: header, Rows: rows})
	} else {
		rows := make([][]string, 0, len(res.RowValues))
		for _, r := range res.RowValues {
			rows = append(rows, []string{cell(r), strconv.Itoa(res.RowTotals[r]), percent(res.RowTotals[r], res.GrandTotal)})
		}
		md.Table(markdown.TableSet{Header: []string{cell(res.RowVariable), "Count", "Share"}, Rows: rows})
	}
	md.PlainText("")

	w.writeFooter(md, res.RowsProcessed, res.SkippedRows)
	return md.Build()
}

// WriteProfiles renders one table row per column profile.
func (w *MarkdownWriter) WriteProfiles(source string, profiles []core.ColumnProfile) error {
	md := markdown.NewMarkdown(w.output)
	w.writeTitle(md, "Column Types", source)

	if len(profiles) == 0 {
		md.Note("The file has no columns.")
		md.PlainText("")
		return md.Build()
	}

	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		samples := make([]string, len(p.SampleValues))
		for i, s := range p.SampleValues {
			samples[i] = "`" + strings.ReplaceAll(cell(s), "`", "'") + "`"
		}
		rows = append(rows, []string{
			cell(p.Name),
			string(p.Type),
			strconv.FormatFloat(p.Confidence*100, 'f', 0, 64) + "%",
			strconv.Itoa(p.UniqueValueCount),
			strconv.Itoa(p.NullCount),
			strings.Join(samples, ", "),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Column", "Type", "Confidence", "Unique", "Nulls", "Samples"},
		Rows:   rows,
	})
	md.PlainText("")
	return md.Build()
}

// WriteRows renders the returned page of a filter result.
func (w *MarkdownWriter) WriteRows(source string, res *core.FilteredResult) error {
	md := markdown.NewMarkdown(w.output)
	w.writeTitle(md, "Filtered Rows", source)

	md.PlainText("Matched " + strconv.Itoa(res.MatchedRowCount) + " of " +
		strconv.Itoa(res.TotalRowsScanned) + " rows, showing " + strconv.Itoa(res.ReturnedRowCount) + ".")
	md.PlainText("")

	if len(res.Columns) > 0 && len(res.Rows) > 0 {
		header := make([]string, len(res.Columns))
		for i, c := range res.Columns {
			header[i] = cell(c)
		}
		rows := make([][]string, len(res.Rows))
		for i, r := range res.Rows {
			line := make([]string, len(header))
			for j := range header {
				if j < len(r) {
					line[j] = cell(r[j])
				}
			}
			rows[i] = line
		}
		md.Table(markdown.TableSet{Header: header, Rows: rows})
		md.PlainText("")
	}

	if res.HasMore {
		md.Tip("More rows match. Request the next page with a higher offset.")
		md.PlainText("")
	}
	w.writeFooter(md, res.TotalRowsScanned, res.Metrics.SkippedRows)
	return md.Build()
}

func (w *MarkdownWriter) writeTitle(md *markdown.Markdown, title, source string) {
	md.H2(title)
	md.PlainText("")
	if source != "" {
		md.PlainText("Source: `" + source + "`")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, processed, skipped int) {
	if skipped > 0 {
		md.Warningf("%d malformed row(s) were skipped out of %d processed.", skipped, processed)
		md.PlainText("")
	}
}

// cell makes a value safe inside a table cell.
func cell(s string) string {
	if s == "" {
		return " "
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return strconv.FormatFloat(float64(n)*100/float64(total), 'f', 1, 64) + "%"
}
