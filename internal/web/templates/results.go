package templates

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/listcutter/internal/core"
	"github.com/JonMunkholm/listcutter/internal/store"
)

// ColumnsList renders the header of a file.
func ColumnsList(source string, columns []string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h2>Columns</h2>`)
		sourceLine(h, source)
		if len(columns) == 0 {
			h.raw(`<p class="muted">The file has no header row.</p>`)
			return h.err
		}
		h.raw(`<ol class="columns">`)
		for _, c := range columns {
			h.raw(`<li>`)
			h.text(c)
			h.raw(`</li>`)
		}
		h.raw(`</ol>`)
		return h.err
	})
}

// CrosstabTable renders a frequency or contingency table with totals.
func CrosstabTable(source string, res *core.CrosstabResult) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		if res.Mode == core.ModeCrosstab {
			h.raw(`<h2>`)
			h.text(res.RowVariable + " by " + res.ColumnVariable)
			h.raw(`</h2>`)
		} else {
			h.raw(`<h2>Frequency of `)
			h.text(res.RowVariable)
			h.raw(`</h2>`)
		}
		sourceLine(h, source)

		if len(res.RowValues) == 0 {
			h.raw(`<p class="muted">No rows to count.</p>`)
			return h.err
		}

		h.raw(`<table><thead><tr><th>`)
		h.text(res.RowVariable)
		h.raw(`</th>`)
		if res.Mode == core.ModeCrosstab {
			for _, c := range res.ColumnValues {
				h.raw(`<th>`)
				h.text(c)
				h.raw(`</th>`)
			}
			h.raw(`<th>Total</th>`)
		} else {
			h.raw(`<th>Count</th>`)
		}
		h.raw(`</tr></thead><tbody>`)

		for _, r := range res.RowValues {
			h.raw(`<tr><td>`)
			h.text(r)
			h.raw(`</td>`)
			if res.Mode == core.ModeCrosstab {
				for _, c := range res.ColumnValues {
					numCell(h, res.Matrix[r][c])
				}
			}
			numCell(h, res.RowTotals[r])
			h.raw(`</tr>`)
		}
		if res.Mode == core.ModeCrosstab {
			h.raw(`<tr class="total"><td>Total</td>`)
			for _, c := range res.ColumnValues {
				numCell(h, res.ColumnTotals[c])
			}
			numCell(h, res.GrandTotal)
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
		skippedNote(h, res.SkippedRows)
		return h.err
	})
}

// ProfilesTable renders the inferred type of every column.
func ProfilesTable(source string, profiles []core.ColumnProfile) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h2>Column types</h2>`)
		sourceLine(h, source)
		if len(profiles) == 0 {
			h.raw(`<p class="muted">The file has no columns.</p>`)
			return h.err
		}
		h.raw(`<table><thead><tr><th>Column</th><th>Type</th><th>Confidence</th>`)
		h.raw(`<th>Unique</th><th>Nulls</th><th>Samples</th><th>Operators</th></tr></thead><tbody>`)
		for _, p := range profiles {
			h.raw(`<tr><td>`)
			h.text(p.Name)
			h.raw(`</td><td>`)
			h.text(string(p.Type))
			h.raw(`</td><td class="num">`)
			h.raw(strconv.FormatFloat(p.Confidence*100, 'f', 0, 64))
			h.raw(`%</td>`)
			numCell(h, p.UniqueValueCount)
			numCell(h, p.NullCount)
			h.raw(`<td>`)
			h.text(strings.Join(p.SampleValues, ", "))
			h.raw(`</td><td>`)
			ops := make([]string, len(p.SuggestedOperators))
			for i, op := range p.SuggestedOperators {
				ops[i] = string(op)
			}
			h.text(strings.Join(ops, " "))
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

// RowsTable renders one page of filtered rows.
func RowsTable(source string, res *core.FilteredResult) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h2>Filtered rows</h2>`)
		sourceLine(h, source)
		h.raw(`<p>Matched `)
		h.int(res.MatchedRowCount)
		h.raw(` of `)
		h.int(res.TotalRowsScanned)
		h.raw(` rows, showing `)
		h.int(res.ReturnedRowCount)
		h.raw(`.</p>`)

		if len(res.Rows) > 0 {
			h.raw(`<table><thead><tr>`)
			for _, c := range res.Columns {
				h.raw(`<th>`)
				h.text(c)
				h.raw(`</th>`)
			}
			h.raw(`</tr></thead><tbody>`)
			for _, row := range res.Rows {
				h.raw(`<tr>`)
				for _, v := range row {
					h.raw(`<td>`)
					h.text(v)
					h.raw(`</td>`)
				}
				h.raw(`</tr>`)
			}
			h.raw(`</tbody></table>`)
		}
		if res.HasMore {
			h.raw(`<p class="muted">More rows match; raise the offset to see the next page.</p>`)
		}
		skippedNote(h, res.Metrics.SkippedRows)
		return h.err
	})
}

// FilesTable lists saved files.
func FilesTable(files []store.SavedFile) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h2>Saved files</h2>`)
		if len(files) == 0 {
			h.raw(`<p class="muted">No saved files yet.</p>`)
			return h.err
		}
		h.raw(`<table><thead><tr><th>Name</th><th>Id</th><th>Size</th><th>Tags</th><th>Uploaded</th></tr></thead><tbody>`)
		for _, f := range files {
			h.raw(`<tr><td>`)
			h.text(f.FileName)
			h.raw(`</td><td><code>`)
			h.text(f.ID.String())
			h.raw(`</code></td>`)
			numCell(h, int(f.SizeBytes))
			h.raw(`<td>`)
			h.text(strings.Join(f.Tags, ", "))
			h.raw(`</td><td>`)
			h.text(f.UploadedAt.Format("2006-01-02 15:04"))
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

func sourceLine(h *htmlWriter, source string) {
	if source == "" {
		return
	}
	h.raw(`<p class="muted">Source: `)
	h.text(source)
	h.raw(`</p>`)
}

func numCell(h *htmlWriter, n int) {
	h.raw(`<td class="num">`)
	h.int(n)
	h.raw(`</td>`)
}

func skippedNote(h *htmlWriter, skipped int) {
	if skipped > 0 {
		h.raw(`<p class="muted">`)
		h.int(skipped)
		h.raw(` malformed row(s) were skipped.</p>`)
	}
}
