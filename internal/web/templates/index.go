package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/listcutter/internal/store"
)

var analyses = []struct {
	action string
	label  string
}{
	{"/api/columns", "List columns"},
	{"/api/detect-types", "Detect column types"},
	{"/api/crosstab", "Crosstab"},
	{"/api/filter", "Filter rows"},
}

// Index is the landing page: one form per analysis, plus the saved files
// when a metadata store is configured.
func Index(files []store.SavedFile, savedEnabled bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h1>Analyse a CSV file</h1>`)
		for _, a := range analyses {
			h.raw(`<form method="post" enctype="multipart/form-data" action="`)
			h.text(a.action)
			h.raw(`"><fieldset><legend>`)
			h.text(a.label)
			h.raw(`</legend><input type="file" name="file" accept=".csv,text/csv">`)
			if savedEnabled {
				h.raw(` or saved file id <input name="file_id" size="36">`)
			}
			switch a.action {
			case "/api/crosstab":
				h.raw(`<br>Rows <input name="row_variable" required> by columns <input name="column_variable">`)
			case "/api/filter":
				h.raw(`<br>Column <input name="column"> <input name="operator" placeholder="contains">`)
				h.raw(` <input name="value"> <label><input type="checkbox" name="negated" value="true"> not</label>`)
				h.raw(`<br>Columns to show <input name="columns" placeholder="all">`)
				h.raw(` Page size <input name="limit" type="number" min="0" value="100">`)
			}
			h.raw(` <button type="submit">Run</button></fieldset></form>`)
		}
		if savedEnabled {
			h.component(ctx, FilesTable(files))
		}
		return h.err
	})
}
