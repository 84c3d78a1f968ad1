// Package templates holds the HTML views of the web UI as templ components.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// htmlWriter accumulates the first write error so components can emit
// markup without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes s with HTML escaping.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) int(n int) {
	h.raw(strconv.Itoa(n))
}

func (h *htmlWriter) component(ctx context.Context, c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(ctx, h.w)
	}
}

// Page wraps body in the site layout.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` · listcutter</title><style>`)
		h.raw(stylesheet)
		h.raw(`</style></head><body><header><a href="/">listcutter</a></header><main>`)
		h.component(ctx, body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// ErrorAlert renders a user-facing error with its suggested action.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<p>`)
			h.text(action)
			h.raw(`</p>`)
		}
		if code != "" {
			h.raw(`<small>Code: `)
			h.text(code)
			h.raw(`</small>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}

const stylesheet = `
body{font-family:system-ui,sans-serif;margin:0;color:#1f2933}
header{background:#243b53;padding:.75rem 1.5rem}
header a{color:#fff;text-decoration:none;font-weight:600}
main{padding:1.5rem;max-width:72rem}
table{border-collapse:collapse;margin:1rem 0}
th,td{border:1px solid #d9e2ec;padding:.35rem .6rem;text-align:left}
th{background:#f0f4f8}
td.num{text-align:right;font-variant-numeric:tabular-nums}
tr.total td{font-weight:600;background:#f0f4f8}
.alert{border:1px solid #e12d39;background:#ffe3e3;padding:.75rem 1rem;border-radius:4px}
.muted{color:#627d98}
form fieldset{border:1px solid #d9e2ec;margin-bottom:1rem}
`
