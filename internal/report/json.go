package report

import (
	"encoding/json"
	"io"

	"github.com/JonMunkholm/listcutter/internal/core"
)

// JSONWriter outputs results as JSON documents wrapped with their source name.
type JSONWriter struct {
	baseWriter
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// envelope tags each document with its source file and result kind so a
// multi-file run stays a readable stream of JSON values.
type envelope struct {
	Source string      `json:"source,omitempty"`
	Kind   string      `json:"kind"`
	Data   interface{} `json:"data"`
}

func (w *JSONWriter) encode(source, kind string, data interface{}) error {
	enc := json.NewEncoder(w.output)
	if w.indent != "" {
		enc.SetIndent("", w.indent)
	}
	return enc.Encode(envelope{Source: source, Kind: kind, Data: data})
}

func (w *JSONWriter) WriteColumns(source string, columns []string) error {
	if columns == nil {
		columns = []string{}
	}
	return w.encode(source, "columns", columns)
}

func (w *JSONWriter) WriteCrosstab(source string, res *core.CrosstabResult) error {
	return w.encode(source, string(res.Mode), res)
}

func (w *JSONWriter) WriteProfiles(source string, profiles []core.ColumnProfile) error {
	if profiles == nil {
		profiles = []core.ColumnProfile{}
	}
	return w.encode(source, "profiles", profiles)
}

func (w *JSONWriter) WriteRows(source string, res *core.FilteredResult) error {
	return w.encode(source, "rows", res)
}
