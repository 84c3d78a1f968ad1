// Package report renders analysis results for people and tools: CSV for
// spreadsheets, Markdown for documents and JSON for scripts.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/listcutter/internal/core"
)

// Format names an output format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name, case-insensitively. "md" is an alias
// for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q: use csv, markdown or json", s)
	}
}

// Writer renders each kind of analysis result.
type Writer interface {
	WriteColumns(source string, columns []string) error
	WriteCrosstab(source string, res *core.CrosstabResult) error
	WriteProfiles(source string, profiles []core.ColumnProfile) error
	WriteRows(source string, res *core.FilteredResult) error
}

// NewWriter returns the Writer for format.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
