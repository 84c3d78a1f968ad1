// Package source retrieves raw CSV bytes for the analysis engine.
//
// Uploads and stored objects both pass through ReadAll, which enforces the
// byte budget while reading and decodes the stream to UTF-8:
//
//   - A UTF-8 BOM is dropped; a UTF-16 BOM switches decoding to UTF-16
//   - Invalid UTF-8 sequences become U+FFFD instead of failing the read
//   - Raw bytes are counted before decoding, so the budget applies to the
//     size the client sent
package source

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/listcutter/internal/core"
)

// errLimitReached stops the counting reader once the budget is passed.
var errLimitReached = errors.New("byte budget reached")

// CountingReader tracks bytes read and fails once more than Limit bytes have
// been consumed. A Limit of 0 disables the check.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64
	Total     int64 // If known (0 if unknown)
}

// NewCountingReader creates a counting reader with an optional byte limit
// and known total size.
func NewCountingReader(r io.Reader, limit, total int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Exceeded() {
		return n, errLimitReached
	}
	return n, err
}

// Exceeded reports whether more than Limit bytes have been read.
func (r *CountingReader) Exceeded() bool {
	return r.Limit > 0 && r.BytesRead > r.Limit
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// NewDecodingReader wraps r so that it yields valid UTF-8 with any BOM removed.
func NewDecodingReader(r io.Reader) io.Reader {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return transform.NewReader(r, transform.Chain(decoder, runes.ReplaceIllFormed()))
}

// ReadAll reads r into a string, failing with a size BudgetExceededError as
// soon as more than maxBytes raw bytes arrive. The budget is checked while
// reading, so an oversized body is never fully buffered.
func ReadAll(r io.Reader, maxBytes int64) (string, error) {
	counter := NewCountingReader(r, maxBytes, 0)

	var sb strings.Builder
	_, err := io.Copy(&sb, NewDecodingReader(counter))
	if errors.Is(err, errLimitReached) {
		return "", &core.BudgetExceededError{
			Kind:     core.BudgetSize,
			Limit:    maxBytes,
			Observed: counter.BytesRead,
		}
	}
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return sb.String(), nil
}
