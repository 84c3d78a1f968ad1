package source

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/JonMunkholm/listcutter/internal/core"
)

func TestReadAll(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "plain ascii",
			input:    []byte("name,age\nAlice,30\n"),
			expected: "name,age\nAlice,30\n",
		},
		{
			name:     "UTF-8 BOM removed",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b")...),
			expected: "a,b",
		},
		{
			name:     "UTF-16LE with BOM decoded",
			input:    []byte{0xFF, 0xFE, 'a', 0, ',', 0, 'b', 0},
			expected: "a,b",
		},
		{
			name:     "invalid UTF-8 replaced",
			input:    []byte{'a', 0xFF, 'b'},
			expected: "a\ufffdb",
		},
		{
			name:     "multi-byte preserved",
			input:    []byte("café,naïve"),
			expected: "café,naïve",
		},
		{
			name:     "partial BOM kept",
			input:    []byte{0xEF, 0xBB, 'a'},
			expected: "\ufffd\ufffda",
		},
		{
			name:     "empty",
			input:    []byte{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadAll(bytes.NewReader(tt.input), 1024)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestReadAll_SizeBudget(t *testing.T) {
	input := strings.Repeat("x", 100)

	if _, err := ReadAll(strings.NewReader(input), 100); err != nil {
		t.Fatalf("input at the limit should pass, got %v", err)
	}

	_, err := ReadAll(strings.NewReader(input), 99)
	var budget *core.BudgetExceededError
	if !errors.As(err, &budget) {
		t.Fatalf("expected *core.BudgetExceededError, got %v", err)
	}
	if budget.Kind != core.BudgetSize || budget.Limit != 99 || budget.Observed <= 99 {
		t.Errorf("got %+v", budget)
	}
}

// oneByteReader returns data one byte at a time to exercise sequences that
// straddle read boundaries.
type oneByteReader struct {
	data []byte
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

func TestReadAll_SplitSequences(t *testing.T) {
	input := "héllo,wörld,日本"
	got, err := ReadAll(&oneByteReader{data: []byte(input)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestCountingReader(t *testing.T) {
	r := NewCountingReader(strings.NewReader("hello world"), 0, 22)
	if _, err := io.ReadAll(r); err != nil {
		t.Fatal(err)
	}
	if r.BytesRead != 11 {
		t.Errorf("BytesRead = %d, want 11", r.BytesRead)
	}
	if r.Progress() != 50 {
		t.Errorf("Progress() = %d, want 50", r.Progress())
	}
	if NewCountingReader(strings.NewReader(""), 0, 0).Progress() != 0 {
		t.Error("Progress() with unknown total should be 0")
	}
}

func TestCountingReader_Limit(t *testing.T) {
	r := NewCountingReader(strings.NewReader("0123456789"), 4, 0)
	_, err := io.ReadAll(r)
	if !errors.Is(err, errLimitReached) {
		t.Fatalf("error = %v, want errLimitReached", err)
	}
	if !r.Exceeded() {
		t.Error("Exceeded() = false after passing the limit")
	}
}
