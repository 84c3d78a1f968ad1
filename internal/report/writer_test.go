package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/JonMunkholm/listcutter/internal/core"
)

const votesCSV = "state,vote\nCA,Yes\nCA,No\nNY,Yes\n\"Washington, DC\",\n"

func testEngine() *core.Engine {
	return core.NewEngine(core.DefaultLimits(), core.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func crosstab(t *testing.T, colVar string) *core.CrosstabResult {
	t.Helper()
	res, err := testEngine().Crosstab(context.Background(), votesCSV, "state", colVar)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"md", FormatMarkdown, false},
		{" Markdown ", FormatMarkdown, false},
		{"json", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.input, got, err)
		}
	}
}

// ----------------------------------------------------------------------------
// CSV Writer Tests
// ----------------------------------------------------------------------------

func TestCSVWriter(t *testing.T) {
	t.Run("crosstab matches engine export", func(t *testing.T) {
		res := crosstab(t, "vote")
		var buf bytes.Buffer
		if err := NewCSVWriter(&buf).WriteCrosstab("votes.csv", res); err != nil {
			t.Fatal(err)
		}
		if buf.String() != core.ExportCrosstab(res) {
			t.Errorf("got %q, want %q", buf.String(), core.ExportCrosstab(res))
		}
	})

	t.Run("columns", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewCSVWriter(&buf).WriteColumns("", []string{"id", "full, name"}); err != nil {
			t.Fatal(err)
		}
		want := "column\nid\n\"full, name\"\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("profiles", func(t *testing.T) {
		profiles := []core.ColumnProfile{{
			Name:             "amount",
			Type:             core.TypeDecimal,
			Confidence:       0.875,
			SampleValues:     []string{"1.50", "2,000.00"},
			UniqueValueCount: 2,
			NullCount:        1,
		}}
		var buf bytes.Buffer
		if err := NewCSVWriter(&buf).WriteProfiles("", profiles); err != nil {
			t.Fatal(err)
		}
		want := "column,type,confidence,unique_values,null_count,samples\n" +
			"amount,decimal,0.88,2,1,\"1.50; 2,000.00\"\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})
}

// ----------------------------------------------------------------------------
// JSON Writer Tests
// ----------------------------------------------------------------------------

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONWriter(&buf).WriteCrosstab("votes.csv", crosstab(t, "")); err != nil {
		t.Fatal(err)
	}

	var got struct {
		Source string              `json:"source"`
		Kind   string              `json:"kind"`
		Data   core.CrosstabResult `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Source != "votes.csv" || got.Kind != "frequency" || got.Data.GrandTotal != 4 {
		t.Errorf("decoded = %+v", got)
	}

	buf.Reset()
	if err := NewJSONWriter(&buf, WithPrettyPrint()).WriteColumns("", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\"data\": []") {
		t.Errorf("expected empty column list, got %s", buf.String())
	}
}

// ----------------------------------------------------------------------------
// Markdown Writer Tests
// ----------------------------------------------------------------------------

func TestMarkdownWriter(t *testing.T) {
	t.Run("crosstab has totals", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewMarkdownWriter(&buf).WriteCrosstab("votes.csv", crosstab(t, "vote")); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		for _, want := range []string{"## Crosstab: state by vote", "votes.csv", "Washington, DC", "(empty)", "**Total**", "**4**"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("frequency has shares", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewMarkdownWriter(&buf).WriteCrosstab("", crosstab(t, "")); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		if !strings.Contains(output, "## Frequency: state") || !strings.Contains(output, "50.0%") {
			t.Errorf("unexpected output:\n%s", output)
		}
		if strings.Contains(output, "Source:") {
			t.Error("no source line expected when source is empty")
		}
	})

	t.Run("empty crosstab", func(t *testing.T) {
		res, err := testEngine().Crosstab(context.Background(), "", "state", "")
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := NewMarkdownWriter(&buf).WriteCrosstab("", res); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "No rows to count.") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("rows escape pipes and newlines", func(t *testing.T) {
		res := &core.FilteredResult{
			Columns:          []string{"name", "note"},
			Rows:             [][]string{{"a|b", "line one\nline two"}},
			TotalRowsScanned: 10,
			MatchedRowCount:  3,
			ReturnedRowCount: 1,
			HasMore:          true,
			Metrics:          core.PerformanceMetrics{SkippedRows: 2},
		}
		var buf bytes.Buffer
		if err := NewMarkdownWriter(&buf).WriteRows("", res); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		for _, want := range []string{`a\|b`, "line one line two", "Matched 3 of 10 rows, showing 1.", "More rows match", "2 malformed row(s)"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("profiles", func(t *testing.T) {
		profiles, err := testEngine().DetectTypes(context.Background(), "id,joined\n1,2024-01-05\n2,2024-02-06\n")
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := NewMarkdownWriter(&buf).WriteProfiles("", profiles); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		for _, want := range []string{"## Column Types", "integer", "date", "`2024-01-05`"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})
}

func TestNewWriter(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatMarkdown, FormatJSON} {
		if _, err := NewWriter(f, io.Discard); err != nil {
			t.Errorf("NewWriter(%q) error = %v", f, err)
		}
	}
	if _, err := NewWriter("yaml", io.Discard); err == nil {
		t.Error("expected error for unknown format")
	}
}
