package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "column not found input error",
			err:         errColumnNotFound("state"),
			wantCode:    "VAL005",
			wantMessage: "Column not found in CSV",
		},
		{
			name:        "wrapped input error",
			err:         fmt.Errorf("crosstab: %w", inputErrorf("VAL007", "invalid regex pattern %q", "(")),
			wantCode:    "VAL007",
			wantMessage: "The regular expression is not valid",
		},
		{
			name:        "input error with uncatalogued code keeps its message",
			err:         inputErrorf("VAL099", "something specific"),
			wantCode:    "VAL099",
			wantMessage: "something specific",
		},
		{
			name:        "size budget",
			err:         &BudgetExceededError{Kind: BudgetSize, Limit: 10, Observed: 20},
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
		},
		{
			name:        "row budget",
			err:         &BudgetExceededError{Kind: BudgetRows, Limit: 10, Observed: 11},
			wantCode:    "BUD001",
			wantMessage: "File has too many rows",
		},
		{
			name:        "timeout budget",
			err:         &BudgetExceededError{Kind: BudgetTimeout, Limit: 1, RowsProcessed: 5},
			wantCode:    "BUD002",
			wantMessage: "Processing took too long",
		},
		{
			name:        "cardinality budget",
			err:         fmt.Errorf("analysis: %w", &BudgetExceededError{Kind: BudgetCardinality, Axis: "row"}),
			wantCode:    "BUD003",
			wantMessage: "Too many unique values to cross-tabulate",
		},
		{
			name:        "connection refused maps to storage",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "STO002",
			wantMessage: "Storage is unavailable",
		},
		{
			name:        "missing object",
			err:         errors.New("The specified key does not exist."),
			wantCode:    "STO003",
			wantMessage: "The stored object is missing",
		},
		{
			name:        "cancelled context",
			err:         fmt.Errorf("walk cancelled after 10 rows: %w", context.Canceled),
			wantCode:    "ANL002",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("NO FILE PROVIDED"),
			wantCode:    "FILE004",
			wantMessage: "No file was selected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

// Every engine error message must reach its own catalogue entry by pattern
// as well as by type, so wrapped strings from other layers still map.
func TestMapError_MessagesMatchPatterns(t *testing.T) {
	errs := []error{
		errColumnNotFound("x"),
		inputErrorf("VAL004", "missing header: line 1 has no column names"),
		inputErrorf("VAL006", "unknown filter operator %q", "x"),
		inputErrorf("VAL008", "invalid logical operator %q: use AND or OR", "x"),
		inputErrorf("VAL009", "invalid pagination: limit -1, offset 0"),
		inputErrorf("VAL010", "row variable is required"),
		&BudgetExceededError{Kind: BudgetSize},
		&BudgetExceededError{Kind: BudgetRows},
		&BudgetExceededError{Kind: BudgetTimeout},
		&BudgetExceededError{Kind: BudgetCardinality, Axis: "column"},
	}
	for _, err := range errs {
		typed := MapError(err)
		byText := MapError(errors.New(err.Error()))
		if typed.Code != byText.Code {
			t.Errorf("%q: typed code %s, text code %s", err, typed.Code, byText.Code)
		}
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("too many rows: limit of 10 rows exceeded")
	result := FormatUserError(err)

	expected := "File has too many rows (Code: BUD001). Split the file or filter it before analysing"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errColumnNotFound("x"),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errColumnNotFound("state")
		userErr := NewUserError(techErr)

		if userErr.Error() != "Column not found in CSV" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})

	t.Run("mapping a user error keeps its message", func(t *testing.T) {
		userErr := NewUserError(errors.New("dial tcp: connection refused"))
		got := MapError(fmt.Errorf("load: %w", userErr))
		if got.Code != "STO002" {
			t.Errorf("MapError(UserError) code = %q, want STO002", got.Code)
		}
	})
}
