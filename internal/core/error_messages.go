package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Typed engine errors (InputError, BudgetExceededError) map by
// code or budget kind; everything else maps by pattern.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: input exceeds the size budget
//	FILE002 - Invalid CSV: unterminated quote in the header record
//	FILE003 - Encoding error: file contains invalid characters
//	FILE004 - No file: neither an upload nor a saved file was given
//	FILE005 - Empty file: the file has no content
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid request: the form or JSON body could not be read
//	VAL004 - Missing header: the first record has no column names
//	VAL005 - Column not found: a referenced column is not in the header
//	VAL006 - Unknown operator: the filter operator is not recognised
//	VAL007 - Invalid regex: the regex pattern does not compile
//	VAL008 - Invalid logic: the logical operator is not AND or OR
//	VAL009 - Invalid pagination: negative offset or oversized page
//	VAL010 - Missing variable: a crosstab needs a row variable
//
// # Budget Errors (BUD001-BUD099)
//
//	BUD001 - Too many rows: the row budget was exceeded
//	BUD002 - Processing timeout: the time budget was exceeded
//	BUD003 - Too many unique values: a crosstab axis exceeded its ceiling
//
// # Storage Errors (STO001-STO099)
//
//	STO001 - Saved file not found
//	STO002 - Storage unavailable: connection refused or reset
//	STO003 - Object not found in the bucket
//	STO004 - Saved files disabled: no metadata store is configured
//
// # Analysis Errors (ANL001-ANL099)
//
//	ANL001 - System busy: too many analyses in progress
//	ANL002 - Request cancelled
//	ANL003 - Request timeout
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
//	ERR000 - An unexpected error occurred; check logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains. The first
// matching pattern wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: more specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Check that every quoted field in the header is closed",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Upload a CSV file or choose a saved file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Please provide a CSV file with a header and data rows",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL010)
	// =========================================================================
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the form fields or JSON body",
			Code:    "VAL001",
		},
	},
	{
		pattern: "missing header",
		msg: UserMessage{
			Message: "The first row has no column names",
			Action:  "Add a header row naming each column",
			Code:    "VAL004",
		},
	},
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "Column not found in CSV",
			Action:  "Check the column name against the file header",
			Code:    "VAL005",
		},
	},
	{
		pattern: "unknown filter operator",
		msg: UserMessage{
			Message: "Unknown filter operator",
			Action:  "Use one of the suggested operators for the column",
			Code:    "VAL006",
		},
	},
	{
		pattern: "invalid regex",
		msg: UserMessage{
			Message: "The regular expression is not valid",
			Action:  "Fix the pattern or use contains instead",
			Code:    "VAL007",
		},
	},
	{
		pattern: "invalid logical operator",
		msg: UserMessage{
			Message: "Filters must be combined with AND or OR",
			Action:  "Choose AND or OR",
			Code:    "VAL008",
		},
	},
	{
		pattern: "invalid pagination",
		msg: UserMessage{
			Message: "Invalid page request",
			Action:  "Use a non-negative offset and a smaller page size",
			Code:    "VAL009",
		},
	},
	{
		pattern: "row variable is required",
		msg: UserMessage{
			Message: "A row variable is required",
			Action:  "Choose the column to count by",
			Code:    "VAL010",
		},
	},

	// =========================================================================
	// Budget Errors (BUD001-BUD003)
	// =========================================================================
	{
		pattern: "too many rows",
		msg: UserMessage{
			Message: "File has too many rows",
			Action:  "Split the file or filter it before analysing",
			Code:    "BUD001",
		},
	},
	{
		pattern: "processing timeout",
		msg: UserMessage{
			Message: "Processing took too long",
			Action:  "Try a smaller file or narrower filters",
			Code:    "BUD002",
		},
	},
	{
		pattern: "too many unique values",
		msg: UserMessage{
			Message: "Too many unique values to cross-tabulate",
			Action:  "Choose a column with fewer distinct values",
			Code:    "BUD003",
		},
	},

	// =========================================================================
	// Storage Errors (STO001-STO004)
	// =========================================================================
	{
		pattern: "saved file not found",
		msg: UserMessage{
			Message: "Saved file not found",
			Action:  "Check the file id or upload the file again",
			Code:    "STO001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Storage is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "STO002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Storage connection was interrupted",
			Action:  "Please try again",
			Code:    "STO002",
		},
	},
	{
		pattern: "key does not exist",
		msg: UserMessage{
			Message: "The stored object is missing",
			Action:  "Upload the file again",
			Code:    "STO003",
		},
	},
	{
		pattern: "object not found",
		msg: UserMessage{
			Message: "The stored object is missing",
			Action:  "Upload the file again",
			Code:    "STO003",
		},
	},

	{
		pattern: "saved files are disabled",
		msg: UserMessage{
			Message: "Saved files are not available on this server",
			Action:  "Upload the file with the request instead",
			Code:    "STO004",
		},
	},

	// =========================================================================
	// Analysis Errors (ANL001-ANL003)
	// =========================================================================
	{
		pattern: "too many analyses",
		msg: UserMessage{
			Message: "System is busy processing other analyses",
			Action:  "Please wait a moment and try again",
			Code:    "ANL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "ANL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "ANL003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

var budgetCodes = map[BudgetKind]string{
	BudgetSize:        "FILE001",
	BudgetRows:        "BUD001",
	BudgetTimeout:     "BUD002",
	BudgetCardinality: "BUD003",
}

// MapError converts an error to a user-friendly message.
//
// A UserError keeps the message it was built with. InputError and
// BudgetExceededError map by their code or kind, anywhere in the wrap chain.
// Other errors are matched against the pattern catalogue. If nothing
// matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.User
	}

	var inputErr *InputError
	if errors.As(err, &inputErr) {
		if msg, ok := messageForCode(inputErr.Code); ok {
			return msg
		}
		return UserMessage{Message: inputErr.Message, Action: "Check the request and try again", Code: inputErr.Code}
	}
	var budgetErr *BudgetExceededError
	if errors.As(err, &budgetErr) {
		if msg, ok := messageForCode(budgetCodes[budgetErr.Kind]); ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func messageForCode(code string) (UserMessage, bool) {
	for _, ep := range errorPatterns {
		if ep.msg.Code == code {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific catalogue entry rather
// than the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
