package core

// convert.go provides the explicit numeric, date and boolean interpretations
// of a Cell. They handle the messy reality of user-provided CSV data:
//   - Currency symbols and thousand separators in numbers
//   - Accounting format negatives: (123.45)
//   - Multiple date formats (ISO, US, two-digit years)
//   - Various boolean spellings (yes/no, on/off, 1/0)
//
// Conversions never coerce silently: each returns ok=false when the cell is
// missing or does not parse.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericPattern validates a cleaned numeric string.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot controls how two-digit years are read. Dates that would
// land more than this many years in the future move to the previous century.
const TwoDigitYearPivot = 20

var (
	// Unambiguous layouts tried first.
	isoDateLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
	}
	// The literal pattern list shared with type detection.
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
	}
	twoDigitYearLayouts = []string{
		"01/02/06", "1/2/06",
	}
)

// ParseNumber parses a numeric string after stripping whitespace, currency
// symbols and thousands separators.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "").Replace(s)
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// ParseDate parses s with the ISO layouts first, then the literal pattern
// list. Two-digit years pivot around the current year.
func ParseDate(s string) (time.Time, bool) {
	return ParseDateAt(s, time.Now())
}

// ParseDateAt is ParseDate with two-digit years pivoting around now's year.
func ParseDateAt(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := now.Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBool reads the fixed literal sets {true,1,yes,y,on} and {false,0,no,n,off}.
func ParseBool(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on":
		return true, true
	case "false", "0", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// Number interprets the cell as a number.
func (c Cell) Number() (float64, bool) {
	if !c.Present {
		return 0, false
	}
	return ParseNumber(c.Value)
}

// Date interprets the cell as a date.
func (c Cell) Date() (time.Time, bool) {
	return c.DateAt(time.Now())
}

// DateAt interprets the cell as a date, pivoting two-digit years around now.
func (c Cell) DateAt(now time.Time) (time.Time, bool) {
	if !c.Present {
		return time.Time{}, false
	}
	return ParseDateAt(c.Value, now)
}

// Bool interprets the cell as a boolean.
func (c Cell) Bool() (value bool, ok bool) {
	if !c.Present {
		return false, false
	}
	return ParseBool(c.Value)
}
