package core

import "strings"

// ParseLine splits one logical CSV record into cells using a comma delimiter.
func ParseLine(line string) []string {
	return ParseLineDelim(line, ',')
}

// ParseLineDelim splits one logical record into cells.
//
// The tokenizer has two states. Outside quotes a quote enters the quoted state
// and the delimiter ends the current cell. Inside quotes a doubled quote emits
// a literal quote and any other quote leaves the quoted state. Delimiters and
// newlines inside quotes are literal. Runs in a single pass with no
// backtracking; the delimiter must be a single byte.
func ParseLineDelim(line string, delim byte) []string {
	cells := make([]string, 0, strings.Count(line, string(delim))+1)
	var cell strings.Builder
	cell.Grow(len(line))

	quoted := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quoted && c == '"':
			if i+1 < len(line) && line[i+1] == '"' {
				cell.WriteByte('"')
				i++
			} else {
				quoted = false
			}
		case quoted:
			cell.WriteByte(c)
		case c == '"':
			quoted = true
		case c == delim:
			cells = append(cells, cell.String())
			cell.Reset()
		default:
			cell.WriteByte(c)
		}
	}
	return append(cells, cell.String())
}
