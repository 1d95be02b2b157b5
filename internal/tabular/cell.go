// Package tabular turns raw page text into typed rows using delimiter and
// whitespace heuristics, with bidirectional-text and numeric normalisation.
package tabular

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind discriminates the two cell value types.
type Kind int

const (
	KindString Kind = iota
	KindNumber
)

// Cell is a single typed table value.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
}

// Row is an ordered sequence of cells.
type Row []Cell

// String creates a string cell.
func String(s string) Cell {
	return Cell{Kind: KindString, Text: s}
}

// Number creates a numeric cell.
func Number(f float64) Cell {
	return Cell{Kind: KindNumber, Number: f}
}

// Value returns the cell's native Go value (string or float64).
func (c Cell) Value() any {
	if c.Kind == KindNumber {
		return c.Number
	}
	return c.Text
}

// Format renders the cell for text output. Numbers use the shortest
// representation that round-trips.
func (c Cell) Format() string {
	if c.Kind == KindNumber {
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	}
	return c.Text
}

// IsEmpty reports whether the cell carries no content.
func (c Cell) IsEmpty() bool {
	return c.Kind == KindString && strings.TrimSpace(c.Text) == ""
}

// numericPattern matches an optional sign, digit groups with optional comma
// thousands separators, an optional decimal part, and an optional percent or
// currency marker on either side.
var numericPattern = regexp.MustCompile(`^[-+]?[$€£₪]?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?[%$€£₪]?$`)

// CoerceCell normalises a token into a typed cell: tokens matching the
// numeric pattern become numbers (separators and markers stripped),
// everything else stays a string.
func CoerceCell(token string) Cell {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return String("")
	}
	if !numericPattern.MatchString(trimmed) {
		return String(trimmed)
	}
	cleaned := strings.NewReplacer(",", "", "%", "", "$", "", "€", "", "£", "", "₪", "").Replace(trimmed)
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return String(trimmed)
	}
	return Number(n)
}
