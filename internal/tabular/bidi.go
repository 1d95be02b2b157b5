package tabular

import (
	"strings"

	"golang.org/x/text/unicode/bidi"
)

// directionalControls are the Unicode bidi control characters stripped from
// cell values: marks (LRM/RLM/ALM), embeddings/overrides and their
// terminator, and the isolate controls.
var directionalControls = map[rune]bool{
	'‎': true, // LRM
	'‏': true, // RLM
	'؜': true, // ALM
	'‪': true, // LRE
	'‫': true, // RLE
	'‬': true, // PDF
	'‭': true, // LRO
	'‮': true, // RLO
	'⁦': true, // LRI
	'⁧': true, // RLI
	'⁨': true, // FSI
	'⁩': true, // PDI
}

// StripDirectionalControls removes bidi control characters from s.
func StripDirectionalControls(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !directionalControls[r] {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsRTL reports whether the string is majority right-to-left: more runes
// with bidi class R or AL than with class L.
func IsRTL(s string) bool {
	rtl, ltr := 0, 0
	for _, r := range s {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.R, bidi.AL:
			rtl++
		case bidi.L:
			ltr++
		}
	}
	return rtl > ltr
}

// LogicalOrder restores logical character order for a majority-RTL cell
// whose text was extracted in visual order. The text is split into maximal
// runs of RTL and non-RTL characters; run order is reversed and characters
// within RTL runs are reversed, while embedded LTR runs (Latin words,
// digits) keep their internal order. Non-RTL-majority text passes through
// unchanged.
//
// This is a single-line approximation, which is all a table cell needs; it
// is not a full implementation of the Unicode bidi algorithm.
func LogicalOrder(s string) string {
	if !IsRTL(s) {
		return s
	}

	type run struct {
		runes []rune
		dir   int
	}
	var runs []run
	for _, r := range s {
		d := runeDirection(r)
		if len(runs) == 0 || runs[len(runs)-1].dir != d {
			runs = append(runs, run{dir: d})
		}
		last := &runs[len(runs)-1]
		last.runes = append(last.runes, r)
	}

	// Fold a neutral run into its neighbours when both share a direction,
	// so embedded phrases keep their internal spacing. A neutral between
	// opposite-direction runs stays separate and lands between them after
	// the run order is reversed.
	var merged []run
	for _, r := range runs {
		n := len(merged)
		if r.dir != dirNeutral && n >= 2 &&
			merged[n-1].dir == dirNeutral && merged[n-2].dir == r.dir {
			merged[n-2].runes = append(merged[n-2].runes, merged[n-1].runes...)
			merged[n-2].runes = append(merged[n-2].runes, r.runes...)
			merged = merged[:n-1]
			continue
		}
		merged = append(merged, r)
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := len(merged) - 1; i >= 0; i-- {
		r := merged[i]
		if r.dir == dirRTL {
			for j := len(r.runes) - 1; j >= 0; j-- {
				b.WriteRune(r.runes[j])
			}
		} else {
			b.WriteString(string(r.runes))
		}
	}
	return strings.TrimSpace(b.String())
}

const (
	dirLTR = iota
	dirRTL
	dirNeutral
)

func runeDirection(r rune) int {
	switch {
	case isRTLRune(r):
		return dirRTL
	case isLTRRune(r):
		return dirLTR
	default:
		return dirNeutral
	}
}

func isRTLRune(r rune) bool {
	props, _ := bidi.LookupRune(r)
	c := props.Class()
	return c == bidi.R || c == bidi.AL
}

// isLTRRune treats letters and digit classes as left-to-right so numbers
// embedded in Hebrew text keep their internal order.
func isLTRRune(r rune) bool {
	props, _ := bidi.LookupRune(r)
	switch props.Class() {
	case bidi.L, bidi.EN, bidi.AN:
		return true
	}
	return false
}

// NormalizeCellText applies the full cell normalisation: strip directional
// controls, restore logical order for RTL-majority content, and collapse
// interior whitespace runs.
func NormalizeCellText(s string) string {
	s = StripDirectionalControls(s)
	s = LogicalOrder(s)
	return strings.Join(strings.Fields(s), " ")
}
