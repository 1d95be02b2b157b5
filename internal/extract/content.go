package extract

import (
	"slices"
	"strconv"
	"strings"
)

// decodePageContent turns a raw PDF content stream into readable text by
// collecting the arguments of text-show operations, then cleaning escape
// sequences and binary noise. Line structure is preserved: each text-show
// operation line in the stream contributes one output line, which is what
// the table parser's whitespace heuristics key on.
func decodePageContent(content string) string {
	if content == "" {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.Contains(line, " Tj") && !strings.Contains(line, " TJ") &&
			!strings.Contains(line, "' ") && !strings.Contains(line, "\" ") {
			continue
		}
		texts := textsFromOperation(line)
		if len(texts) == 0 {
			continue
		}
		lines = append(lines, cleanupText(strings.Join(texts, " ")))
	}

	if len(lines) == 0 {
		if readable := readableFallback(content); readable != "" {
			return readable
		}
		return ""
	}
	return strings.Join(lines, "\n")
}

// textsFromOperation extracts the parenthesised string arguments from one
// PDF operation line, unescaping the basic sequences.
func textsFromOperation(operation string) []string {
	var texts []string
	inText := false
	start := -1

	for i, char := range operation {
		if char == '(' && (i == 0 || operation[i-1] != '\\') {
			inText = true
			start = i + 1
		} else if char == ')' && inText && (i == 0 || operation[i-1] != '\\') {
			if start != -1 && start < i {
				text := operation[start:i]
				text = strings.ReplaceAll(text, "\\(", "(")
				text = strings.ReplaceAll(text, "\\)", ")")
				text = strings.ReplaceAll(text, "\\\\", "\\")
				text = strings.ReplaceAll(text, "\\n", "\n")
				text = strings.ReplaceAll(text, "\\r", "\r")
				text = strings.ReplaceAll(text, "\\t", "\t")
				if strings.TrimSpace(text) != "" {
					texts = append(texts, text)
				}
			}
			inText = false
			start = -1
		}
	}
	return texts
}

// readableFallback salvages any readable lines when no text-show operations
// were found at all.
func readableFallback(content string) string {
	var readable []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isPDFCommand(line) || !isReadableText(line) {
			continue
		}
		readable = append(readable, line)
	}
	return strings.Join(readable, "\n")
}

var pdfOperators = []string{
	"BT", "ET", "Tf", "Td", "TD", "Tm", "T*", "Tj", "TJ", "'", "\"",
	"q", "Q", "cm", "w", "J", "j", "M", "d", "ri", "i", "gs",
	"CS", "cs", "SC", "SCN", "sc", "scn", "G", "g", "RG", "rg", "K", "k",
	"m", "l", "c", "v", "y", "h", "re", "S", "s", "f", "F", "f*", "B", "B*", "b", "b*", "n",
	"W", "W*", "BX", "EX", "MP", "DP", "BMC", "BDC", "EMC",
}

func isPDFCommand(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 {
		return false
	}
	if slices.Contains(pdfOperators, words[len(words)-1]) {
		return true
	}
	nonNumeric := 0
	for _, word := range words {
		if _, err := strconv.ParseFloat(word, 64); err != nil {
			nonNumeric++
		}
	}
	return float64(nonNumeric)/float64(len(words)) < 0.3
}

func isReadableText(line string) bool {
	if len(line) < 2 {
		return false
	}
	letters := 0
	for _, char := range line {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') ||
			(char >= 0x0590 && char <= 0x05FF) { // Hebrew block
			letters++
		}
	}
	return float64(letters)/float64(len([]rune(line))) >= 0.3
}

// octalReplacements maps the octal escapes commonly seen in PDF strings to
// their characters.
var octalReplacements = map[string]string{
	"\\037": "",
	"\\260": "°",
	"\\256": "®",
	"\\251": "©",
	"\\231": "'",
	"\\221": "'",
	"\\223": "\"",
	"\\224": "\"",
	"\\226": "–",
	"\\227": "—",
	"\\240": " ",
	"\\012": "\n",
	"\\015": "\r",
	"\\011": "\t",
}

func cleanupText(text string) string {
	text = strings.TrimSpace(text)

	for octal, replacement := range octalReplacements {
		text = strings.ReplaceAll(text, octal, replacement)
	}

	// Drop any remaining 3-digit octal escapes.
	var b strings.Builder
	i := 0
	for i < len(text) {
		if i < len(text)-3 && text[i] == '\\' &&
			text[i+1] >= '0' && text[i+1] <= '7' &&
			text[i+2] >= '0' && text[i+2] <= '7' &&
			text[i+3] >= '0' && text[i+3] <= '7' {
			i += 4
			continue
		}
		b.WriteByte(text[i])
		i++
	}
	text = b.String()

	return removeBinaryCharacters(text)
}

// removeBinaryCharacters keeps printable content and whitespace, replaces
// stray control characters with spaces, and drops the rest.
func removeBinaryCharacters(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch {
		case char >= 32 && char <= 126,
			char == '\n' || char == '\r' || char == '\t',
			char >= 0x00A0 && char <= 0x00FF,
			char >= 0x0590 && char <= 0x05FF, // Hebrew
			char >= 0x2000 && char <= 0x206F,
			char >= 0x20A0 && char <= 0x20CF: // currency symbols
			b.WriteRune(char)
		case char < 32:
			b.WriteRune(' ')
		}
	}
	return b.String()
}
