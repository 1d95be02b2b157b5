package tabular

import (
	"regexp"
	"strings"
)

// lineState tracks where the parser is in the per-line state machine that
// detects table regions.
type lineState int

const (
	// stateScanning: no table candidate open.
	stateScanning lineState = iota
	// stateBuilding: a candidate is open but has not reached the commit
	// threshold yet.
	stateBuilding
	// stateCommitted: the candidate has enough consistent lines to be a
	// table; further matching lines extend it.
	stateCommitted
)

// Table is a contiguous run of lines sharing one column structure.
type Table struct {
	Rows    []Row
	Columns int
}

// Config holds the parser thresholds.
type Config struct {
	// MinTableLines is the number of consecutive lines with the same
	// multi-column structure required to commit a table candidate. This
	// guards against false positives on running headers and footers.
	MinTableLines int
}

// Parser detects table candidates in page text.
type Parser struct {
	cfg Config
}

// NewParser creates a parser. A MinTableLines below 2 is raised to 2.
func NewParser(cfg Config) *Parser {
	if cfg.MinTableLines < 2 {
		cfg.MinTableLines = 2
	}
	return &Parser{cfg: cfg}
}

// explicit delimiters tried in priority order before whitespace-run
// splitting. Comma is only a delimiter of last resort: digit-grouping
// commas ("1,234.50") would otherwise shred numeric cells on pages whose
// columns are space-aligned.
var explicitDelimiters = []string{"|", ";", "\t"}

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// ParsePage segments text into lines and returns the committed table
// candidates. Blank lines are boundaries; single-token lines never open or
// extend a candidate; a line that breaks the prevailing column count closes
// the current candidate and may open a new one.
func (p *Parser) ParsePage(text string) []Table {
	var (
		tables    []Table
		candidate []Row
		columns   int
		state     = stateScanning
	)

	closeCandidate := func() {
		if state == stateCommitted {
			tables = append(tables, Table{Rows: candidate, Columns: columns})
		}
		candidate = nil
		columns = 0
		state = stateScanning
	}

	for _, line := range strings.Split(text, "\n") {
		fields := SplitLine(line)

		// Whitespace-only lines are a boundary, not a row.
		if len(fields) == 0 {
			closeCandidate()
			continue
		}

		// A single token cannot establish or extend columnar structure.
		if len(fields) < 2 {
			closeCandidate()
			continue
		}

		row := make(Row, len(fields))
		for i, f := range fields {
			row[i] = CoerceCell(NormalizeCellText(f))
		}

		switch state {
		case stateScanning:
			candidate = []Row{row}
			columns = len(fields)
			state = stateBuilding
			if p.cfg.MinTableLines <= 1 {
				state = stateCommitted
			}
		case stateBuilding, stateCommitted:
			if len(fields) != columns {
				closeCandidate()
				candidate = []Row{row}
				columns = len(fields)
				state = stateBuilding
				continue
			}
			candidate = append(candidate, row)
			if state == stateBuilding && len(candidate) >= p.cfg.MinTableLines {
				state = stateCommitted
			}
		}
	}
	closeCandidate()

	return tables
}

// SplitLine splits a line into fields: an explicit delimiter (pipe,
// semicolon, tab, comma) wins if present, otherwise runs of two or more
// spaces separate fields. Empty fields are dropped.
func SplitLine(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	var parts []string
	delimited := false
	for _, d := range explicitDelimiters {
		if strings.Contains(line, d) {
			parts = strings.Split(line, d)
			delimited = true
			break
		}
	}
	if !delimited {
		if whitespaceRun.MatchString(line) {
			parts = whitespaceRun.Split(line, -1)
		} else if strings.Contains(line, ",") {
			parts = strings.Split(line, ",")
		} else {
			parts = []string{line}
		}
	}

	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			fields = append(fields, part)
		}
	}
	return fields
}
