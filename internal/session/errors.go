package session

import "fmt"

// NotFoundError indicates an unknown session id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}

// InvalidStateError indicates a control operation requested in a state that
// forbids it. The session is left untouched.
type InvalidStateError struct {
	Op     string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s session in %s status", e.Op, e.Status)
}

// OrphanedError indicates a control operation on a session that has no
// worker goroutine in this process, typically a record restored after a
// restart. Pausing or resuming it would flip the status with nothing left
// to act on it; cancelling is the only way out.
type OrphanedError struct {
	ID     string
	Status Status
}

func (e *OrphanedError) Error() string {
	return fmt.Sprintf("session %s is %s but has no active worker", e.ID, e.Status)
}

// AcquisitionError indicates text/OCR extraction failed for one page.
// Recorded as a warning; non-fatal unless every page fails.
type AcquisitionError struct {
	Page  int
	Cause error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("text acquisition failed on page %d: %v", e.Page, e.Cause)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Cause
}

// ParseAmbiguityError indicates a column-count mismatch between a page's
// rows and the established header set. Recorded as a warning; processing
// continues with best-effort alignment.
type ParseAmbiguityError struct {
	Page int
	Want int
	Got  int
}

func (e *ParseAmbiguityError) Error() string {
	return fmt.Sprintf("column count mismatch on page %d: expected %d, got %d", e.Page, e.Want, e.Got)
}

// ExportError indicates the artifact could not be written. Fatal: the
// session moves to the error state and no partial file is referenced.
type ExportError struct {
	Format Format
	Path   string
	Cause  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s failed for %s: %v", e.Format, e.Path, e.Cause)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}
