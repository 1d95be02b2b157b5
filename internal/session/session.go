// Package session defines the conversion session model, its status machine
// rules, the error taxonomy, and a concurrent store with durable JSON
// records.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a conversion session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// CanTransition reports whether moving from s to next is a legal transition.
// Transitions are monotonic except for the processing/paused cycle.
func (s Status) CanTransition(next Status) bool {
	switch next {
	case StatusAnalyzing:
		return s == StatusPending
	case StatusProcessing:
		return s == StatusAnalyzing || s == StatusPaused
	case StatusPaused:
		return s == StatusProcessing
	case StatusCompleted:
		return s == StatusProcessing
	case StatusCancelled:
		return s == StatusPending || s == StatusAnalyzing || s == StatusProcessing || s == StatusPaused
	case StatusError:
		return !s.Terminal()
	default:
		return false
	}
}

// Format identifies the output artifact format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Valid reports whether f is a supported output format.
func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatXLSX
}

// Analysis records what the pre-processing probe learned about the document.
type Analysis struct {
	HasRTLText bool `json:"has_rtl_text"`
	// TextLayer reports whether the sampled pages carried a usable text
	// layer; false suggests a scanned document that will lean on OCR.
	TextLayer bool `json:"text_layer"`
}

// PreviewData is the bounded, polling-friendly view into the assembled
// dataset.
type PreviewData struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Clone returns a deep copy so callers can never mutate stored state.
func (p *PreviewData) Clone() *PreviewData {
	if p == nil {
		return nil
	}
	out := &PreviewData{
		Columns: append([]string(nil), p.Columns...),
		Rows:    make([][]any, len(p.Rows)),
	}
	for i, row := range p.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}

// Session is one document's conversion job. Values are treated as immutable
// snapshots: every progress tick replaces the whole value in the store so a
// concurrent reader sees either the pre- or post-tick state, never a mix.
type Session struct {
	ID          string    `json:"session_id"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
	Format      Format    `json:"output_format,omitempty"`
	InputRef    string    `json:"input_ref"`
	OutputRef   string    `json:"output_ref,omitempty"`
	ErrorDetail string    `json:"error,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
	Analysis    *Analysis `json:"analysis,omitempty"`

	// Preview is the current preview window; FirstPagePreview is retained
	// so the window can be re-anchored to page one on demand.
	Preview          *PreviewData `json:"preview,omitempty"`
	FirstPagePreview *PreviewData `json:"first_page_preview,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a pending session for the given input reference with a fresh
// opaque id.
func New(inputRef string) Session {
	now := time.Now().UTC()
	return Session{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		InputRef:  inputRef,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	out.Warnings = append([]string(nil), s.Warnings...)
	if s.Analysis != nil {
		a := *s.Analysis
		out.Analysis = &a
	}
	out.Preview = s.Preview.Clone()
	out.FirstPagePreview = s.FirstPagePreview.Clone()
	return out
}
