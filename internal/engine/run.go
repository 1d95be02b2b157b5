package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Asanta4/pdf2xls/internal/assemble"
	"github.com/Asanta4/pdf2xls/internal/export"
	"github.com/Asanta4/pdf2xls/internal/extract"
	"github.com/Asanta4/pdf2xls/internal/session"
	"github.com/Asanta4/pdf2xls/internal/tabular"
)

// errHalt marks a loop exit that already published its terminal state.
var errHalt = errors.New("halted")

// errParked marks a completion attempt deferred by a late pause.
var errParked = errors.New("parked")

// run is the per-session worker. It performs the analysis probe, walks
// the pages, and finishes with export. Control signals are consumed only
// at page boundaries so each page's work is all-or-nothing.
func (e *Engine) run(w *worker) {
	defer close(w.done)
	defer func() {
		e.mu.Lock()
		delete(e.workers, w.id)
		e.mu.Unlock()
	}()

	ctx := context.Background()
	log := e.logger.WithField("session_id", w.id)

	sess, err := e.store.Get(w.id)
	if err != nil {
		log.WithError(err).Error("Session disappeared before processing")
		return
	}

	src, err := e.open(ctx, sess.InputRef)
	if err != nil {
		e.fail(w.id, fmt.Errorf("opening input: %w", err))
		return
	}
	defer src.Close()

	total, err := src.PageCount(ctx)
	if err != nil {
		e.fail(w.id, fmt.Errorf("counting pages: %w", err))
		return
	}
	if total < 1 {
		e.fail(w.id, errors.New("document has no pages"))
		return
	}

	// Probe the first page for script direction and text-layer presence.
	// The result is cached so the page loop does not extract it twice.
	probe, probeErr := src.Page(ctx, 1)
	analysis := &session.Analysis{}
	if probeErr == nil {
		analysis.HasRTLText = tabular.IsRTL(probe.Text)
		analysis.TextLayer = probe.Provenance == extract.ProvenanceTextLayer
	}

	sess, err = e.publish(w.id, func(s *session.Session) error {
		if s.Status != session.StatusAnalyzing {
			return errHalt
		}
		s.Status = session.StatusProcessing
		s.TotalPages = total
		s.Analysis = analysis
		return nil
	})
	if err != nil {
		log.WithError(err).Debug("Session halted before processing")
		return
	}

	log.WithFields(logrus.Fields{
		"total_pages": total,
		"rtl":         analysis.HasRTLText,
		"text_layer":  analysis.TextLayer,
	}).Info("Analysis complete, processing started")

	asm := assemble.New(e.cfg.PreviewRows)
	parser := tabular.NewParser(tabular.Config{MinTableLines: e.cfg.MinTableLines})
	acquisitionFailures := 0

	for page := 1; page <= total; page++ {
		if halted := e.checkpoint(w); halted {
			return
		}

		var (
			pt  extract.PageText
			err error
		)
		if page == 1 {
			pt, err = probe, probeErr
		} else {
			pt, err = src.Page(ctx, page)
		}

		var warnings []error
		if err != nil {
			acquisitionFailures++
			warnings = append(warnings, &session.AcquisitionError{Page: page, Cause: err})
		} else {
			warnings = asm.AddPage(page, parser.ParsePage(pt.Text))
		}
		for _, warn := range warnings {
			log.WithField("page", page).Warn(warn.Error())
		}

		sess, err = e.publish(w.id, tick(page, total, asm, warnings))
		if err != nil {
			return
		}
	}

	if halted := e.checkpoint(w); halted {
		return
	}

	if acquisitionFailures == total {
		e.fail(w.id, fmt.Errorf("no text could be acquired from any of %d pages", total))
		return
	}

	path, err := export.Write(e.logger, e.cfg.WorkDir, "output_"+w.id, sess.Format, asm.Dataset())
	if err != nil {
		e.fail(w.id, err)
		return
	}

	if err := e.complete(w, path); err != nil {
		return
	}

	log.WithFields(logrus.Fields{
		"rows":   asm.RowCount(),
		"output": path,
	}).Info("Session completed")
}

// complete publishes the completed terminal state. A pause that lands after
// the final page boundary arrives too late to stop the export, so the worker
// parks here and finishes on resume; a cancel discards the artifact.
func (e *Engine) complete(w *worker, path string) error {
	for {
		_, err := e.publish(w.id, func(s *session.Session) error {
			switch s.Status {
			case session.StatusProcessing:
				s.Status = session.StatusCompleted
				s.Progress = 100
				s.OutputRef = path
				return nil
			case session.StatusPaused:
				return errParked
			default:
				return errHalt
			}
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, errParked) {
			os.Remove(path)
			return err
		}
		if halted := e.checkpoint(w); halted {
			os.Remove(path)
			return errHalt
		}
	}
}

// checkpoint consumes a pending control signal at a page boundary. It
// returns true when the loop must exit. A pause parks the goroutine here
// until a resume or cancel arrives, so the worker survives the pause
// instead of being respawned.
func (e *Engine) checkpoint(w *worker) bool {
	switch w.slot.take() {
	case sigCancel:
		return true
	case sigPause:
		for {
			w.slot.wait()
			switch w.slot.take() {
			case sigCancel:
				return true
			case sigResume:
				return false
			}
			// Stale wakeup from an already-consumed signal.
		}
	default:
		// A resume that raced an earlier pause is a no-op.
		return false
	}
}

// tick builds the snapshot mutation for one completed page. Ticks apply
// while the session is processing or paused (a pause flips the status
// before the in-flight page lands) and never touch a terminal state.
func tick(page, total int, asm *assemble.Assembler, warnings []error) func(*session.Session) error {
	return func(s *session.Session) error {
		switch s.Status {
		case session.StatusProcessing, session.StatusPaused:
		default:
			return errHalt
		}
		s.CurrentPage = page
		s.Progress = progressOf(page, total)
		for _, warn := range warnings {
			s.Warnings = append(s.Warnings, warn.Error())
		}
		s.Preview = asm.Preview()
		s.FirstPagePreview = asm.FirstPagePreview()
		return nil
	}
}

func progressOf(page, total int) int {
	if total <= 0 {
		return 0
	}
	p := page * 100 / total
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	return p
}

// publish applies mutate to the current stored session under the engine
// lock and stores the result as one whole-value replacement.
func (e *Engine) publish(id string, mutate func(*session.Session) error) (session.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.store.Get(id)
	if err != nil {
		return session.Session{}, err
	}
	if err := mutate(&sess); err != nil {
		return session.Session{}, err
	}
	if err := e.store.Put(sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

// fail moves a session to the error terminal state unless it already
// reached a terminal state by other means.
func (e *Engine) fail(id string, cause error) {
	e.logger.WithField("session_id", id).WithError(cause).Error("Session failed")
	_, err := e.publish(id, func(s *session.Session) error {
		if !s.Status.CanTransition(session.StatusError) {
			return errHalt
		}
		s.Status = session.StatusError
		s.ErrorDetail = cause.Error()
		return nil
	})
	if err != nil && !errors.Is(err, errHalt) {
		e.logger.WithField("session_id", id).WithError(err).Error("Failed to record session error")
	}
}
