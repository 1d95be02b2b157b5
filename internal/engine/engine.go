package engine

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Asanta4/pdf2xls/internal/config"
	"github.com/Asanta4/pdf2xls/internal/extract"
	"github.com/Asanta4/pdf2xls/internal/session"
)

// Engine drives conversion sessions. Each started session gets its own
// worker goroutine; all observable state lives in the session store and
// is published as whole-session snapshots, so readers never see a
// half-updated record.
type Engine struct {
	cfg    config.Config
	store  *session.Store
	open   extract.Opener
	logger *logrus.Logger

	mu      sync.Mutex
	workers map[string]*worker
}

type worker struct {
	id   string
	slot *controlSlot
	done chan struct{}
}

// New returns an Engine backed by the given store. open resolves a
// session's input reference to a page source.
func New(cfg config.Config, store *session.Store, open extract.Opener, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		cfg:     cfg,
		store:   store,
		open:    open,
		logger:  logger,
		workers: make(map[string]*worker),
	}
}

// CreateSession registers a new pending session for the given input
// reference.
func (e *Engine) CreateSession(inputRef string) (session.Session, error) {
	sess := session.New(inputRef)
	if err := e.store.Put(sess); err != nil {
		return session.Session{}, err
	}
	e.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"input":      inputRef,
	}).Info("Session created")
	return sess, nil
}

// Start begins processing a pending session toward the given output
// format. Processing runs on a background goroutine; Start returns as
// soon as the session has entered the analyzing state.
func (e *Engine) Start(id string, format session.Format) (session.Session, error) {
	if !format.Valid() {
		return session.Session{}, fmt.Errorf("unsupported output format %q", format)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.store.Get(id)
	if err != nil {
		return session.Session{}, err
	}
	if sess.Status != session.StatusPending {
		return session.Session{}, &session.InvalidStateError{Op: "start", Status: sess.Status}
	}

	sess.Status = session.StatusAnalyzing
	sess.Format = format
	if err := e.store.Put(sess); err != nil {
		return session.Session{}, err
	}

	w := &worker{id: id, slot: newControlSlot(), done: make(chan struct{})}
	e.workers[id] = w
	go e.run(w)
	return sess, nil
}

// Pause suspends a processing session. The status flips to paused
// immediately; the worker finishes its in-flight page and then parks at
// the next page boundary.
func (e *Engine) Pause(id string) (session.Session, error) {
	return e.control(id, "pause", session.StatusProcessing, session.StatusPaused, sigPause)
}

// Resume continues a paused session from the page after the last one
// it completed.
func (e *Engine) Resume(id string) (session.Session, error) {
	return e.control(id, "resume", session.StatusPaused, session.StatusProcessing, sigResume)
}

func (e *Engine) control(id, op string, from, to session.Status, sig signal) (session.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.store.Get(id)
	if err != nil {
		return session.Session{}, err
	}
	if sess.Status != from {
		return session.Session{}, &session.InvalidStateError{Op: op, Status: sess.Status}
	}
	w, ok := e.workers[id]
	if !ok {
		// A record restored from a previous process has no worker to
		// signal; flipping its status would strand it.
		return session.Session{}, &session.OrphanedError{ID: id, Status: sess.Status}
	}
	sess.Status = to
	if err := e.store.Put(sess); err != nil {
		return session.Session{}, err
	}
	w.slot.set(sig)
	return sess, nil
}

// Cancel terminates a session permanently. Partial output is discarded;
// a cancelled session cannot be restarted.
func (e *Engine) Cancel(id string) (session.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.store.Get(id)
	if err != nil {
		return session.Session{}, err
	}
	if !sess.Status.CanTransition(session.StatusCancelled) {
		return session.Session{}, &session.InvalidStateError{Op: "cancel", Status: sess.Status}
	}

	sess.Status = session.StatusCancelled
	if sess.OutputRef != "" {
		os.Remove(sess.OutputRef)
		sess.OutputRef = ""
	}
	if err := e.store.Put(sess); err != nil {
		return session.Session{}, err
	}
	if w, ok := e.workers[id]; ok {
		w.slot.set(sigCancel)
	}
	e.logger.WithField("session_id", id).Info("Session cancelled")
	return sess, nil
}

// Progress returns a snapshot of the session's current state.
func (e *Engine) Progress(id string) (session.Session, error) {
	return e.store.Get(id)
}

// Preview returns the session's current preview window.
func (e *Engine) Preview(id string) (session.PreviewData, error) {
	sess, err := e.store.Get(id)
	if err != nil {
		return session.PreviewData{}, err
	}
	if sess.Preview == nil {
		return session.PreviewData{}, &session.InvalidStateError{Op: "preview", Status: sess.Status}
	}
	return *sess.Preview.Clone(), nil
}

// ResetPreview restores the preview window to the first rows seen on
// page one, regardless of how far processing has advanced since.
func (e *Engine) ResetPreview(id string) (session.PreviewData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.store.Get(id)
	if err != nil {
		return session.PreviewData{}, err
	}
	if sess.FirstPagePreview == nil {
		return session.PreviewData{}, &session.InvalidStateError{Op: "reset preview", Status: sess.Status}
	}
	sess.Preview = sess.FirstPagePreview.Clone()
	if err := e.store.Put(sess); err != nil {
		return session.PreviewData{}, err
	}
	return *sess.Preview.Clone(), nil
}

// Output opens the finished artifact of a completed session. The caller
// owns the returned reader.
func (e *Engine) Output(id string) (io.ReadCloser, session.Session, error) {
	sess, err := e.store.Get(id)
	if err != nil {
		return nil, session.Session{}, err
	}
	if sess.Status != session.StatusCompleted {
		return nil, session.Session{}, &session.InvalidStateError{Op: "download", Status: sess.Status}
	}
	f, err := os.Open(sess.OutputRef)
	if err != nil {
		return nil, session.Session{}, fmt.Errorf("opening output artifact: %w", err)
	}
	return f, sess, nil
}

// Sessions lists all known sessions, newest first.
func (e *Engine) Sessions() []session.Session {
	return e.store.List()
}

// Wait blocks until the session's worker goroutine has exited. Sessions
// that never started return immediately.
func (e *Engine) Wait(id string) {
	e.mu.Lock()
	w, ok := e.workers[id]
	e.mu.Unlock()
	if ok {
		<-w.done
	}
}
