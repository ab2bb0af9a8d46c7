// Package submission turns an open claim form into a persisted claim.
//
// A Workflow is owned by one form session. It is Idle until Submit is
// called, Submitting while the claim store write is in flight, and back to
// Idle afterwards whatever the outcome; there is no failed state, the user
// simply retries. Notifications about stored claims are sent in the
// background once the workflow is Idle again.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"reimburse/internal/core"
	"reimburse/internal/draft"
)

const (
	Idle State = iota
	Submitting
)

// notifyTimeout bounds one background notification.
const notifyTimeout = 10 * time.Second

// ErrSubmitInProgress is returned when Submit is called while a previous
// submit of the same form has not finished.
var ErrSubmitInProgress = errors.New("submission already in progress")

type (
	State int

	// Claims is the part of the claim store the workflow writes through.
	Claims interface {
		Add(ctx context.Context, fields core.ClaimFields) (core.Claim, error)
	}

	// Notifier is told about every successful submission. Errors are logged
	// and never fail the submit.
	Notifier interface {
		ClaimSubmitted(ctx context.Context, c core.Claim, attachments []core.Attachment) error
	}

	// Recorder receives outcome counts for metrics.
	Recorder interface {
		SubmitSucceeded()
		SubmitFailed(reason string)
	}

	// Form is the top-level input of the claim form.
	Form struct {
		Title  string `json:"title,omitempty"`
		Date   string `json:"date"`
		Type   string `json:"type"`
		Detail string `json:"detail"`
		Amount string `json:"amount,omitempty"`
	}

	// SubmissionError is the generic failure reported when the claim could
	// not be stored.
	SubmissionError struct {
		Err error
	}
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (e *SubmissionError) Error() string {
	return "failed to submit claim, please try again: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Validate requires date, type and detail. Every missing field is listed;
// an unknown type is reported as invalid. Amount is optional.
func (f Form) Validate() error {
	ve := &core.ValidationError{}
	if strings.TrimSpace(f.Date) == "" {
		ve.Missing = append(ve.Missing, "date")
	}
	if strings.TrimSpace(f.Type) == "" {
		ve.Missing = append(ve.Missing, "type")
	} else if !core.IsCategory(f.Type) {
		ve.Invalid = append(ve.Invalid, "type")
	}
	if strings.TrimSpace(f.Detail) == "" {
		ve.Missing = append(ve.Missing, "detail")
	}
	if len(ve.Missing) > 0 || len(ve.Invalid) > 0 {
		return ve
	}
	return nil
}

// Fields maps the form onto the claim store input. The title defaults to
// the category.
func (f Form) Fields() core.ClaimFields {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = f.Type
	}
	return core.ClaimFields{
		Title:  title,
		Amount: f.Amount,
		Date:   f.Date,
		Type:   f.Type,
		Detail: f.Detail,
		Status: core.StatusPending,
	}
}

type Workflow struct {
	claims   Claims
	draft    *draft.Assembler
	notifier Notifier
	recorder Recorder
	logger   *slog.Logger
	pending  *sync.WaitGroup

	mu    sync.Mutex
	state State
}

type Option func(*Workflow)

func WithNotifier(n Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(w *Workflow) { w.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// withPending makes the workflow count its notifications on a group shared
// with other workflows.
func withPending(wg *sync.WaitGroup) Option {
	return func(w *Workflow) { w.pending = wg }
}

// NewWorkflow binds a workflow to the draft of one form session. A nil draft
// gets a fresh one.
func NewWorkflow(claims Claims, d *draft.Assembler, opts ...Option) *Workflow {
	if d == nil {
		d = draft.New()
	}
	w := &Workflow{
		claims: claims,
		draft:   d,
		logger:  slog.Default(),
		pending: &sync.WaitGroup{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Draft returns the attachment list owned by this form.
func (w *Workflow) Draft() *draft.Assembler {
	return w.draft
}

// Submit validates the form and writes a new pending claim. On success the
// draft attachments are discarded; they are not stored with the claim. On a
// store failure the draft is kept so the user can retry.
func (w *Workflow) Submit(ctx context.Context, form Form) (core.Claim, error) {
	if err := form.Validate(); err != nil {
		w.record(false, "validation")
		return core.Claim{}, err
	}

	w.mu.Lock()
	if w.state == Submitting {
		w.mu.Unlock()
		return core.Claim{}, ErrSubmitInProgress
	}
	w.state = Submitting
	w.mu.Unlock()

	c, err := w.claims.Add(ctx, form.Fields())
	if err != nil {
		w.setIdle()
		w.logger.ErrorContext(ctx, "Claim submission failed", "type", form.Type, "error", err)
		w.record(false, "persistence")
		return core.Claim{}, &SubmissionError{Err: err}
	}

	attachments := w.draft.List()
	w.draft.Discard()
	w.setIdle()
	w.record(true, "")

	w.logger.InfoContext(ctx, "Claim submitted",
		"id", c.ID,
		"type", c.Type,
		"attachments_discarded", len(attachments))

	w.notify(ctx, c, attachments)
	return c, nil
}

func (w *Workflow) setIdle() {
	w.mu.Lock()
	w.state = Idle
	w.mu.Unlock()
}

// notify hands the stored claim to the notifier without holding up the
// caller. The request context may be gone by the time it runs, so only its
// values are kept.
func (w *Workflow) notify(ctx context.Context, c core.Claim, attachments []core.Attachment) {
	if w.notifier == nil {
		return
	}
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := w.notifier.ClaimSubmitted(nctx, c, attachments); err != nil {
			w.logger.WarnContext(nctx, "Failed to publish submission notification", "id", c.ID, "error", err)
		}
	}()
}

// Wait blocks until every notification started by Submit has returned.
func (w *Workflow) Wait() {
	w.pending.Wait()
}

func (w *Workflow) record(ok bool, reason string) {
	if w.recorder == nil {
		return
	}
	if ok {
		w.recorder.SubmitSucceeded()
		return
	}
	w.recorder.SubmitFailed(reason)
}
