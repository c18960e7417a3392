// Package submit drives one appendix submission from click to download.
//
// The controller moves through Idle → Pending → Succeeded|Failed → Idle.
// Handlers run on the UI goroutine via a uiloop.Dispatcher; the network call,
// body read and save run on a worker goroutine and post their outcome back.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rescale/appendix-client/internal/constants"
	"github.com/rescale/appendix-client/internal/events"
	"github.com/rescale/appendix-client/internal/logging"
	"github.com/rescale/appendix-client/internal/selection"
	"github.com/rescale/appendix-client/internal/uiloop"
)

// ErrBusy is returned by Submit outside PhaseIdle.
var ErrBusy = errors.New("a submission is already in progress")

// Tone is the status coloring of the submit control.
type Tone int

const (
	ToneNone Tone = iota
	ToneSuccess
	ToneError
)

// Control is the submit button as seen by the controller.
type Control interface {
	Label() string
	// SetLabel replaces the visible content, removing any busy indicator.
	SetLabel(label string)
	// SetBusy shows a busy indicator followed by text.
	SetBusy(text string)
	SetTone(tone Tone)
	SetEnabled(enabled bool)
}

// FileSource exposes the canonical file set read-only.
type FileSource interface {
	Files() []selection.File
}

// Transport performs the single upload POST.
type Transport interface {
	Upload(ctx context.Context, req *Request) (*http.Response, error)
}

// Downloader stores a received document under filename and reports where
// it ended up.
type Downloader interface {
	Save(ctx context.Context, filename string, content []byte) (string, error)
}

// Timer is a cancellable deferred task.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn after d. It matches time.AfterFunc.
type AfterFunc func(d time.Duration, fn func()) Timer

func realAfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Options wires a Controller to its collaborators.
type Options struct {
	Files      FileSource
	Form       func() Form // read once per submission; nil means DefaultForm
	Transport  Transport
	Downloader Downloader
	Control    Control
	Dispatcher uiloop.Dispatcher // nil means uiloop.Inline
	EventBus   *events.EventBus
	Logger     *logging.Logger

	// RevertDelay defaults to constants.RevertDelay.
	RevertDelay time.Duration
	// AfterFunc defaults to time.AfterFunc.
	AfterFunc AfterFunc
	// OnSettled, when set, runs on the UI goroutine after every settlement.
	OnSettled func(Outcome)
}

// Controller owns the submission lifecycle.
type Controller struct {
	files      FileSource
	form       func() Form
	transport  Transport
	downloader Downloader
	control    Control
	dispatch   uiloop.Dispatcher
	eventBus   *events.EventBus
	logger     *logging.Logger
	delay      time.Duration
	afterFunc  AfterFunc
	onSettled  func(Outcome)

	phase atomic.Int32

	// UI goroutine only
	submissionID  string
	originalLabel string
	generation    uint64
	revertTimer   Timer
	lastOutcome   Outcome
}

// NewController validates opts and returns an idle controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Files == nil {
		return nil, errors.New("submit: file source is required")
	}
	if opts.Transport == nil {
		return nil, errors.New("submit: transport is required")
	}
	if opts.Downloader == nil {
		return nil, errors.New("submit: downloader is required")
	}
	if opts.Control == nil {
		return nil, errors.New("submit: control is required")
	}

	c := &Controller{
		files:      opts.Files,
		form:       opts.Form,
		transport:  opts.Transport,
		downloader: opts.Downloader,
		control:    opts.Control,
		dispatch:   opts.Dispatcher,
		eventBus:   opts.EventBus,
		logger:     opts.Logger,
		delay:      opts.RevertDelay,
		afterFunc:  opts.AfterFunc,
		onSettled:  opts.OnSettled,
	}
	if c.form == nil {
		c.form = DefaultForm
	}
	if c.dispatch == nil {
		c.dispatch = uiloop.Inline
	}
	if c.logger == nil {
		c.logger = logging.NewNopLogger()
	}
	if c.delay <= 0 {
		c.delay = constants.RevertDelay
	}
	if c.afterFunc == nil {
		c.afterFunc = realAfterFunc
	}
	return c, nil
}

// Phase returns the current phase. Safe from any goroutine.
func (c *Controller) Phase() Phase {
	return Phase(c.phase.Load())
}

// LastOutcome returns the most recent settlement, or nil. UI goroutine only.
func (c *Controller) LastOutcome() Outcome {
	return c.lastOutcome
}

// Submit starts a submission. It must run on the UI goroutine and returns
// ErrBusy unless the controller is idle. The upload continues in the
// background; its settlement is dispatched back to the UI goroutine.
func (c *Controller) Submit(ctx context.Context) error {
	if c.Phase() != PhaseIdle {
		return ErrBusy
	}

	// A new cycle invalidates any reversion still queued from the last one
	c.cancelRevert()
	c.generation++

	c.originalLabel = c.control.Label()
	c.control.SetEnabled(false)
	c.control.SetBusy(constants.BusyLabel)

	c.submissionID = uuid.NewString()
	c.setPhase(PhasePending, "")

	files := c.files.Files()
	form := c.form()

	req, err := BuildRequest(files, form.Fields())
	if err != nil {
		c.settle(c.submissionID, Failure{Kind: TransportFailure, Message: err.Error()})
		return nil
	}
	req.ID = c.submissionID

	c.logger.Info().
		Str("submission", req.ID).
		Int("files", req.FileCount).
		Str("width", FormatWidth(form.ImageWidth)).
		Msg("Submitting images for appendix generation")

	go c.perform(ctx, req)
	return nil
}

// Shutdown cancels a pending reversion. UI goroutine only.
func (c *Controller) Shutdown() {
	c.cancelRevert()
}

func (c *Controller) perform(ctx context.Context, req *Request) {
	outcome := c.execute(ctx, req)
	c.dispatch.Do(func() {
		c.settle(req.ID, outcome)
	})
}

// execute is the only code that blocks. It never touches controller state.
func (c *Controller) execute(ctx context.Context, req *Request) Outcome {
	resp, err := c.transport.Upload(ctx, req)
	if err != nil {
		return Failure{Kind: TransportFailure, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			body = nil
		}
		return Failure{Kind: ServerFailure, Status: resp.StatusCode, Message: FailureMessage(body)}
	}

	filename := ResolveFilename(resp.Header.Get("Content-Disposition"))

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failure{Kind: TransportFailure, Message: fmt.Sprintf("failed to read document: %v", err)}
	}

	location, err := c.downloader.Save(ctx, filename, content)
	if err != nil {
		return Failure{Kind: DownloadFailure, Message: err.Error()}
	}

	return Success{Filename: filename, Location: location, Size: int64(len(content))}
}

func (c *Controller) settle(id string, outcome Outcome) {
	if id != c.submissionID || c.Phase() != PhasePending {
		return
	}
	c.lastOutcome = outcome

	switch o := outcome.(type) {
	case Success:
		c.control.SetLabel(constants.SuccessLabel)
		c.control.SetTone(ToneSuccess)
		c.setPhase(PhaseSucceeded, "")
		c.logger.Info().
			Str("submission", id).
			Str("file", o.Filename).
			Str("location", o.Location).
			Int64("bytes", o.Size).
			Msg("Document saved")
		if c.eventBus != nil {
			c.eventBus.Publish(&events.DocumentSavedEvent{
				BaseEvent:    events.BaseEvent{EventType: events.EventDocumentSaved, Time: time.Now()},
				SubmissionID: id,
				Filename:     o.Filename,
				Location:     o.Location,
				Size:         o.Size,
			})
		}
	case Failure:
		c.control.SetLabel(constants.ErrorLabel)
		c.control.SetTone(ToneError)
		c.setPhase(PhaseFailed, o.Message)
		c.logger.Error().
			Str("submission", id).
			Str("kind", o.Kind.String()).
			Int("status", o.Status).
			Msg(o.Message)
	}

	c.scheduleRevert()

	if c.onSettled != nil {
		c.onSettled(outcome)
	}
}

// scheduleRevert arms the single reversion for the current generation.
// Any earlier timer is stopped, and a stale callback that already fired
// is ignored by the generation check in revert.
func (c *Controller) scheduleRevert() {
	c.cancelRevert()
	c.generation++
	gen := c.generation
	c.revertTimer = c.afterFunc(c.delay, func() {
		c.dispatch.Do(func() { c.revert(gen) })
	})
}

func (c *Controller) revert(gen uint64) {
	if gen != c.generation || !c.Phase().Settled() {
		return
	}
	c.revertTimer = nil

	c.control.SetLabel(c.originalLabel)
	c.control.SetTone(ToneNone)
	c.control.SetEnabled(true)
	c.setPhase(PhaseIdle, "")
}

func (c *Controller) cancelRevert() {
	if c.revertTimer != nil {
		c.revertTimer.Stop()
		c.revertTimer = nil
	}
}

func (c *Controller) setPhase(next Phase, message string) {
	prev := Phase(c.phase.Swap(int32(next)))
	c.logger.Debug().
		Str("submission", c.submissionID).
		Str("from", prev.String()).
		Str("to", next.String()).
		Msg("phase change")
	if c.eventBus != nil {
		c.eventBus.PublishPhaseChange(c.submissionID, prev.String(), next.String(), message)
	}
}
