// Package progress provides a unified interface for progress reporting
// across CLI (spinner/progress bars) and GUI (event bus) modes.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/rescale/appendix-client/internal/constants"
	"github.com/rescale/appendix-client/internal/events"
)

// Reporter is the interface for reporting progress in both CLI and GUI modes.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// CLIProgress is a byte progress bar for uploads of known size.
type CLIProgress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a progress bar writer; nil means stderr.
func NewCLIProgress(w io.Writer) *CLIProgress {
	if w == nil {
		w = os.Stderr
	}
	if f, ok := w.(*os.File); ok {
		enableANSI(f)
	}
	return &CLIProgress{w: w}
}

// Start initializes the progress bar with total size and description.
func (p *CLIProgress) Start(total int64, description string) {
	w := p.w
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(constants.ProgressUpdateInterval),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update updates the progress bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(p.w, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// Spinner is an indeterminate busy indicator that also counts bytes.
// It keeps animating on its own while the server generates the document,
// when no bytes are flowing.
type Spinner struct {
	w io.Writer

	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner writing to w; nil means stderr.
func NewSpinner(w io.Writer) *Spinner {
	if w == nil {
		w = os.Stderr
	}
	if f, ok := w.(*os.File); ok {
		enableANSI(f)
	}
	return &Spinner{w: w}
}

// Start shows the spinner. total is ignored.
func (s *Spinner) Start(_ int64, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bar != nil {
		s.bar.Describe(description)
		return
	}

	s.bar = progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(s.w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(constants.ProgressUpdateInterval),
		progressbar.OptionClearOnFinish(),
	)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.animate(s.bar, s.stop, s.done)
}

func (s *Spinner) animate(bar *progressbar.ProgressBar, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(constants.ProgressUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = bar.Add(0)
		}
	}
}

// Update sets the byte count shown next to the spinner.
func (s *Spinner) Update(current int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bar != nil {
		_ = s.bar.Set64(current)
	}
}

// Finish stops and clears the spinner. Safe to call when not started.
func (s *Spinner) Finish() {
	s.mu.Lock()
	bar, stop, done := s.bar, s.stop, s.done
	s.bar, s.stop, s.done = nil, nil, nil
	s.mu.Unlock()

	if bar == nil {
		return
	}
	close(stop)
	<-done
	_ = bar.Finish()
}

// Active reports whether the spinner is showing.
func (s *Spinner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bar != nil
}

// Error stops the spinner and prints err.
func (s *Spinner) Error(err error) {
	s.Finish()
	if err != nil {
		fmt.Fprintf(s.w, "Error: %v\n", err)
	}
}

// SetDescription updates the text next to the spinner.
func (s *Spinner) SetDescription(desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bar != nil {
		s.bar.Describe(desc)
	}
}

// EventProgress publishes progress on the event bus for the GUI.
type EventProgress struct {
	eventBus *events.EventBus
	stage    string
	total    int64
}

// NewEventProgress creates a bus-backed reporter.
func NewEventProgress(eventBus *events.EventBus) *EventProgress {
	return &EventProgress{eventBus: eventBus}
}

func (p *EventProgress) publish(current int64) {
	if p.eventBus == nil {
		return
	}
	p.eventBus.Publish(&events.ProgressEvent{
		BaseEvent:    events.BaseEvent{EventType: events.EventProgress, Time: time.Now()},
		Stage:        p.stage,
		BytesCurrent: current,
		BytesTotal:   p.total,
	})
}

// Start publishes a zero-progress event.
func (p *EventProgress) Start(total int64, description string) {
	p.total = total
	p.stage = description
	p.publish(0)
}

// Update publishes the current byte count.
func (p *EventProgress) Update(current int64) {
	p.publish(current)
}

// Finish publishes completion.
func (p *EventProgress) Finish() {
	p.publish(p.total)
}

// Error publishes a log event.
func (p *EventProgress) Error(err error) {
	if err != nil && p.eventBus != nil {
		p.eventBus.PublishLog(events.ErrorLevel, "upload failed", err)
	}
}

// SetDescription changes the stage carried by later events.
func (p *EventProgress) SetDescription(desc string) {
	p.stage = desc
}

// NoOpProgress is a progress reporter that does nothing.
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64)                   {}
func (p *NoOpProgress) Finish()                                {}
func (p *NoOpProgress) Error(err error)                        {}
func (p *NoOpProgress) SetDescription(desc string)             {}

// ProgressReader wraps an io.Reader to report progress.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	total    int64
	current  int64
}

// NewProgressReader creates a new progress-reporting reader.
func NewProgressReader(reader io.Reader, total int64, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   reader,
		reporter: reporter,
		total:    total,
	}
}

// Read implements io.Reader interface with progress reporting.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.current += int64(n)
		pr.reporter.Update(pr.current)
	}
	return n, err
}

// Current returns the bytes read so far.
func (pr *ProgressReader) Current() int64 {
	return pr.current
}
