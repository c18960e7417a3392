package submit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rescale/appendix-client/internal/constants"
	"github.com/rescale/appendix-client/internal/events"
	"github.com/rescale/appendix-client/internal/selection"
)

type fakeControl struct {
	mu      sync.Mutex
	label   string
	busy    string
	tone    Tone
	enabled bool
}

func newFakeControl() *fakeControl {
	return &fakeControl{label: constants.SubmitLabel, enabled: true}
}

func (c *fakeControl) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label
}

func (c *fakeControl) SetLabel(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.label = label
	c.busy = ""
}

func (c *fakeControl) SetBusy(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = text
	c.label = text
}

func (c *fakeControl) SetTone(tone Tone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tone = tone
}

func (c *fakeControl) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

func (c *fakeControl) snapshot() (label, busy string, tone Tone, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label, c.busy, c.tone, c.enabled
}

type staticFiles []selection.File

func (s staticFiles) Files() []selection.File { return s }

type transportFunc func(ctx context.Context, req *Request) (*http.Response, error)

func (f transportFunc) Upload(ctx context.Context, req *Request) (*http.Response, error) {
	return f(ctx, req)
}

type memoryDownloader struct {
	mu      sync.Mutex
	saved   map[string][]byte
	failErr error
}

func (d *memoryDownloader) Save(_ context.Context, filename string, content []byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failErr != nil {
		return "", d.failErr
	}
	if d.saved == nil {
		d.saved = make(map[string][]byte)
	}
	d.saved[filename] = content
	return "/downloads/" + filename, nil
}

// manualClock hands out timers that only fire when the test says so.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{delay: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *manualClock) timer(i int) *manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[i]
}

func respond(status int, header http.Header, body string) transportFunc {
	return func(context.Context, *Request) (*http.Response, error) {
		if header == nil {
			header = http.Header{}
		}
		return &http.Response{
			StatusCode: status,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

type harness struct {
	ctrl     *Controller
	control  *fakeControl
	clock    *manualClock
	download *memoryDownloader
	settled  chan Outcome
}

func newHarness(t *testing.T, transport Transport, files []selection.File) *harness {
	t.Helper()
	h := &harness{
		control:  newFakeControl(),
		clock:    &manualClock{},
		download: &memoryDownloader{},
		settled:  make(chan Outcome, 4),
	}
	ctrl, err := NewController(Options{
		Files:      staticFiles(files),
		Transport:  transport,
		Downloader: h.download,
		Control:    h.control,
		AfterFunc:  h.clock.AfterFunc,
		OnSettled:  func(o Outcome) { h.settled <- o },
	})
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	h.ctrl = ctrl
	return h
}

func (h *harness) waitSettled(t *testing.T) Outcome {
	t.Helper()
	select {
	case o := <-h.settled:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for submission to settle")
		return nil
	}
}

func twoImages() []selection.File {
	return []selection.File{
		{Name: "a.png", Content: []byte("png-a")},
		{Name: "b.jpg", Content: []byte("jpg-b")},
	}
}

func TestSubmitSuccessSavesDocumentAndReverts(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Disposition", `attachment; filename="report.docx"`)
	h := newHarness(t, respond(http.StatusOK, header, "DOCX-BYTES"), twoImages())

	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	outcome := h.waitSettled(t)

	success, ok := outcome.(Success)
	if !ok {
		t.Fatalf("expected Success, got %#v", outcome)
	}
	if success.Filename != "report.docx" {
		t.Errorf("filename = %q, want report.docx", success.Filename)
	}
	if got := string(h.download.saved["report.docx"]); got != "DOCX-BYTES" {
		t.Errorf("saved content = %q", got)
	}

	label, _, tone, enabled := h.control.snapshot()
	if label != constants.SuccessLabel || tone != ToneSuccess || enabled {
		t.Errorf("after success: label=%q tone=%v enabled=%v", label, tone, enabled)
	}
	if h.ctrl.Phase() != PhaseSucceeded {
		t.Errorf("phase = %v, want succeeded", h.ctrl.Phase())
	}

	if h.clock.count() != 1 {
		t.Fatalf("expected exactly one scheduled reversion, got %d", h.clock.count())
	}
	timer := h.clock.timer(0)
	if timer.delay != constants.RevertDelay {
		t.Errorf("revert delay = %v, want %v", timer.delay, constants.RevertDelay)
	}

	timer.fn()

	label, _, tone, enabled = h.control.snapshot()
	if label != constants.SubmitLabel || tone != ToneNone || !enabled {
		t.Errorf("after revert: label=%q tone=%v enabled=%v", label, tone, enabled)
	}
	if h.ctrl.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle", h.ctrl.Phase())
	}
}

func TestSubmitWithoutContentDispositionUsesDefaultName(t *testing.T) {
	h := newHarness(t, respond(http.StatusOK, nil, "x"), twoImages())

	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	success, ok := h.waitSettled(t).(Success)
	if !ok || success.Filename != constants.DefaultDownloadFilename {
		t.Errorf("expected default filename, got %#v", success)
	}
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name      string
		transport Transport
		saveErr   error
		kind      FailureKind
		message   string
	}{
		{
			name:      "server detail",
			transport: respond(http.StatusUnprocessableEntity, nil, `{"detail":"bad width"}`),
			kind:      ServerFailure,
			message:   "bad width",
		},
		{
			name:      "server without json",
			transport: respond(http.StatusInternalServerError, nil, "<html>oops</html>"),
			kind:      ServerFailure,
			message:   constants.GenericUploadError,
		},
		{
			name: "transport error",
			transport: transportFunc(func(context.Context, *Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			}),
			kind:    TransportFailure,
			message: "connection refused",
		},
		{
			name:      "save error",
			transport: respond(http.StatusOK, nil, "doc"),
			saveErr:   errors.New("disk full"),
			kind:      DownloadFailure,
			message:   "disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.transport, twoImages())
			h.download.failErr = tt.saveErr

			if err := h.ctrl.Submit(context.Background()); err != nil {
				t.Fatal(err)
			}
			failure, ok := h.waitSettled(t).(Failure)
			if !ok {
				t.Fatal("expected Failure outcome")
			}
			if failure.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", failure.Kind, tt.kind)
			}
			if failure.Message != tt.message {
				t.Errorf("message = %q, want %q", failure.Message, tt.message)
			}

			label, _, tone, enabled := h.control.snapshot()
			if label != constants.ErrorLabel || tone != ToneError || enabled {
				t.Errorf("after failure: label=%q tone=%v enabled=%v", label, tone, enabled)
			}
			if h.ctrl.Phase() != PhaseFailed {
				t.Errorf("phase = %v, want failed", h.ctrl.Phase())
			}

			h.clock.timer(0).fn()
			if _, _, _, enabled := h.control.snapshot(); !enabled || h.ctrl.Phase() != PhaseIdle {
				t.Error("failure should revert to an enabled idle control")
			}
		})
	}
}

func TestPendingDisablesControlAndRejectsResubmit(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	transport := transportFunc(func(ctx context.Context, req *Request) (*http.Response, error) {
		close(started)
		<-release
		return respond(http.StatusOK, nil, "doc")(ctx, req)
	})
	h := newHarness(t, transport, twoImages())

	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-started

	label, busy, _, enabled := h.control.snapshot()
	if enabled {
		t.Error("control must be disabled while pending")
	}
	if busy != constants.BusyLabel || label != constants.BusyLabel {
		t.Errorf("busy text = %q label = %q", busy, label)
	}
	if h.ctrl.Phase() != PhasePending {
		t.Errorf("phase = %v, want pending", h.ctrl.Phase())
	}

	if err := h.ctrl.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Submit = %v, want ErrBusy", err)
	}

	close(release)
	h.waitSettled(t)

	if err := h.ctrl.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Submit while succeeded = %v, want ErrBusy", err)
	}
}

func TestStaleReversionIsIgnored(t *testing.T) {
	h := newHarness(t, respond(http.StatusOK, nil, "doc"), twoImages())
	ctx := context.Background()

	if err := h.ctrl.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	h.waitSettled(t)
	first := h.clock.timer(0)
	first.fn()

	if err := h.ctrl.Submit(ctx); err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}
	h.waitSettled(t)

	// The first cycle's callback runs late, after the second cycle settled
	first.fn()
	if h.ctrl.Phase() != PhaseSucceeded {
		t.Fatalf("stale reversion changed phase to %v", h.ctrl.Phase())
	}
	if _, _, _, enabled := h.control.snapshot(); enabled {
		t.Fatal("stale reversion re-enabled the control")
	}

	if h.clock.count() != 2 {
		t.Fatalf("expected 2 timers, got %d", h.clock.count())
	}
	h.clock.timer(1).fn()
	if h.ctrl.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle", h.ctrl.Phase())
	}
	if label, _, _, _ := h.control.snapshot(); label != constants.SubmitLabel {
		t.Errorf("label = %q, want original", label)
	}
}

func TestRevertRestoresCapturedLabel(t *testing.T) {
	h := newHarness(t, respond(http.StatusOK, nil, "doc"), twoImages())
	h.control.SetLabel("Build my appendix")

	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.waitSettled(t)
	h.clock.timer(0).fn()

	if label, busy, _, _ := h.control.snapshot(); label != "Build my appendix" || busy != "" {
		t.Errorf("label = %q busy = %q after revert", label, busy)
	}
}

func TestSubmitSendsFilesAndFields(t *testing.T) {
	var captured *Request
	transport := transportFunc(func(ctx context.Context, req *Request) (*http.Response, error) {
		captured = req
		return respond(http.StatusOK, nil, "doc")(ctx, req)
	})
	h := newHarness(t, transport, twoImages())

	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.waitSettled(t)

	if captured == nil {
		t.Fatal("transport not called")
	}
	if captured.ID == "" {
		t.Error("request should carry a submission id")
	}

	_, params, err := mime.ParseMediaType(captured.ContentType)
	if err != nil {
		t.Fatalf("bad content type %q: %v", captured.ContentType, err)
	}
	reader := multipart.NewReader(bytes.NewReader(captured.Body), params["boundary"])
	form, err := reader.ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm failed: %v", err)
	}
	if n := len(form.File[constants.FieldFiles]); n != 2 {
		t.Errorf("files parts = %d, want 2", n)
	}
	if got := form.Value[constants.FieldImageWidth]; len(got) != 1 || got[0] != "15" {
		t.Errorf("image_width = %v, want [15]", got)
	}
}

func TestSubmitPublishesPhaseChanges(t *testing.T) {
	bus := events.NewEventBus(16)
	defer bus.Close()
	ch := bus.Subscribe(events.EventPhaseChanged)

	control := newFakeControl()
	clock := &manualClock{}
	settled := make(chan Outcome, 1)
	ctrl, err := NewController(Options{
		Files:      staticFiles(twoImages()),
		Transport:  respond(http.StatusOK, nil, "doc"),
		Downloader: &memoryDownloader{},
		Control:    control,
		EventBus:   bus,
		AfterFunc:  clock.AfterFunc,
		OnSettled:  func(o Outcome) { settled <- o },
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := ctrl.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-settled
	clock.timer(0).fn()

	want := []string{"pending", "succeeded", "idle"}
	for _, phase := range want {
		select {
		case ev := <-ch:
			changed := ev.(*events.PhaseChangedEvent)
			if changed.NewPhase != phase {
				t.Errorf("NewPhase = %q, want %q", changed.NewPhase, phase)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for %s phase event", phase)
		}
	}
}

func TestNewControllerRequiresCollaborators(t *testing.T) {
	base := Options{
		Files:      staticFiles(nil),
		Transport:  respond(http.StatusOK, nil, ""),
		Downloader: &memoryDownloader{},
		Control:    newFakeControl(),
	}

	if _, err := NewController(base); err != nil {
		t.Fatalf("complete options rejected: %v", err)
	}

	missing := []func(o *Options){
		func(o *Options) { o.Files = nil },
		func(o *Options) { o.Transport = nil },
		func(o *Options) { o.Downloader = nil },
		func(o *Options) { o.Control = nil },
	}
	for i, strip := range missing {
		opts := base
		strip(&opts)
		if _, err := NewController(opts); err == nil {
			t.Errorf("case %d: expected error for missing collaborator", i)
		}
	}
}
