package gui

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"

	"github.com/rescale/appendix-client/internal/config"
	"github.com/rescale/appendix-client/internal/constants"
	"github.com/rescale/appendix-client/internal/events"
	"github.com/rescale/appendix-client/internal/logging"
	"github.com/rescale/appendix-client/internal/selection"
	"github.com/rescale/appendix-client/internal/submit"
	"github.com/rescale/appendix-client/internal/uiloop"
)

type fakeTransport struct {
	mu       sync.Mutex
	requests []*submit.Request
	status   int
	header   http.Header
	body     string
	err      error
}

func (t *fakeTransport) Upload(ctx context.Context, req *submit.Request) (*http.Response, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	return &http.Response{
		StatusCode: t.status,
		Header:     t.header,
		Body:       io.NopCloser(strings.NewReader(t.body)),
	}, nil
}

func (t *fakeTransport) lastRequest() *submit.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return nil
	}
	return t.requests[len(t.requests)-1]
}

type fakeDownloader struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (d *fakeDownloader) Save(ctx context.Context, filename string, content []byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saved == nil {
		d.saved = make(map[string][]byte)
	}
	d.saved[filename] = content
	return "/out/" + filename, nil
}

func newTestForm(t *testing.T, transport submit.Transport, downloader submit.Downloader) (*appendixForm, *uiloop.Loop) {
	t.Helper()

	a := test.NewApp()
	t.Cleanup(a.Quit)

	loop := uiloop.New(16)
	loop.Start()
	t.Cleanup(loop.Stop)

	prefs := config.LoadPreferences(filepath.Join(t.TempDir(), "preferences.ini"))

	var (
		form *appendixForm
		err  error
	)
	loop.Call(func() {
		w := a.NewWindow("test")
		form, err = newAppendixForm(context.Background(), a, w, formDeps{
			Config:      config.NewConfig(),
			Preferences: prefs,
			Transport:   transport,
			Downloader:  downloader,
			Dispatcher:  loop,
			RevertDelay: 200 * time.Millisecond,
		})
		if err == nil {
			w.SetContent(form.Build())
		}
	})
	if err != nil {
		t.Fatalf("newAppendixForm() error = %v", err)
	}
	return form, loop
}

func waitForPhase(t *testing.T, form *appendixForm, want submit.Phase) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if form.controller.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("phase = %s, want %s", form.controller.Phase(), want)
}

func formFieldValues(t *testing.T, req *submit.Request) map[string]string {
	t.Helper()
	_, params, err := mime.ParseMediaType(req.ContentType)
	if err != nil {
		t.Fatalf("ParseMediaType() error = %v", err)
	}
	values := make(map[string]string)
	reader := multipart.NewReader(strings.NewReader(string(req.Body)), params["boundary"])
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("NextPart() error = %v", err)
		}
		if part.FileName() == "" {
			b, _ := io.ReadAll(part)
			values[part.FormName()] = string(b)
		}
	}
	return values
}

func TestAppendixFormSubmitFlow(t *testing.T) {
	transport := &fakeTransport{
		status: http.StatusOK,
		header: http.Header{"Content-Disposition": {`attachment; filename="appendix_2024.pdf"`}},
		body:   "PDF",
	}
	downloader := &fakeDownloader{}
	form, loop := newTestForm(t, transport, downloader)

	loop.Call(func() {
		form.applyPick([]selection.File{
			{Name: "a.png", Content: []byte("a")},
			{Name: "b.jpg", Content: []byte("b")},
		})
		form.widthSlider.SetValue(12.5)
		form.format.SetSelected("pdf")
	})

	loop.Call(func() {
		if got := form.view.count.Text; got != "2 images selected" {
			t.Errorf("count label = %q, want %q", got, "2 images selected")
		}
		if !form.view.reset.Visible() {
			t.Error("reset button should be visible")
		}
		if got := form.widthLabel.Text; got != "12.5 cm" {
			t.Errorf("width label = %q, want %q", got, "12.5 cm")
		}
		test.Tap(form.submit.button)
	})

	waitForPhase(t, form, submit.PhaseSucceeded)

	loop.Call(func() {
		if got := form.submit.button.Text; got != constants.SuccessLabel {
			t.Errorf("button text = %q, want %q", got, constants.SuccessLabel)
		}
		if form.submit.button.Importance != widget.SuccessImportance {
			t.Errorf("button importance = %v, want success", form.submit.button.Importance)
		}
		if !form.submit.button.Disabled() {
			t.Error("button should stay disabled until the reversion")
		}
		if got := form.status.Message(); got != "Saved /out/appendix_2024.pdf (3 B)" {
			t.Errorf("status = %q", got)
		}
	})

	req := transport.lastRequest()
	if req == nil || req.FileCount != 2 {
		t.Fatalf("request = %+v, want 2 files", req)
	}
	values := formFieldValues(t, req)
	if values[constants.FieldImageWidth] != "12.5" {
		t.Errorf("image_width = %q, want 12.5", values[constants.FieldImageWidth])
	}
	if values[constants.FieldOutputFormat] != "pdf" {
		t.Errorf("output_format = %q, want pdf", values[constants.FieldOutputFormat])
	}
	if string(downloader.saved["appendix_2024.pdf"]) != "PDF" {
		t.Errorf("saved = %v", downloader.saved)
	}

	waitForPhase(t, form, submit.PhaseIdle)

	loop.Call(func() {
		if got := form.submit.button.Text; got != constants.SubmitLabel {
			t.Errorf("button text after revert = %q, want %q", got, constants.SubmitLabel)
		}
		if form.submit.button.Disabled() {
			t.Error("button should be enabled after the reversion")
		}
		if form.submit.button.Importance != widget.HighImportance {
			t.Errorf("button importance after revert = %v, want high", form.submit.button.Importance)
		}
	})
}

func TestAppendixFormServerError(t *testing.T) {
	transport := &fakeTransport{
		status: http.StatusUnprocessableEntity,
		header: http.Header{"Content-Type": {"application/json"}},
		body:   `{"detail": "Image width out of range"}`,
	}
	form, loop := newTestForm(t, transport, &fakeDownloader{})

	loop.Call(func() {
		form.applyPick([]selection.File{{Name: "a.png", Content: []byte("a")}})
		test.Tap(form.submit.button)
	})

	waitForPhase(t, form, submit.PhaseFailed)

	loop.Call(func() {
		if got := form.submit.button.Text; got != constants.ErrorLabel {
			t.Errorf("button text = %q, want %q", got, constants.ErrorLabel)
		}
		if form.submit.button.Importance != widget.DangerImportance {
			t.Errorf("button importance = %v, want danger", form.submit.button.Importance)
		}
		if got := form.status.Message(); got != "Image width out of range" {
			t.Errorf("status = %q", got)
		}
		if form.status.Level() != StatusError {
			t.Errorf("status level = %v, want error", form.status.Level())
		}
	})
}

func TestAppendixFormResetClearsSelection(t *testing.T) {
	form, loop := newTestForm(t, &fakeTransport{status: http.StatusOK}, &fakeDownloader{})

	loop.Call(func() {
		form.applyPick([]selection.File{{Name: "a.png", Content: []byte("a")}})
		if got := form.view.count.Text; got != "1 image selected" {
			t.Errorf("count label = %q, want %q", got, "1 image selected")
		}
		test.Tap(form.view.reset)
	})

	loop.Call(func() {
		if form.manager.Count() != 0 {
			t.Errorf("Count() = %d, want 0", form.manager.Count())
		}
		if got := form.view.count.Text; got != "" {
			t.Errorf("count label = %q, want empty", got)
		}
		if form.view.reset.Visible() {
			t.Error("reset button should be hidden")
		}
	})
}

func TestAppendixFormHintNamesMultiImagePaths(t *testing.T) {
	form, loop := newTestForm(t, &fakeTransport{status: http.StatusOK}, &fakeDownloader{})

	loop.Call(func() {
		for _, want := range []string{"folders", "Choose Folder..."} {
			if !strings.Contains(form.hint.Text, want) {
				t.Errorf("hint %q should mention %q", form.hint.Text, want)
			}
		}
	})
}

// syncBuffer is a bytes sink safe for a logger on another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func useGUILogger(t *testing.T, w *syncBuffer) {
	t.Helper()
	prev := guiLogger
	guiLogger = logging.NewLoggerWithWriter("gui", w)
	t.Cleanup(func() { guiLogger = prev })
}

func TestMonitorThemesLogsChanges(t *testing.T) {
	out := &syncBuffer{}
	useGUILogger(t, out)

	bus := events.NewEventBus(4)
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	ui := &UI{eventBus: bus, ctx: ctx, cancel: cancel}

	done := make(chan struct{})
	ch := bus.Subscribe(events.EventThemeChanged)
	go func() {
		ui.monitorThemes(ch)
		close(done)
	}()

	bus.Publish(&events.ThemeChangedEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventThemeChanged, Time: time.Now()},
		Theme:     constants.ThemeDark,
	})

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "theme=dark") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if !strings.Contains(out.String(), "Theme changed") || !strings.Contains(out.String(), "theme=dark") {
		t.Errorf("log output = %q, want a theme change line", out.String())
	}
}

func TestLogRuntimeStatsReportsDroppedEvents(t *testing.T) {
	out := &syncBuffer{}
	useGUILogger(t, out)

	bus := events.NewEventBus(1)
	defer bus.Close()
	_ = bus.Subscribe(events.EventLog)
	for i := 0; i < 3; i++ {
		bus.PublishLog(events.InfoLevel, "flood", nil)
	}

	logRuntimeStats(bus)

	if !strings.Contains(out.String(), "dropped_events=2") {
		t.Errorf("log output = %q, want dropped_events=2", out.String())
	}
}

func TestLoadDropped(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "plots")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for path, content := range map[string]string{
		filepath.Join(dir, "single.png"): "s",
		filepath.Join(sub, "one.jpg"):    "1",
		filepath.Join(sub, "notes.txt"):  "n",
	} {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := loadDropped([]fyne.URI{
		storage.NewFileURI(filepath.Join(dir, "single.png")),
		storage.NewFileURI(sub),
	})
	if err != nil {
		t.Fatalf("loadDropped() error = %v", err)
	}

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "single.png,one.jpg" {
		t.Errorf("names = %v, want [single.png one.jpg]", names)
	}
}

func TestLoadDroppedReportsMissing(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	if err := os.WriteFile(good, []byte("g"), 0644); err != nil {
		t.Fatal(err)
	}

	files, err := loadDropped([]fyne.URI{
		storage.NewFileURI(filepath.Join(dir, "missing.png")),
		storage.NewFileURI(good),
	})
	if err == nil {
		t.Error("expected an error for the missing file")
	}
	if len(files) != 1 || files[0].Name != "good.png" {
		t.Errorf("files = %v, want only good.png", files)
	}
}

func TestNewAppTheme(t *testing.T) {
	tests := []struct {
		name string
		dark bool
	}{
		{constants.ThemeDark, true},
		{constants.ThemeLight, false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newAppTheme(tt.name).Dark(); got != tt.dark {
				t.Errorf("newAppTheme(%q).Dark() = %v, want %v", tt.name, got, tt.dark)
			}
		})
	}
}

func TestSubmitButtonStates(t *testing.T) {
	test.NewTempApp(t)

	b := newSubmitButton(constants.SubmitLabel, func() {})

	b.SetEnabled(false)
	b.SetBusy(constants.BusyLabel)
	if b.Label() != constants.BusyLabel {
		t.Errorf("Label() = %q, want %q", b.Label(), constants.BusyLabel)
	}
	if !b.activity.Visible() {
		t.Error("activity should be visible while busy")
	}
	if !b.button.Disabled() {
		t.Error("button should be disabled")
	}

	b.SetLabel(constants.SuccessLabel)
	b.SetTone(submit.ToneSuccess)
	if b.activity.Visible() {
		t.Error("activity should hide once a label is set")
	}
	if b.button.Importance != widget.SuccessImportance {
		t.Errorf("Importance = %v, want success", b.button.Importance)
	}

	b.SetTone(submit.ToneNone)
	b.SetEnabled(true)
	if b.button.Importance != widget.HighImportance || b.button.Disabled() {
		t.Error("button should be enabled with default importance")
	}
}

func progressEvent(current, total int64) *events.ProgressEvent {
	return &events.ProgressEvent{
		BaseEvent:    events.BaseEvent{EventType: events.EventProgress, Time: time.Now()},
		BytesCurrent: current,
		BytesTotal:   total,
	}
}

func TestProgressText(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		total    int64
		expected string
	}{
		{"known total", 512, 1024, "Uploading 512 B of 1.0 KB (50%)"},
		{"unknown total", 2048, 0, "Uploading 2.0 KB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progressText(progressEvent(tt.current, tt.total))
			if got != tt.expected {
				t.Errorf("progressText() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestFormatFileSize tests the file size formatting function
func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{"zero bytes", 0, "0 B"},
		{"small bytes", 500, "500 B"},
		{"exactly 1KB", 1024, "1.0 KB"},
		{"1.5 KB", 1536, "1.5 KB"},
		{"exactly 1MB", 1024 * 1024, "1.0 MB"},
		{"2.5 GB", int64(2.5 * 1024 * 1024 * 1024), "2.5 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatFileSize(tt.bytes)
			if result != tt.expected {
				t.Errorf("FormatFileSize(%d) = %q, want %q", tt.bytes, result, tt.expected)
			}
		})
	}
}
