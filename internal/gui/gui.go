// Package gui provides the graphical user interface for appendix-client.
package gui

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"

	"github.com/rescale/appendix-client/internal/api"
	"github.com/rescale/appendix-client/internal/config"
	"github.com/rescale/appendix-client/internal/constants"
	"github.com/rescale/appendix-client/internal/events"
	inthttp "github.com/rescale/appendix-client/internal/http"
	"github.com/rescale/appendix-client/internal/logging"
	"github.com/rescale/appendix-client/internal/progress"
	"github.com/rescale/appendix-client/internal/sink"
	"github.com/rescale/appendix-client/internal/submit"
	"github.com/rescale/appendix-client/internal/uiloop"
)

var (
	// guiLogger is the package-level logger for GUI mode
	guiLogger = logging.NewNopLogger()
)

// EnvDebug enables debug logging and the pprof server in GUI mode.
const EnvDebug = "APPENDIX_DEBUG"

// LaunchGUI opens the appendix window and blocks until it is closed.
func LaunchGUI(configFile string) error {
	guiLogger = logging.NewLogger("gui")

	// GUI mode stays at warn level unless APPENDIX_DEBUG is set
	if os.Getenv(EnvDebug) != "" {
		logging.SetGlobalLevel(zerolog.DebugLevel)
		guiLogger.Info().Msg("Debug logging enabled via " + EnvDebug)

		runtime.SetBlockProfileRate(1)
		go func() {
			guiLogger.Debug().Msg("[PROFILING] pprof server listening on http://localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				guiLogger.Error().Err(err).Msg("[PROFILING] pprof server failed")
			}
		}()
	} else {
		logging.SetGlobalLevel(zerolog.WarnLevel)
	}

	if !HasDisplay() {
		return ErrNoDisplay
	}

	path := configFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Resolve(path)
	if err != nil {
		guiLogger.Warn().Err(err).Str("path", path).Msg("Failed to load config, falling back to defaults")
		cfg = config.NewConfig()
	} else {
		guiLogger.Info().Str("path", path).Msg("Loaded configuration")
	}
	if inthttp.NeedsProxyPassword(cfg) {
		guiLogger.Warn().Str("user", cfg.ProxyUser).
			Msgf("Proxy password not set; export %s before starting the GUI", config.EnvProxyPassword)
	}

	prefs := config.LoadPreferences(config.DefaultPreferencesPath())

	myApp := app.NewWithID("com.rescale.appendix-client")
	myApp.Settings().SetTheme(newAppTheme(prefs.Theme()))

	mainWindow := myApp.NewWindow("Auto Appendix API")
	mainWindow.SetMaster()

	eventBus := events.NewEventBus(constants.EventBusDefaultBuffer)
	defer eventBus.Close()

	if os.Getenv(EnvDebug) != "" {
		go monitorGoroutines(eventBus)
	}

	ui, err := NewUI(myApp, mainWindow, cfg, prefs, eventBus)
	if err != nil {
		return err
	}
	ui.Start()

	mainWindow.SetContent(ui.Build())
	mainWindow.SetOnDropped(ui.form.onDropped)
	mainWindow.Resize(fyne.NewSize(560, 720))
	mainWindow.CenterOnScreen()
	mainWindow.SetOnClosed(ui.Stop)

	mainWindow.ShowAndRun()
	return nil
}

// UI owns the form and the event monitors feeding its status bar.
type UI struct {
	app      fyne.App
	window   fyne.Window
	eventBus *events.EventBus
	form     *appendixForm
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewUI wires the HTTP client, the output sink and the form.
func NewUI(a fyne.App, window fyne.Window, cfg *config.Config, prefs *config.Preferences, eventBus *events.EventBus) (*UI, error) {
	ctx, cancel := context.WithCancel(context.Background())

	httpClient, err := inthttp.CreateOptimizedClient(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	client, err := api.NewClient(cfg, api.Options{
		HTTPClient: httpClient,
		Logger:     guiLogger,
		Progress:   progress.NewEventProgress(eventBus),
	})
	if err != nil {
		cancel()
		return nil, err
	}

	downloader, err := sink.Open(ctx, cfg.Output.Destination, sink.Options{
		HTTPClient: httpClient,
		S3: sink.S3Options{
			Region:   cfg.Output.S3Region,
			Endpoint: cfg.Output.S3Endpoint,
		},
		AzureSAS: cfg.Output.AzureSAS,
	})
	if err != nil {
		guiLogger.Warn().Err(err).Str("destination", cfg.Output.Destination).
			Msg("Output destination unavailable, saving to the download directory")
		downloader, err = sink.NewLocalSink(sink.DefaultDownloadDir())
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open download directory: %w", err)
		}
	}

	form, err := newAppendixForm(ctx, a, window, formDeps{
		Config:        cfg,
		Preferences:   prefs,
		Transport:     client,
		Downloader:    downloader,
		Dispatcher:    uiloop.DispatcherFunc(fyne.Do),
		EventBus:      eventBus,
		Logger:        guiLogger,
		ThumbnailSize: constants.ThumbnailSize,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	return &UI{
		app:      a,
		window:   window,
		eventBus: eventBus,
		form:     form,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Build creates the UI layout
func (ui *UI) Build() fyne.CanvasObject {
	return ui.form.Build()
}

// Start begins event monitoring. Subscriptions are taken before Start
// returns so no event published afterwards is missed.
func (ui *UI) Start() {
	go ui.monitorProgress(ui.eventBus.Subscribe(events.EventProgress))
	go ui.monitorLogs(ui.eventBus.Subscribe(events.EventLog))
	go ui.monitorSaves(ui.eventBus.Subscribe(events.EventDocumentSaved))
	go ui.monitorThemes(ui.eventBus.Subscribe(events.EventThemeChanged))
}

// Stop stops event monitoring and cancels in-flight work.
func (ui *UI) Stop() {
	ui.cancel()
	ui.form.Shutdown()
}

func (ui *UI) monitorProgress(ch <-chan events.Event) {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			p := event.(*events.ProgressEvent)
			text := progressText(p)
			fyne.Do(func() {
				// Late events must not overwrite the settled message
				if ui.form.controller.Phase() == submit.PhasePending {
					ui.form.status.SetProgress(text)
				}
			})

		case <-ui.ctx.Done():
			return
		}
	}
}

func (ui *UI) monitorLogs(ch <-chan events.Event) {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			logEvent := event.(*events.LogEvent)
			var e *zerolog.Event
			switch logEvent.Level {
			case events.ErrorLevel:
				e = guiLogger.Error()
			case events.WarnLevel:
				e = guiLogger.Warn()
			default:
				e = guiLogger.Debug()
			}
			e.Err(logEvent.Error).Msg(logEvent.Message)

		case <-ui.ctx.Done():
			return
		}
	}
}

func (ui *UI) monitorSaves(ch <-chan events.Event) {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			saved := event.(*events.DocumentSavedEvent)
			guiLogger.Info().
				Str("submission", saved.SubmissionID).
				Str("location", saved.Location).
				Int64("size", saved.Size).
				Msg("Document saved")

		case <-ui.ctx.Done():
			return
		}
	}
}

func (ui *UI) monitorThemes(ch <-chan events.Event) {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			changed := event.(*events.ThemeChangedEvent)
			guiLogger.Info().Str("theme", changed.Theme).Msg("Theme changed")

		case <-ui.ctx.Done():
			return
		}
	}
}

func progressText(p *events.ProgressEvent) string {
	if p.BytesTotal > 0 {
		pct := float64(p.BytesCurrent) / float64(p.BytesTotal) * 100
		return fmt.Sprintf("Uploading %s of %s (%.0f%%)", FormatFileSize(p.BytesCurrent), FormatFileSize(p.BytesTotal), pct)
	}
	return fmt.Sprintf("Uploading %s", FormatFileSize(p.BytesCurrent))
}

var goroutineCount int64

func monitorGoroutines(eventBus *events.EventBus) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		logRuntimeStats(eventBus)
	}
}

// logRuntimeStats logs the goroutine count and the events the bus dropped
// on full subscriber buffers.
func logRuntimeStats(eventBus *events.EventBus) {
	count := runtime.NumGoroutine()
	prev := atomic.SwapInt64(&goroutineCount, int64(count))
	delta := int64(count) - prev
	dropped := eventBus.GetDroppedEventCount()

	guiLogger.Debug().
		Int("count", count).
		Int64("delta", delta).
		Int64("dropped_events", dropped).
		Msg("[MONITOR] Goroutines")

	if count > 100 {
		guiLogger.Warn().
			Int("count", count).
			Msg("[MONITOR] High goroutine count")
	}
	if dropped > 0 {
		guiLogger.Warn().
			Int64("dropped_events", dropped).
			Msg("[MONITOR] Event bus dropped events")
	}
}
