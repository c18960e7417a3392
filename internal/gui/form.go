package gui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/rescale/appendix-client/internal/config"
	"github.com/rescale/appendix-client/internal/constants"
	"github.com/rescale/appendix-client/internal/events"
	"github.com/rescale/appendix-client/internal/logging"
	"github.com/rescale/appendix-client/internal/preview"
	"github.com/rescale/appendix-client/internal/selection"
	"github.com/rescale/appendix-client/internal/submit"
	"github.com/rescale/appendix-client/internal/uiloop"
)

// formDeps are the collaborators of the appendix form.
type formDeps struct {
	Config      *config.Config
	Preferences *config.Preferences
	Transport   submit.Transport
	Downloader  submit.Downloader
	Dispatcher  uiloop.Dispatcher // fyne.Do in the app
	EventBus    *events.EventBus
	Logger      *logging.Logger
	RevertDelay time.Duration
	// ThumbnailSize is the preview edge in pixels; 0 disables previews.
	ThumbnailSize int
}

// appendixForm is the single-window form: file picker and drop area, width
// slider, advanced settings and the submit button.
// Every method runs on the UI goroutine.
type appendixForm struct {
	app      fyne.App
	window   fyne.Window
	ctx      context.Context
	deps     formDeps
	dispatch uiloop.Dispatcher
	logger   *logging.Logger

	manager    *selection.Manager
	controller *submit.Controller

	view        *selectionView
	submit      *submitButton
	status      *StatusBar
	widthSlider *widget.Slider
	widthLabel  *widget.Label
	paperSize   *widget.Select
	format      *widget.Select
	caption     *widget.Select
	thumbs      *fyne.Container
	thumbGen    uint64
	themeButton *widget.Button
	hint        *widget.Label
}

// dropHint points at the multi-image paths; the file dialog picks one file.
const dropHint = "Drop images or folders anywhere in this window.\nChoose Folder... adds every image in a folder."

func newAppendixForm(ctx context.Context, a fyne.App, w fyne.Window, deps formDeps) (*appendixForm, error) {
	if deps.Config == nil || deps.Preferences == nil {
		return nil, errors.New("gui: config and preferences are required")
	}

	f := &appendixForm{
		app:      a,
		window:   w,
		ctx:      ctx,
		deps:     deps,
		dispatch: deps.Dispatcher,
		logger:   deps.Logger,
	}
	if f.dispatch == nil {
		f.dispatch = uiloop.Inline
	}
	if f.logger == nil {
		f.logger = logging.NewNopLogger()
	}

	reset := widget.NewButtonWithIcon("Reset", theme.ContentClearIcon(), f.onReset)
	f.view = newSelectionView(reset)
	f.manager = selection.NewManager(f.view, deps.EventBus, f.logger)
	f.submit = newSubmitButton(constants.SubmitLabel, f.onSubmit)
	f.status = NewStatusBar()

	doc := deps.Config.Document
	f.widthLabel = widget.NewLabel(submit.WidthLabel(doc.ImageWidth))
	f.widthSlider = widget.NewSlider(constants.MinImageWidth, constants.MaxImageWidth)
	f.widthSlider.Step = constants.ImageWidthStep
	f.widthSlider.Value = doc.ImageWidth
	f.widthSlider.OnChanged = func(v float64) {
		f.widthLabel.SetText(submit.WidthLabel(v))
	}

	f.paperSize = widget.NewSelect(config.PaperSizes, nil)
	f.paperSize.SetSelected(doc.PaperSize)
	f.format = widget.NewSelect(config.OutputFormats, nil)
	f.format.SetSelected(doc.OutputFormat)
	f.caption = widget.NewSelect(config.CaptionPositions, nil)
	f.caption.SetSelected(doc.CaptionPosition)

	size := float32(deps.ThumbnailSize)
	f.thumbs = container.NewGridWrap(fyne.NewSize(size, size))

	f.themeButton = widget.NewButtonWithIcon("", theme.ColorPaletteIcon(), f.onToggleTheme)
	f.themeButton.Importance = widget.LowImportance

	f.hint = widget.NewLabelWithStyle(dropHint, fyne.TextAlignCenter, fyne.TextStyle{Italic: true})

	controller, err := submit.NewController(submit.Options{
		Files:       f.manager,
		Form:        f.currentForm,
		Transport:   deps.Transport,
		Downloader:  deps.Downloader,
		Control:     f.submit,
		Dispatcher:  f.dispatch,
		EventBus:    deps.EventBus,
		Logger:      f.logger,
		RevertDelay: deps.RevertDelay,
		OnSettled:   f.onSettled,
	})
	if err != nil {
		return nil, err
	}
	f.controller = controller

	return f, nil
}

// Build lays out the form.
func (f *appendixForm) Build() fyne.CanvasObject {
	title := widget.NewLabelWithStyle("Auto Appendix", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	title.SizeName = theme.SizeNameHeadingText
	header := container.NewBorder(nil, nil, nil, f.themeButton, title)

	chooseFiles := widget.NewButtonWithIcon("Choose Image...", theme.FileImageIcon(), f.showFilePicker)
	chooseFolder := widget.NewButtonWithIcon("Choose Folder...", theme.FolderOpenIcon(), f.showFolderPicker)

	dropArea := container.NewStack(
		f.view.border,
		container.NewPadded(container.NewVBox(
			f.hint,
			container.NewCenter(container.NewHBox(chooseFiles, chooseFolder)),
			container.NewCenter(container.NewHBox(f.view.count, f.view.reset)),
			f.thumbs,
		)),
	)

	width := widget.NewForm(
		widget.NewFormItem("Image Width", container.NewBorder(nil, nil, nil, f.widthLabel, f.widthSlider)),
	)

	advanced := widget.NewAccordion(widget.NewAccordionItem("Advanced Settings", widget.NewForm(
		widget.NewFormItem("Paper Size", f.paperSize),
		widget.NewFormItem("Output Format", f.format),
		widget.NewFormItem("Caption Position", f.caption),
	)))

	body := container.NewVBox(
		dropArea,
		VerticalSpacer(8),
		width,
		advanced,
		VerticalSpacer(8),
		f.submit.content,
	)

	return container.NewBorder(header, f.status, nil, nil, container.NewVScroll(body))
}

// currentForm reads the widgets at submission time.
func (f *appendixForm) currentForm() submit.Form {
	return submit.Form{
		ImageWidth:      f.widthSlider.Value,
		PaperSize:       f.paperSize.Selected,
		OutputFormat:    f.format.Selected,
		CaptionPosition: f.caption.Selected,
	}
}

func (f *appendixForm) onSubmit() {
	count := f.manager.Count()
	if err := f.controller.Submit(f.ctx); err != nil {
		if !errors.Is(err, submit.ErrBusy) {
			f.status.SetError(err.Error())
		}
		return
	}
	if f.controller.Phase() == submit.PhasePending {
		f.status.SetProgress(fmt.Sprintf("Generating appendix from %d image(s)...", count))
	}
}

func (f *appendixForm) onSettled(outcome submit.Outcome) {
	switch o := outcome.(type) {
	case submit.Success:
		f.status.SetSuccess(fmt.Sprintf("Saved %s (%s)", o.Location, FormatFileSize(o.Size)))
	case submit.Failure:
		f.status.SetError(o.Message)
	}
}

func (f *appendixForm) onReset() {
	f.manager.OnReset()
	f.refreshThumbnails()
}

// applyPick replaces the selection with picked files.
func (f *appendixForm) applyPick(files []selection.File) {
	f.manager.OnPick(files)
	f.refreshThumbnails()
	if len(files) == 0 {
		f.status.SetInfo("No images found")
	}
}

func (f *appendixForm) showFilePicker() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to open file: %w", err), f.window)
			return
		}
		if reader == nil {
			// User cancelled
			return
		}
		defer reader.Close()

		content, err := io.ReadAll(reader)
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to read %s: %w", reader.URI().Name(), err), f.window)
			return
		}
		f.applyPick([]selection.File{{Name: reader.URI().Name(), Content: content}})
	}, f.window)
	d.SetFilter(storage.NewExtensionFileFilter(selection.ImageExtensions()))
	d.Show()
}

func (f *appendixForm) showFolderPicker() {
	d := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to open folder: %w", err), f.window)
			return
		}
		if uri == nil {
			return
		}
		files, err := selection.LoadImagesInDir(uri.Path())
		if err != nil {
			dialog.ShowError(err, f.window)
			return
		}
		f.applyPick(files)
	}, f.window)
	d.Show()
}

// onDropped is the window drop handler. Files are read off the UI
// goroutine; the selection is replaced once they are loaded.
func (f *appendixForm) onDropped(_ fyne.Position, uris []fyne.URI) {
	go func() {
		files, err := loadDropped(uris)
		f.dispatch.Do(func() {
			if err != nil {
				f.logger.Warn().Err(err).Msg("Some dropped items could not be read")
				f.status.SetError(err.Error())
			}
			f.manager.OnDrop(dropEvent{}, files)
			f.refreshThumbnails()
		})
	}()
}

// loadDropped reads dropped files and the images inside dropped folders.
// Non-file URIs are skipped. The first read error is returned along with
// everything that could be read.
func loadDropped(uris []fyne.URI) ([]selection.File, error) {
	var (
		files    []selection.File
		firstErr error
	)
	for _, uri := range uris {
		if uri == nil || uri.Scheme() != "file" {
			continue
		}
		path := uri.Path()
		info, err := os.Stat(path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if info.IsDir() {
			more, err := selection.LoadImagesInDir(path)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			files = append(files, more...)
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		files = append(files, selection.File{Name: uri.Name(), Content: content})
	}
	return files, firstErr
}

// refreshThumbnails renders previews in the background. A render that
// finishes after a newer selection is discarded.
func (f *appendixForm) refreshThumbnails() {
	size := f.deps.ThumbnailSize
	if size <= 0 {
		return
	}
	f.thumbGen++
	gen := f.thumbGen
	files := f.manager.Files()

	go func() {
		thumbs := preview.RenderAll(files, size)
		f.dispatch.Do(func() {
			if gen != f.thumbGen {
				return
			}
			objects := make([]fyne.CanvasObject, 0, len(thumbs))
			for _, t := range thumbs {
				objects = append(objects, thumbnailObject(t, float32(size)))
			}
			f.thumbs.Objects = objects
			f.thumbs.Refresh()
		})
	}()
}

func thumbnailObject(t preview.Thumbnail, size float32) fyne.CanvasObject {
	if t.Image == nil {
		return widget.NewIcon(theme.FileImageIcon())
	}
	img := canvas.NewImageFromImage(t.Image)
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(size, size))
	return img
}

func (f *appendixForm) onToggleTheme() {
	next, err := f.deps.Preferences.ToggleTheme()
	if err != nil {
		f.logger.Warn().Err(err).Msg("Failed to save theme preference")
	}
	f.app.Settings().SetTheme(newAppTheme(next))

	if f.deps.EventBus != nil {
		f.deps.EventBus.Publish(&events.ThemeChangedEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventThemeChanged, Time: time.Now()},
			Theme:     next,
		})
	}
}

// Shutdown cancels the pending status reversion.
func (f *appendixForm) Shutdown() {
	f.controller.Shutdown()
}
