// Package selection owns the canonical set of images attached for upload.
//
// Files arrive from two sources, an explicit picker and drag-and-drop, and
// both replace the set wholesale. The manager renders the resulting count
// through a View and never talks to the submission controller directly; the
// controller reads Files() when it builds a request.
package selection

import (
	"fmt"
	"time"

	"github.com/rescale/appendix-client/internal/events"
	"github.com/rescale/appendix-client/internal/logging"
)

// File is one attached image.
type File struct {
	Name    string
	Content []byte
}

// Size returns the content length in bytes.
func (f File) Size() int64 {
	return int64(len(f.Content))
}

// View receives the results of a recount.
type View interface {
	SetCountLabel(label string)
	SetResetVisible(visible bool)
	SetDragActive(active bool)
}

// Event is a native drag or drop event whose default handling (opening the
// dropped file in place of the form) must be suppressed.
type Event interface {
	PreventDefault()
}

// Manager reconciles picker and drop input into one file list.
// All methods must be called from the UI goroutine.
type Manager struct {
	files      []File
	view       View
	eventBus   *events.EventBus
	logger     *logging.Logger
	dragActive bool
}

// NewManager creates an empty manager. view, eventBus and logger may be nil.
func NewManager(view View, eventBus *events.EventBus, logger *logging.Logger) *Manager {
	if view == nil {
		view = nopView{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Manager{
		files:    make([]File, 0),
		view:     view,
		eventBus: eventBus,
		logger:   logger,
	}
}

// OnPick replaces the set with the files chosen in the picker.
func (m *Manager) OnPick(files []File) {
	m.replace(files)
	m.logger.Debug().Int("count", len(files)).Msg("files picked")
	m.Recount()
}

// OnDragOver suppresses the default handling and lights the drop indicator.
func (m *Manager) OnDragOver(e Event) {
	if e != nil {
		e.PreventDefault()
	}
	m.setDragActive(true)
}

// OnDragLeave turns the drop indicator off.
func (m *Manager) OnDragLeave() {
	m.setDragActive(false)
}

// OnDrop has the same effect as OnPick. A drop without files (text, links)
// leaves an empty set behind rather than failing.
func (m *Manager) OnDrop(e Event, files []File) {
	if e != nil {
		e.PreventDefault()
	}
	m.setDragActive(false)
	m.replace(files)
	m.logger.Debug().Int("count", len(files)).Msg("files dropped")
	m.Recount()
}

// OnReset clears the set. Resetting an empty set is a no-op apart from the recount.
func (m *Manager) OnReset() {
	m.files = make([]File, 0)
	m.Recount()
}

// Recount renders the current count: a pluralized label plus a visible reset
// control when files are attached, an empty label and hidden reset otherwise.
func (m *Manager) Recount() {
	count := len(m.files)
	label := CountLabel(count)

	m.view.SetCountLabel(label)
	m.view.SetResetVisible(count > 0)

	if m.eventBus != nil {
		names := make([]string, count)
		for i, f := range m.files {
			names[i] = f.Name
		}
		m.eventBus.Publish(&events.FilesChangedEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventFilesChanged, Time: time.Now()},
			Count:     count,
			Label:     label,
			Names:     names,
		})
	}
}

// Files returns a copy of the canonical set in selection order.
func (m *Manager) Files() []File {
	out := make([]File, len(m.files))
	copy(out, m.files)
	return out
}

// Count returns the number of attached files.
func (m *Manager) Count() int {
	return len(m.files)
}

// DragActive reports whether the drop indicator is lit.
func (m *Manager) DragActive() bool {
	return m.dragActive
}

func (m *Manager) replace(files []File) {
	m.files = make([]File, len(files))
	copy(m.files, files)
}

func (m *Manager) setDragActive(active bool) {
	if m.dragActive == active {
		return
	}
	m.dragActive = active
	m.view.SetDragActive(active)
}

// CountLabel returns the human-readable selection label, or "" for zero files.
func CountLabel(n int) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return "1 image selected"
	default:
		return fmt.Sprintf("%d images selected", n)
	}
}

type nopView struct{}

func (nopView) SetCountLabel(string)  {}
func (nopView) SetResetVisible(bool) {}
func (nopView) SetDragActive(bool)   {}
