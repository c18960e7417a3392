package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// StatusLevel represents the type of status being displayed
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusSuccess
	StatusError
	StatusProgress
)

// StatusBar is the one-line status under the form: last saved document,
// last error, or upload progress. UI goroutine only.
type StatusBar struct {
	widget.BaseWidget

	level   StatusLevel
	message string

	icon    *widget.Icon
	label   *widget.Label
	spinner *widget.Activity
}

// NewStatusBar creates a status bar showing "Ready".
func NewStatusBar() *StatusBar {
	sb := &StatusBar{level: StatusInfo, message: "Ready"}
	sb.label = widget.NewLabel(sb.message)
	sb.label.TextStyle = fyne.TextStyle{Italic: true}
	sb.label.Truncation = fyne.TextTruncateEllipsis
	sb.icon = widget.NewIcon(theme.InfoIcon())
	sb.spinner = widget.NewActivity()
	sb.spinner.Hide()
	sb.ExtendBaseWidget(sb)
	return sb
}

// SetStatus updates the message and the icon for level.
func (sb *StatusBar) SetStatus(message string, level StatusLevel) {
	sb.level = level
	sb.message = message

	sb.label.SetText(message)
	sb.spinner.Stop()
	sb.spinner.Hide()
	sb.icon.Show()

	switch level {
	case StatusInfo:
		sb.icon.SetResource(theme.InfoIcon())
	case StatusSuccess:
		sb.icon.SetResource(theme.ConfirmIcon())
	case StatusError:
		sb.icon.SetResource(theme.ErrorIcon())
	case StatusProgress:
		sb.icon.Hide()
		sb.spinner.Show()
		sb.spinner.Start()
	}
}

func (sb *StatusBar) SetInfo(message string)     { sb.SetStatus(message, StatusInfo) }
func (sb *StatusBar) SetSuccess(message string)  { sb.SetStatus(message, StatusSuccess) }
func (sb *StatusBar) SetError(message string)    { sb.SetStatus(message, StatusError) }
func (sb *StatusBar) SetProgress(message string) { sb.SetStatus(message, StatusProgress) }

// Message returns the current status message.
func (sb *StatusBar) Message() string {
	return sb.message
}

// Level returns the current status level.
func (sb *StatusBar) Level() StatusLevel {
	return sb.level
}

// CreateRenderer implements fyne.Widget
func (sb *StatusBar) CreateRenderer() fyne.WidgetRenderer {
	content := container.NewBorder(nil, nil, container.NewHBox(sb.icon, sb.spinner), nil, sb.label)
	return widget.NewSimpleRenderer(content)
}
