package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/rescale/appendix-client/internal/submit"
)

// submitButton adapts a Fyne button plus an activity indicator to
// submit.Control. UI goroutine only.
type submitButton struct {
	button   *widget.Button
	activity *widget.Activity
	content  fyne.CanvasObject
}

func newSubmitButton(label string, tapped func()) *submitButton {
	b := &submitButton{
		button:   NewPrimaryButtonWithIcon(label, theme.DocumentCreateIcon(), tapped),
		activity: widget.NewActivity(),
	}
	b.activity.Hide()
	b.content = container.NewBorder(nil, nil, b.activity, nil, b.button)
	return b
}

func (b *submitButton) Label() string {
	return b.button.Text
}

func (b *submitButton) SetLabel(label string) {
	b.activity.Stop()
	b.activity.Hide()
	b.button.SetIcon(theme.DocumentCreateIcon())
	b.button.SetText(label)
}

func (b *submitButton) SetBusy(text string) {
	b.button.SetIcon(nil)
	b.button.SetText(text)
	b.activity.Show()
	b.activity.Start()
}

func (b *submitButton) SetTone(tone submit.Tone) {
	switch tone {
	case submit.ToneSuccess:
		b.button.Importance = widget.SuccessImportance
	case submit.ToneError:
		b.button.Importance = widget.DangerImportance
	default:
		b.button.Importance = widget.HighImportance
	}
	b.button.Refresh()
}

func (b *submitButton) SetEnabled(enabled bool) {
	if enabled {
		b.button.Enable()
	} else {
		b.button.Disable()
	}
}

// selectionView renders the selection count, the reset button and the drop
// highlight. UI goroutine only.
type selectionView struct {
	count  *widget.Label
	reset  *widget.Button
	border *canvas.Rectangle
}

func newSelectionView(reset *widget.Button) *selectionView {
	v := &selectionView{
		count:  widget.NewLabel(""),
		reset:  reset,
		border: canvas.NewRectangle(color.Transparent),
	}
	v.count.TextStyle = fyne.TextStyle{Bold: true}
	v.border.StrokeWidth = 2
	v.border.CornerRadius = theme.InputRadiusSize()
	v.border.StrokeColor = theme.Color(theme.ColorNameInputBorder)
	v.reset.Hide()
	return v
}

func (v *selectionView) SetCountLabel(label string) {
	v.count.SetText(label)
}

func (v *selectionView) SetResetVisible(visible bool) {
	if visible {
		v.reset.Show()
	} else {
		v.reset.Hide()
	}
}

func (v *selectionView) SetDragActive(active bool) {
	if active {
		v.border.StrokeColor = theme.Color(theme.ColorNamePrimary)
	} else {
		v.border.StrokeColor = theme.Color(theme.ColorNameInputBorder)
	}
	v.border.Refresh()
}

// dropEvent stands in for the native drag event. Fyne consumes drops
// itself, so there is no default action left to suppress.
type dropEvent struct{}

func (dropEvent) PreventDefault() {}
