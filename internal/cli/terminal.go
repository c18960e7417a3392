package cli

import (
	"fmt"
	"io"

	"github.com/rescale/appendix-client/internal/constants"
	"github.com/rescale/appendix-client/internal/progress"
	"github.com/rescale/appendix-client/internal/submit"
)

// Result colors. They are only written when progress.IsTerminal reports a
// TTY (terminalControl.color); pipes and files get the bare label.
const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// terminalControl renders the submit control as status lines. The busy
// state is a spinner; a toned label is printed once, colored on a TTY.
// UI goroutine only.
type terminalControl struct {
	w       io.Writer
	spinner *progress.Spinner
	color   bool

	label   string
	tone    submit.Tone
	enabled bool
}

func newTerminalControl(w io.Writer, spinner *progress.Spinner) *terminalControl {
	return &terminalControl{
		w:       w,
		spinner: spinner,
		color:   progress.IsTerminal(w),
		label:   constants.SubmitLabel,
		enabled: true,
	}
}

func (c *terminalControl) Label() string {
	return c.label
}

func (c *terminalControl) SetLabel(label string) {
	c.spinner.Finish()
	c.label = label
}

func (c *terminalControl) SetBusy(text string) {
	c.label = text
	c.spinner.Start(-1, text)
}

func (c *terminalControl) SetTone(tone submit.Tone) {
	c.tone = tone
	switch tone {
	case submit.ToneSuccess:
		c.print(ansiGreen)
	case submit.ToneError:
		c.print(ansiRed)
	}
}

func (c *terminalControl) SetEnabled(enabled bool) {
	c.enabled = enabled
}

func (c *terminalControl) print(color string) {
	if c.color {
		fmt.Fprintf(c.w, "%s%s%s\n", color, c.label, ansiReset)
		return
	}
	fmt.Fprintln(c.w, c.label)
}

// terminalView prints the selection count whenever it changes.
type terminalView struct {
	w io.Writer
}

func (v terminalView) SetCountLabel(label string) {
	if label != "" {
		fmt.Fprintln(v.w, label)
	}
}

func (terminalView) SetResetVisible(bool) {}
func (terminalView) SetDragActive(bool)   {}
