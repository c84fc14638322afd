// Package cmdlog prints a colored transcript of the commands sent to an
// instrument and the responses it returns.
package cmdlog

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func isAscii(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r < 7:
			return true
		case r > 6 && r < 14:
			return false
		case r > 13 && r < 32:
			return true
		case r > 127:
			return true
		}
		return false
	})
}

// Transcript writes one line per exchange to w.
type Transcript struct {
	w        io.Writer
	resource string
	cmd      lipgloss.Style
	r1       lipgloss.Style
	r2       lipgloss.Style
	errStyle lipgloss.Style
	now      func() time.Time
}

// New returns a transcript for the named resource. Colors are used only when
// w is a terminal.
func New(w io.Writer, resource string) *Transcript {
	r := lipgloss.NewRenderer(w)
	return &Transcript{
		w:        w,
		resource: resource,
		cmd:      r.NewStyle().Foreground(lipgloss.Color("12")),
		r1:       r.NewStyle().Foreground(lipgloss.Color("35")),
		r2:       r.NewStyle().Foreground(lipgloss.Color("86")),
		errStyle: r.NewStyle().Foreground(lipgloss.Color("9")),
		now:      time.Now,
	}
}

func (t *Transcript) printf(format string, a ...any) {
	stamp := t.now().Format("15:04:05.000000")
	fmt.Fprintf(t.w, "%s %s "+format+"\n", append([]any{stamp, t.resource}, a...)...)
}

// Command records a command written to the instrument.
func (t *Transcript) Command(c string) {
	t.printf("%s()", t.cmd.Render(c))
}

// Response records the response to query q.
func (t *Transcript) Response(q string, resp []byte) {
	q = t.cmd.Render(q)
	a := strings.TrimSuffix(string(resp), "\n")
	if len(a) == 1 && a[0] == 0xff {
		// some instruments reply with 0xff when a response is expected
		// but the last command has no result
		a = ""
	}
	switch {
	case len(a) == 0:
		t.printf("%s: %s", q, t.r1.Render("<no response>"))
	case isAscii(a):
		t.printf("%s: [%d] %s", q, len(a), t.r2.Render(fmt.Sprintf("%q", a)))
	case len(a) < 32:
		t.printf("%s: [%d] %s", q, len(a), t.r2.Render(fmt.Sprintf("%q (% 2x)", a, []byte(a))))
	default:
		t.printf("%s: [%d] %s", q, len(a), t.r2.Render(fmt.Sprintf("% 2x", []byte(a))))
	}
}

// Error records a failed exchange.
func (t *Transcript) Error(c string, err error) {
	t.printf("%s: %s", t.cmd.Render(c), t.errStyle.Render("error "+err.Error()))
}
