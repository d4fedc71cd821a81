package terminal

import (
	"fmt"
	"io"

	"github.com/aixgo-dev/therapist/pkg/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

const assistantLabel = "Therapist:"

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	faintColor   = color.New(color.Faint)
)

// Renderer writes session events to the terminal. Replies and the opening
// line go to out; errors and notices go to errOut. In non-interactive mode
// only the reply text is written to out so the output can be piped onward.
type Renderer struct {
	out         io.Writer
	errOut      io.Writer
	interactive bool

	label  lipgloss.Style
	reply  lipgloss.Style
	banner lipgloss.Style
}

// NewRenderer creates a renderer for the given streams.
func NewRenderer(out, errOut io.Writer, interactive bool) *Renderer {
	lg := lipgloss.NewRenderer(out)
	return &Renderer{
		out:         out,
		errOut:      errOut,
		interactive: interactive,
		label:       lg.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		reply:       lg.NewStyle().Foreground(lipgloss.Color("252")),
		banner: lg.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("86")).
			Padding(0, 2),
	}
}

// Banner prints the session header. It is a no-op when not interactive.
func (r *Renderer) Banner(mode, provider string) {
	if !r.interactive {
		return
	}
	title := fmt.Sprintf("therapist · %s mode · %s\nType exit, quit or bye to leave.", mode, provider)
	fmt.Fprintln(r.out, r.banner.Render(title))
}

// Render writes one event.
func (r *Renderer) Render(ev session.Event) {
	switch ev.Type {
	case session.EventSessionStarted:
		if r.interactive {
			r.speak(ev.Text)
		}
	case session.EventThinking:
		if r.interactive {
			faintColor.Fprintln(r.errOut, "...")
		}
	case session.EventReply:
		if r.interactive {
			r.speak(ev.Text)
			return
		}
		fmt.Fprintln(r.out, ev.Text)
	case session.EventBackendError:
		errorColor.Fprintf(r.errOut, "✗ %s\n", ev.Text)
	case session.EventNotice:
		warningColor.Fprintln(r.errOut, ev.Text)
	case session.EventSessionEnded:
		if ev.Err != nil {
			errorColor.Fprintf(r.errOut, "✗ %v\n", ev.Err)
		}
		if ev.Text != "" {
			r.speak(ev.Text)
		}
	}
}

func (r *Renderer) speak(text string) {
	fmt.Fprintf(r.out, "%s %s\n\n", r.label.Render(assistantLabel), r.reply.Render(text))
}
