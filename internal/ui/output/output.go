// Package output creates termenv outputs and lipgloss renderers with a consistent
// color profile across the CLI.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorProfile returns the color profile for w.
// NO_COLOR and non-terminal writers get Ascii.
func ColorProfile(w io.Writer) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" || !IsTerminal(w) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// New creates a termenv.Output for w. A nil writer means os.Stderr.
func New(w io.Writer) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}

	return termenv.NewOutput(w,
		termenv.WithProfile(ColorProfile(w)),
		termenv.WithTTY(true),
	)
}

// Renderer creates a lipgloss renderer for w that follows ColorProfile.
func Renderer(w io.Writer) *lipgloss.Renderer {
	if w == nil {
		w = os.Stdout
	}

	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(ColorProfile(w))
	return r
}
