// Package style provides shared colors, icons and lipgloss styles for CLI output.
package style

import "github.com/charmbracelet/lipgloss"

// Brand Colors.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Dot     = "●"
	Circle  = "○"
	Arrow   = "→"
)

// Text styles used by `devshell show`.
var (
	Heading = lipgloss.NewStyle().Bold(true).Foreground(Iris)
	Label   = lipgloss.NewStyle().Foreground(Slate)
	Name    = lipgloss.NewStyle().Bold(true)
	Version = lipgloss.NewStyle().Foreground(Green)
	Muted   = lipgloss.NewStyle().Foreground(Slate).Italic(true)
)
