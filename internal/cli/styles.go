package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#2E86AB")
	accentColor  = lipgloss.Color("#F6AE2D")
	mutedColor   = lipgloss.Color("#888888")
	textColor    = lipgloss.Color("#FFFFFF")
	errorColor   = lipgloss.Color("#C0392B")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginTop(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(22)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	HintStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), message)
}
