// Package output renders user-facing CLI messages with lipgloss styling,
// falling back to plain text when stdout is not a terminal.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used for human-readable output.
type Styles struct {
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Title   lipgloss.Style
	Dim     lipgloss.Style
	Bold    lipgloss.Style
}

// Printer writes styled messages to a writer.
type Printer struct {
	w      io.Writer
	styles Styles
}

// NewPrinter creates a Printer. When isTTY is false all styles are empty so
// output stays plain (pipes, CI, tests).
func NewPrinter(w io.Writer, isTTY bool) *Printer {
	styles := Styles{
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:    lipgloss.NewStyle().Bold(true),
	}
	if !isTTY {
		styles = Styles{}
	}
	return &Printer{w: w, styles: styles}
}

// Styles exposes the printer's styles for callers that compose lines inline.
func (p *Printer) Styles() Styles {
	return p.styles
}

// Printf writes unstyled formatted output.
func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// Successf writes a green line.
func (p *Printer) Successf(format string, a ...any) {
	fmt.Fprintln(p.w, p.styles.Success.Render(fmt.Sprintf(format, a...)))
}

// Warnf writes a yellow line.
func (p *Printer) Warnf(format string, a ...any) {
	fmt.Fprintln(p.w, p.styles.Warning.Render(fmt.Sprintf(format, a...)))
}

// Errorf writes a red line.
func (p *Printer) Errorf(format string, a ...any) {
	fmt.Fprintln(p.w, p.styles.Error.Render(fmt.Sprintf(format, a...)))
}

// Titlef writes a bold heading line.
func (p *Printer) Titlef(format string, a ...any) {
	fmt.Fprintln(p.w, p.styles.Title.Render(fmt.Sprintf(format, a...)))
}

// Dimf writes a muted line.
func (p *Printer) Dimf(format string, a ...any) {
	fmt.Fprintln(p.w, p.styles.Dim.Render(fmt.Sprintf(format, a...)))
}
