// Package uiout renders the tool's stdout/stderr lines with the
// "git-sync-world: " prefix required by §6, applying color only when
// attached to a real terminal and not disabled by NO_COLOR.
package uiout

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const prefix = "git-sync-world: "

var (
	errStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"})
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"})
)

// Printer writes status and error lines to two streams, deciding once at
// construction whether color is appropriate for each.
type Printer struct {
	out      io.Writer
	errOut   io.Writer
	outColor bool
	errColor bool
}

// New builds a Printer writing to stdout/stderr, auto-detecting color
// support per stream. mode overrides auto-detection: "always" forces
// color on, "never" forces it off, anything else (including "auto")
// detects.
func New(mode string) *Printer {
	return &Printer{
		out:      os.Stdout,
		errOut:   os.Stderr,
		outColor: colorEnabled(mode, os.Stdout),
		errColor: colorEnabled(mode, os.Stderr),
	}
}

func colorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd())) && termenv.NewOutput(f).ColorProfile() != termenv.Ascii
}

// Status prints a plain status line, e.g. "Applied commit at abc123".
func (p *Printer) Status(msg string) {
	if p.outColor {
		fmt.Fprintln(p.out, infoStyle.Render(prefix)+msg)
		return
	}
	fmt.Fprintln(p.out, prefix+msg)
}

// Error prints an "ERROR - " line to stderr, per §6.
func (p *Printer) Error(msg string) {
	line := prefix + "ERROR - " + msg
	if p.errColor {
		fmt.Fprintln(p.errOut, errStyle.Render(line))
		return
	}
	fmt.Fprintln(p.errOut, line)
}

// Report implements walker.Reporter.
func (p *Printer) Report(msg string) { p.Status(msg) }
