// Package ui renders the live deletion status on the terminal.
package ui

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/fenilsonani/rm-rfp/internal/progress"
)

// Mode selects how the status is drawn
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeTUI   Mode = "tui"
	ModePlain Mode = "plain"
	ModeNone  Mode = "none"
)

// Modes lists the accepted display modes
var Modes = []Mode{ModeAuto, ModeTUI, ModePlain, ModeNone}

// Display receives progress samples and can step aside for prompts
type Display interface {
	progress.Display
	Suspend(fn func())
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// New creates the display for mode writing to out. Auto draws with
// bubbletea when out is a terminal and stays silent otherwise.
func New(mode Mode, out *os.File) (Display, error) {
	switch mode {
	case ModeAuto, "":
		if IsTerminal(out) {
			return NewTeaDisplay(out), nil
		}
		return Quiet{}, nil
	case ModeTUI:
		return NewTeaDisplay(out), nil
	case ModePlain:
		return NewLiveProgress(out), nil
	case ModeNone:
		return Quiet{}, nil
	default:
		return nil, fmt.Errorf("unknown display mode %q", mode)
	}
}
