package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"golang.org/x/term"

	"github.com/fenilsonani/rm-rfp/internal/progress"
	"github.com/fenilsonani/rm-rfp/internal/ui/styles"
)

// LiveProgress redraws a few status lines in place with raw ANSI sequences.
// Throttling is the Reporter's job; every Render is drawn.
type LiveProgress struct {
	mu        sync.Mutex
	out       io.Writer
	termWidth int
	drawn     int
	frame     int
	last      progress.Sample
	hasLast   bool
	suspended bool
}

// NewLiveProgress creates a renderer writing to out
func NewLiveProgress(out io.Writer) *LiveProgress {
	width := DefaultWidth
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	return &LiveProgress{
		out:       out,
		termWidth: width,
	}
}

// Render redraws the status lines
func (lp *LiveProgress) Render(s progress.Sample) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	lp.last, lp.hasLast = s, true
	lp.frame++
	if !lp.suspended {
		lp.draw(s, false)
	}
}

// Suspend clears the status lines while fn runs and redraws them afterwards.
// Samples rendered meanwhile are kept but not drawn.
func (lp *LiveProgress) Suspend(fn func()) {
	lp.mu.Lock()
	lp.clear()
	lp.suspended = true
	lp.mu.Unlock()

	fn()

	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.suspended = false
	if lp.hasLast {
		lp.draw(lp.last, false)
	}
}

// Finish draws the final state and leaves it on screen
func (lp *LiveProgress) Finish(s progress.Sample) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	lp.draw(s, true)
	lp.drawn = 0
	lp.hasLast = false
}

func (lp *LiveProgress) lines(s progress.Sample, final bool) []string {
	width := lp.termWidth - 2
	lines := []string{CountsLine(s, PlainPainter)}

	switch {
	case s.HasTotal:
		lines = append(lines, styles.ProgressBar(s.Fraction, max(10, width/3))+" "+PercentText(s))
	case !final:
		frames := spinner.MiniDot.Frames
		line := frames[lp.frame%len(frames)]
		if est := EstimateText(s, PlainPainter); est != "" {
			line += " " + est
		}
		lines = append(lines, line)
	}

	if !final {
		if path := PathLine(s, width, PlainPainter); path != "" {
			lines = append(lines, path)
		}
	}
	return lines
}

func (lp *LiveProgress) draw(s progress.Sample, final bool) {
	lp.clear()
	lines := lp.lines(s, final)
	for _, line := range lines {
		fmt.Fprintf(lp.out, "\r\033[K%s\n", truncate(line, lp.termWidth-1))
	}
	lp.drawn = len(lines)
}

// clear moves to the first status line and erases everything below it
func (lp *LiveProgress) clear() {
	if lp.drawn == 0 {
		return
	}
	fmt.Fprintf(lp.out, "\033[%dA\r\033[J", lp.drawn)
	lp.drawn = 0
}

// Quiet draws nothing
type Quiet struct{}

func (Quiet) Render(progress.Sample) {}

func (Quiet) Finish(progress.Sample) {}

func (Quiet) Suspend(fn func()) { fn() }

// truncate cuts s to width runes so a line never wraps and throws off the
// cursor arithmetic
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
