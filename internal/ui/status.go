package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fenilsonani/rm-rfp/internal/progress"
	"github.com/fenilsonani/rm-rfp/internal/ui/styles"
)

// DefaultWidth is used when the terminal width is unknown
const DefaultWidth = 80

// Painter styles fragments of the status lines. The plain renderer uses an
// identity painter so its output stays free of colour codes.
type Painter struct {
	Count    func(string) string
	Size     func(string) string
	Rate     func(string) string
	Path     func(string) string
	Estimate func(string) string
	Error    func(string) string
}

func render(s lipgloss.Style) func(string) string {
	return func(v string) string { return s.Render(v) }
}

func identity(v string) string { return v }

// StyledPainter colours fragments with the theme
var StyledPainter = Painter{
	Count:    render(styles.CountStyle),
	Size:     render(styles.FileSizeStyle),
	Rate:     render(styles.RateStyle),
	Path:     render(styles.FilePathStyle),
	Estimate: render(styles.EstimateStyle),
	Error:    render(styles.ErrorStyle),
}

// PlainPainter leaves fragments untouched
var PlainPainter = Painter{
	Count:    identity,
	Size:     identity,
	Rate:     identity,
	Path:     identity,
	Estimate: identity,
	Error:    identity,
}

// CountsLine summarizes what has been deleted so far
func CountsLine(s progress.Sample, p Painter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deleted %s entries (%d files, %d dirs)",
		p.Count(fmt.Sprint(s.Deleted)), s.Files, s.Dirs)
	fmt.Fprintf(&b, " · %s freed", p.Size(progress.FormatBytes(s.Bytes)))
	fmt.Fprintf(&b, " · %s", p.Rate(progress.FormatRate(s.Rate)))
	fmt.Fprintf(&b, " · %s", progress.FormatDuration(s.Elapsed))
	if s.Skipped > 0 {
		fmt.Fprintf(&b, " · %d skipped", s.Skipped)
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, " · %s", p.Error(fmt.Sprintf("%d failed", s.Failed)))
	}
	return b.String()
}

// EstimateText describes the total when no bar can be shown. It is empty
// when there is nothing to say.
func EstimateText(s progress.Sample, p Painter) string {
	switch {
	case s.HasTotal:
		return ""
	case s.Counting:
		return p.Estimate(fmt.Sprintf("counting... %d found", s.Counted))
	case s.Approximate:
		return p.Estimate(fmt.Sprintf("~%d estimated", s.Counted))
	default:
		return ""
	}
}

// PercentText is the percentage and ETA shown next to the bar
func PercentText(s progress.Sample) string {
	text := fmt.Sprintf("%5.1f%% of %d", s.Fraction*100, s.Total)
	if s.HasETA {
		return text + " · ETA " + progress.FormatDuration(s.ETA)
	}
	return text + " · ETA unknown"
}

// PathLine shows the entry being worked on, keeping its tail when it does
// not fit
func PathLine(s progress.Sample, width int, p Painter) string {
	if s.Current == "" {
		return ""
	}
	return p.Path(FitPath(s.Current, width))
}

// FitPath shortens path to width runes by eliding its head
func FitPath(path string, width int) string {
	r := []rune(path)
	if width <= 0 || len(r) <= width {
		return path
	}
	if width <= 3 {
		return string(r[len(r)-width:])
	}
	return "..." + string(r[len(r)-(width-3):])
}
