package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/rm-rfp/internal/cleaner"
	"github.com/fenilsonani/rm-rfp/internal/progress"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatAuto    OutputFormat = "auto"
	FormatSummary OutputFormat = "summary"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatNone    OutputFormat = "none"
)

// Resolve turns FormatAuto into a summary when the report goes to a
// terminal and into no report otherwise. Other formats are returned as is.
func Resolve(format OutputFormat, terminal bool) OutputFormat {
	if format != FormatAuto {
		return format
	}
	if terminal {
		return FormatSummary
	}
	return FormatNone
}

// Report is the end-of-run record
type Report struct {
	Roots    []string
	Result   *cleaner.Result
	Counted  uint64 // entries found by the counter, 0 when it did not run
	Finished time.Time
}

// ErrorEntry is one failed entry in machine-readable reports
type ErrorEntry struct {
	Path   string `json:"path" yaml:"path"`
	Op     string `json:"op" yaml:"op"`
	Reason string `json:"reason" yaml:"reason"`
	Error  string `json:"error" yaml:"error"`
}

type document struct {
	Timestamp           string       `json:"timestamp" yaml:"timestamp"`
	Roots               []string     `json:"roots" yaml:"roots"`
	DryRun              bool         `json:"dry_run" yaml:"dry_run"`
	Quit                bool         `json:"quit" yaml:"quit"`
	Deleted             uint64       `json:"deleted" yaml:"deleted"`
	Files               uint64       `json:"files" yaml:"files"`
	Dirs                uint64       `json:"dirs" yaml:"dirs"`
	BytesFreed          uint64       `json:"bytes_freed" yaml:"bytes_freed"`
	BytesFreedFormatted string       `json:"bytes_freed_formatted" yaml:"bytes_freed_formatted"`
	Skipped             uint64       `json:"skipped" yaml:"skipped"`
	Failed              uint64       `json:"failed" yaml:"failed"`
	Vanished            uint64       `json:"vanished" yaml:"vanished"`
	Counted             uint64       `json:"counted,omitempty" yaml:"counted,omitempty"`
	DurationSeconds     float64      `json:"duration_seconds" yaml:"duration_seconds"`
	Errors              []ErrorEntry `json:"errors" yaml:"errors"`
	RootErrors          []ErrorEntry `json:"root_errors,omitempty" yaml:"root_errors,omitempty"`
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// Report writes the run report in the configured format
func (r *Reporter) Report(rep Report) error {
	switch r.format {
	case FormatSummary:
		return r.reportSummary(rep)
	case FormatJSON:
		return r.reportJSON(rep)
	case FormatYAML:
		return r.reportYAML(rep)
	case FormatNone:
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// reportSummary generates a human-readable summary
func (r *Reporter) reportSummary(rep Report) error {
	res := rep.Result

	title := "=== Deletion Summary ==="
	if res.DryRun {
		title = "=== Dry Run Summary (nothing was deleted) ==="
	}
	fmt.Fprintf(r.writer, "%s\n", title)

	verb := "Deleted"
	if res.DryRun {
		verb = "Would delete"
	}
	fmt.Fprintf(r.writer, "%s: %d entries (%d files, %d dirs)\n", verb, res.Deleted, res.Deleted-res.Dirs, res.Dirs)
	fmt.Fprintf(r.writer, "Freed: %s\n", progress.FormatBytes(res.Bytes))
	if res.Skipped > 0 {
		fmt.Fprintf(r.writer, "Skipped: %d\n", res.Skipped)
	}
	if res.Failed > 0 {
		fmt.Fprintf(r.writer, "Failed: %d\n", res.Failed)
	}
	fmt.Fprintf(r.writer, "Duration: %s\n", progress.FormatDuration(res.Duration))
	if res.Quit {
		fmt.Fprintf(r.writer, "Stopped early at the operator's request\n")
	}

	for _, e := range res.RootErrors {
		fmt.Fprintf(r.writer, "Root %s\n", e.Error())
	}

	if summary := cleaner.FormatErrorSummary(res.Errors); summary != "" {
		fmt.Fprint(r.writer, summary)
	}

	return nil
}

// reportJSON generates a JSON report
func (r *Reporter) reportJSON(rep Report) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newDocument(rep))
}

// reportYAML generates a YAML report
func (r *Reporter) reportYAML(rep Report) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(newDocument(rep))
}

func newDocument(rep Report) document {
	res := rep.Result
	finished := rep.Finished
	if finished.IsZero() {
		finished = time.Now()
	}

	doc := document{
		Timestamp:           finished.Format(time.RFC3339),
		Roots:               rep.Roots,
		DryRun:              res.DryRun,
		Quit:                res.Quit,
		Deleted:             res.Deleted,
		Files:               res.Deleted - res.Dirs,
		Dirs:                res.Dirs,
		BytesFreed:          res.Bytes,
		BytesFreedFormatted: progress.FormatBytes(res.Bytes),
		Skipped:             res.Skipped,
		Failed:              res.Failed,
		Vanished:            res.Vanished,
		Counted:             rep.Counted,
		DurationSeconds:     res.Duration.Seconds(),
		Errors:              make([]ErrorEntry, 0, len(res.Errors)),
	}
	for _, e := range res.Errors {
		doc.Errors = append(doc.Errors, ErrorEntry{
			Path:   e.Path,
			Op:     string(e.Op),
			Reason: e.Reason.String(),
			Error:  errString(e.Original),
		})
	}
	for _, e := range res.RootErrors {
		doc.RootErrors = append(doc.RootErrors, ErrorEntry{
			Path:   e.Path,
			Op:     string(cleaner.OpStat),
			Reason: "Root unavailable",
			Error:  errString(e.Err),
		})
	}
	return doc
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// SaveToFile saves the report to a file
func SaveToFile(rep Report, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reporter := New(file, format)
	return reporter.Report(rep)
}
