// Package app wires the safety gate, the Counter, the Deleter and the
// progress Reporter into one run.
package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/fenilsonani/rm-rfp/internal/cleaner"
	"github.com/fenilsonani/rm-rfp/internal/fsops"
	"github.com/fenilsonani/rm-rfp/internal/platform"
	"github.com/fenilsonani/rm-rfp/internal/progress"
	"github.com/fenilsonani/rm-rfp/internal/prompt"
	"github.com/fenilsonani/rm-rfp/internal/scanner"
	"github.com/fenilsonani/rm-rfp/internal/security"
	"github.com/fenilsonani/rm-rfp/internal/ui"
)

// Options describes one run
type Options struct {
	Roots []string

	PreserveRoot   bool
	ProtectedPaths []string
	Interactive    bool
	DryRun         bool

	CountAhead    bool
	Workers       int
	SortThreshold int
	BatchSize     int
	RetryDelays   []time.Duration

	Interval   time.Duration
	RateWindow time.Duration

	// Display draws the status. When nil, NewDisplay is called once the
	// roots have passed validation, so a refused run never touches the
	// terminal. Both nil draws nothing.
	Display    ui.Display
	NewDisplay func() (ui.Display, error)
	// In and Out carry the interactive prompts
	In  io.Reader
	Out io.Writer
	// EchoNewline ends each prompt line after the answer, for input that is
	// not a terminal
	EchoNewline bool

	Manifest *cleaner.DeletionManifest
	Logger   *zerolog.Logger

	// Fs defaults to the OS filesystem
	Fs afero.Fs
	// Validator defaults to one built from PreserveRoot and ProtectedPaths
	Validator *security.PathValidator
}

// Outcome is what a run produced
type Outcome struct {
	Result  *cleaner.Result
	Final   progress.Sample
	Counted uint64
}

// Run validates every root and, only if all pass, deletes them while the
// Counter estimates the total and the Reporter draws progress. A safety
// failure is returned before anything is touched.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	validator := opts.Validator
	if validator == nil {
		validator = security.NewPathValidator(opts.PreserveRoot,
			security.WithProtectedPaths(opts.ProtectedPaths...))
	}
	if err := validator.Validate(opts.Roots); err != nil {
		return nil, err
	}

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	display := opts.Display
	if display == nil && opts.NewDisplay != nil {
		d, err := opts.NewDisplay()
		if err != nil {
			return nil, err
		}
		display = d
	}
	if display == nil {
		display = ui.Quiet{}
	}

	lister := fsops.NewLister(fsys,
		fsops.WithSortThreshold(opts.SortThreshold),
		fsops.WithBatchSize(opts.BatchSize),
	)

	var counter *scanner.Counter
	var counterTotals *progress.Totals
	if opts.CountAhead {
		counterTotals = progress.NewTotals()
		counter = scanner.NewCounter(lister, counterTotals,
			scanner.WithWorkers(opts.Workers),
			scanner.WithLogger(log.With().Str("component", "counter").Logger()),
		)
	}

	cleanerOpts := []cleaner.Option{
		cleaner.WithDryRun(opts.DryRun),
		cleaner.WithLogger(log.With().Str("component", "deleter").Logger()),
		cleaner.WithRetryDelays(opts.RetryDelays...),
	}
	if opts.Manifest != nil {
		cleanerOpts = append(cleanerOpts, cleaner.WithManifest(opts.Manifest))
	}
	if opts.Interactive {
		asker := prompt.NewLineAsker(opts.In, opts.Out)
		asker.EchoNewline = opts.EchoNewline
		asker.Suspender = display
		machine := prompt.New(asker, prompt.WithLogger(log.With().Str("component", "prompt").Logger()))
		cleanerOpts = append(cleanerOpts, cleaner.WithPrompter(machine))
	}
	deleter := cleaner.New(lister, fsops.FsDeleter{Fs: fsys}, progress.NewTotals(), cleanerOpts...)

	reporter := progress.NewReporter(counterTotals, deleter.Totals(), display,
		progress.WithInterval(opts.Interval),
		progress.WithRateWindow(opts.RateWindow),
	)

	log.Debug().
		Str("platform", string(platform.Detect())).
		Strs("roots", opts.Roots).
		Bool("dry_run", opts.DryRun).
		Bool("interactive", opts.Interactive).
		Msg("starting run")

	counterCtx, stopCounter := context.WithCancel(ctx)
	defer stopCounter()
	reporterCtx, stopReporter := context.WithCancel(ctx)
	defer stopReporter()

	var g errgroup.Group
	if counter != nil {
		g.Go(func() error {
			err := counter.Run(counterCtx, opts.Roots)
			if err != nil && !errors.Is(err, context.Canceled) {
				// The estimate is best effort; deletion carries on without it
				log.Warn().Err(err).Msg("counter failed")
			}
			return nil
		})
	}
	g.Go(func() error {
		return reporter.Run(reporterCtx)
	})

	var result *cleaner.Result
	g.Go(func() error {
		defer stopReporter()
		defer stopCounter()

		var err error
		result, err = deleter.Run(ctx, opts.Roots)
		return err
	})

	runErr := g.Wait()
	final := reporter.Finish()

	out := &Outcome{Result: result, Final: final}
	if counterTotals != nil {
		out.Counted = counterTotals.Snapshot().Entries
	}

	log.Debug().
		Uint64("deleted", final.Deleted).
		Uint64("skipped", final.Skipped).
		Uint64("failed", final.Failed).
		Uint64("counted", out.Counted).
		Msg("run finished")

	return out, runErr
}
