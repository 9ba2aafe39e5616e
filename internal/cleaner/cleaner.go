package cleaner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/fenilsonani/rm-rfp/internal/fsops"
	"github.com/fenilsonani/rm-rfp/internal/progress"
	"github.com/fenilsonani/rm-rfp/internal/prompt"
)

// ErrRootVanished is reported when a root path disappeared between
// validation and traversal
var ErrRootVanished = errors.New("root path vanished")

// RootError is a failure on an operator-supplied root path
type RootError struct {
	Path string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *RootError) Unwrap() error {
	return e.Err
}

// Prompter decides entry by entry in interactive mode
type Prompter interface {
	Decide(entry fsops.Entry, dir string) (prompt.Decision, error)
	Descend(entry fsops.Entry, dir string) (prompt.Decision, error)
	ExitDir(dir string)
	ResetScopes()
	Quitting() bool
}

// Result represents the outcome of a run
type Result struct {
	Deleted    uint64
	Dirs       uint64
	Bytes      uint64
	Skipped    uint64
	Failed     uint64
	Vanished   uint64
	Errors     []*DeletionError
	RootErrors []*RootError
	Quit       bool
	DryRun     bool
	Duration   time.Duration
}

// Cleaner is the foreground traversal: it walks every root post-order and
// removes entries, never touching a directory before all of its children
// have been handled.
type Cleaner struct {
	lister   *fsops.Lister
	deleter  fsops.Deleter
	totals   *progress.Totals
	prompter Prompter
	manifest *DeletionManifest
	dryRun   bool
	log      zerolog.Logger

	retryDelays []time.Duration
	sleep       func(time.Duration)

	errs     []*DeletionError
	rootErrs []*RootError
}

// Option configures a Cleaner
type Option func(*Cleaner)

// WithPrompter enables interactive mode
func WithPrompter(p Prompter) Option {
	return func(c *Cleaner) {
		c.prompter = p
	}
}

// WithDryRun replaces the delete primitive with a no-op
func WithDryRun(dryRun bool) Option {
	return func(c *Cleaner) {
		c.dryRun = dryRun
	}
}

// WithManifest records every removed entry in m
func WithManifest(m *DeletionManifest) Option {
	return func(c *Cleaner) {
		c.manifest = m
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cleaner) {
		c.log = log
	}
}

// WithRetryDelays sets the waits between attempts at a busy entry.
// An empty list disables retries.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(c *Cleaner) {
		c.retryDelays = delays
	}
}

// New creates a Cleaner. totals is written by the Cleaner only.
func New(lister *fsops.Lister, deleter fsops.Deleter, totals *progress.Totals, opts ...Option) *Cleaner {
	c := &Cleaner{
		lister:  lister,
		deleter: deleter,
		totals:  totals,
		log:     zerolog.Nop(),
		retryDelays: []time.Duration{
			100 * time.Millisecond,
			500 * time.Millisecond,
		},
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dryRun {
		c.deleter = fsops.DryRunDeleter{}
	}
	return c
}

// Totals returns the counters this Cleaner writes to
func (c *Cleaner) Totals() *progress.Totals {
	return c.totals
}

// Run deletes every root in order. Per-entry failures are collected in the
// result and never fail the run. A root that cannot be stat'ed (usually
// because it vanished after validation) is skipped and fails the run once
// every other root has been processed. A broken prompt or cancellation stops
// the run outright.
func (c *Cleaner) Run(ctx context.Context, roots []string) (*Result, error) {
	start := time.Now()

	var runErr error
	for _, root := range roots {
		if c.stopping(ctx) {
			break
		}
		if c.prompter != nil {
			c.prompter.ResetScopes()
		}
		if err := c.runRoot(ctx, filepath.Clean(root)); err != nil {
			runErr = err
			break
		}
	}

	if runErr == nil && ctx.Err() != nil && !c.quitting() {
		runErr = ctx.Err()
	}

	result := c.result(time.Since(start))

	switch {
	case runErr != nil:
		c.totals.Fail(runErr)
		return result, runErr
	case len(c.rootErrs) > 0:
		errs := make([]error, len(c.rootErrs))
		for i, e := range c.rootErrs {
			errs[i] = e
		}
		err := errors.Join(errs...)
		c.totals.Fail(err)
		return result, err
	default:
		c.totals.Finish()
		return result, nil
	}
}

func (c *Cleaner) runRoot(ctx context.Context, root string) error {
	e, err := c.lister.Lstat(root)
	if err != nil {
		rootErr := &RootError{Path: root, Err: err}
		if IsGone(err) {
			rootErr.Err = fmt.Errorf("%w: %w", ErrRootVanished, err)
		}
		c.rootErrs = append(c.rootErrs, rootErr)
		c.log.Error().Err(err).Str("path", root).Msg("cannot stat root")
		return nil
	}

	c.log.Debug().Str("path", root).Str("kind", e.Kind.String()).Msg("deleting root")
	_, err = c.visit(ctx, e, filepath.Dir(root))
	return err
}

// visit handles e and, for a directory, everything below it. It reports
// whether e is gone afterwards so the parent knows if it can be removed.
func (c *Cleaner) visit(ctx context.Context, e fsops.Entry, dir string) (bool, error) {
	if c.stopping(ctx) {
		return false, nil
	}
	c.totals.SetCurrent(e.Path)

	if e.IsDir() {
		if c.prompter != nil {
			d, err := c.prompter.Descend(e, dir)
			if err != nil {
				return false, err
			}
			if d == prompt.Skip {
				c.keep(e)
				return false, nil
			}
		}

		state, err := c.clearDir(ctx, e)
		if err != nil {
			return false, err
		}
		switch state {
		case dirVanished:
			c.exitDir(e.Path)
			return true, nil
		case dirUnreadable:
			c.exitDir(e.Path)
			return false, nil
		}
		if c.stopping(ctx) {
			return false, nil
		}
		if state == dirKept {
			// A kept child keeps its parent; nothing to ask about
			c.totals.AddSkipped()
			c.exitDir(e.Path)
			return false, nil
		}
	}

	if c.prompter != nil {
		d, err := c.prompter.Decide(e, dir)
		if err != nil {
			return false, err
		}
		if d == prompt.Skip {
			c.keep(e)
			return false, nil
		}
	}
	c.exitDir(e.Path)

	return c.remove(e), nil
}

// keep records an entry the operator chose not to delete
func (c *Cleaner) keep(e fsops.Entry) {
	if !c.quitting() {
		c.totals.AddSkipped()
	}
	c.exitDir(e.Path)
}

type dirState int

const (
	dirCleared    dirState = iota // every child is gone
	dirKept                       // at least one child survived
	dirUnreadable                 // listing failed, counted as an error
	dirVanished                   // the directory itself disappeared, counted as vanished
)

// clearDir visits every child of e. Listing failures are recorded against
// e here, so the caller must not count e again for them.
func (c *Cleaner) clearDir(ctx context.Context, e fsops.Entry) (dirState, error) {
	state := dirCleared
	for child, err := range c.lister.List(e.Path) {
		if err != nil {
			if IsGone(err) {
				// Removed behind our back; whatever was listed is handled
				c.recordGone(OpList, e.Path, err)
				return dirVanished, nil
			}
			c.recordError(OpList, e.Path, err)
			return dirUnreadable, nil
		}
		gone, err := c.visit(ctx, child, e.Path)
		if err != nil {
			return dirKept, err
		}
		if !gone {
			state = dirKept
		}
	}
	return state, nil
}

func (c *Cleaner) remove(e fsops.Entry) bool {
	err := c.removeWithRetry(e.Path)
	switch {
	case err == nil:
		c.totals.Add(e.SizeHint(), e.IsDir())
		if c.manifest != nil {
			c.manifest.Add(e.Path, e.SizeHint(), e.Kind.String())
		}
		return true
	case IsGone(err):
		c.recordGone(OpDelete, e.Path, err)
		return true
	default:
		c.recordError(OpDelete, e.Path, err)
		return false
	}
}

// removeWithRetry retries transient failures such as a busy file
func (c *Cleaner) removeWithRetry(path string) error {
	err := c.deleter.Remove(path)
	for _, delay := range c.retryDelays {
		if err == nil || !CategorizeError(OpDelete, path, err).Retryable {
			return err
		}
		c.log.Debug().Err(err).Str("path", path).Dur("delay", delay).Msg("retrying busy entry")
		c.sleep(delay)
		err = c.deleter.Remove(path)
	}
	return err
}

func (c *Cleaner) recordError(op Op, path string, err error) {
	delErr := CategorizeError(op, path, err)
	c.errs = append(c.errs, delErr)
	c.totals.AddError()
	c.log.Warn().Err(err).Str("op", string(op)).Str("path", path).Msg(delErr.Reason.String())
}

func (c *Cleaner) recordGone(op Op, path string, err error) {
	c.errs = append(c.errs, CategorizeError(op, path, err))
	c.totals.AddVanished()
	c.log.Debug().Str("op", string(op)).Str("path", path).Msg("entry vanished")
}

func (c *Cleaner) exitDir(dir string) {
	if c.prompter != nil {
		c.prompter.ExitDir(dir)
	}
}

func (c *Cleaner) quitting() bool {
	return c.prompter != nil && c.prompter.Quitting()
}

// stopping is checked before every entry. An in-flight delete always
// completes.
func (c *Cleaner) stopping(ctx context.Context) bool {
	return c.quitting() || ctx.Err() != nil
}

func (c *Cleaner) result(d time.Duration) *Result {
	snap := c.totals.Snapshot()
	return &Result{
		Deleted:    snap.Entries,
		Dirs:       snap.Dirs,
		Bytes:      snap.Bytes,
		Skipped:    snap.Skipped,
		Failed:     snap.Errors,
		Vanished:   snap.Vanished,
		Errors:     c.errs,
		RootErrors: c.rootErrs,
		Quit:       c.quitting(),
		DryRun:     c.dryRun,
		Duration:   d,
	}
}
