package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/fenilsonani/rm-rfp/internal/fsops"
	"github.com/fenilsonani/rm-rfp/internal/progress"
)

// DefaultWorkers is the default size of the listing pool
const DefaultWorkers = 16

// Counter walks the hierarchy read-only and as fast as possible, producing
// the estimate the progress display compares the Deleter against.
// It never deletes anything and shares nothing with the Deleter but its
// own Totals.
type Counter struct {
	lister  *fsops.Lister
	totals  *progress.Totals
	workers int
	log     zerolog.Logger

	wg   sync.WaitGroup
	pool *ants.Pool
}

// CounterOption configures a Counter
type CounterOption func(*Counter)

// WithWorkers sets the number of concurrent directory listings
func WithWorkers(n int) CounterOption {
	return func(c *Counter) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) CounterOption {
	return func(c *Counter) {
		c.log = log
	}
}

// NewCounter creates a Counter that accumulates into totals
func NewCounter(lister *fsops.Lister, totals *progress.Totals, opts ...CounterOption) *Counter {
	c := &Counter{
		lister:  lister,
		totals:  totals,
		workers: DefaultWorkers,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Totals returns the counters this Counter writes to
func (c *Counter) Totals() *progress.Totals {
	return c.totals
}

// Run counts every entry under roots, roots included. It returns when the
// traversal is complete or ctx is cancelled; in the latter case the totals
// end Failed with the context error.
func (c *Counter) Run(ctx context.Context, roots []string) error {
	pool, err := ants.NewPool(c.workers, ants.WithNonblocking(true))
	if err != nil {
		err = fmt.Errorf("create counter pool: %w", err)
		c.totals.Fail(err)
		return err
	}
	c.pool = pool
	defer pool.Release()

	for _, root := range roots {
		if ctx.Err() != nil {
			break
		}
		e, err := c.lister.Lstat(root)
		if err != nil {
			c.record(root, err)
			continue
		}
		c.totals.Add(e.SizeHint(), e.IsDir())
		if e.IsDir() {
			c.submit(ctx, e.Path)
		}
	}

	c.wg.Wait()

	if err := ctx.Err(); err != nil {
		c.totals.Fail(err)
		c.log.Debug().Err(err).Msg("counter stopped")
		return err
	}

	c.totals.Finish()
	snap := c.totals.Snapshot()
	c.log.Debug().
		Uint64("entries", snap.Entries).
		Uint64("bytes", snap.Bytes).
		Uint64("errors", snap.Errors).
		Uint64("vanished", snap.Vanished).
		Msg("counter finished")
	return nil
}

// submit lists dir on the pool, or inline when the pool is saturated so a
// full pool can never stall the traversal
func (c *Counter) submit(ctx context.Context, dir string) {
	c.wg.Add(1)
	task := func() {
		defer c.wg.Done()
		c.walk(ctx, dir)
	}
	if err := c.pool.Submit(task); err != nil {
		task()
	}
}

func (c *Counter) walk(ctx context.Context, dir string) {
	if ctx.Err() != nil {
		return
	}
	for e, err := range c.lister.List(dir) {
		if err != nil {
			c.record(dir, err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		c.totals.Add(e.SizeHint(), e.IsDir())
		if e.IsDir() {
			c.submit(ctx, e.Path)
		}
	}
}

// record tallies an unreadable entry. Entries that vanished (usually because
// the Deleter got there first) are counted apart from real errors.
func (c *Counter) record(path string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		c.totals.AddVanished()
		return
	}
	c.totals.AddError()
	c.log.Debug().Err(err).Str("path", path).Msg("counter could not read entry")
}
