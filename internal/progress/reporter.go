package progress

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultInterval   = 100 * time.Millisecond
	DefaultRateWindow = 5 * time.Second
)

// Sample is a point-in-time view of a run, derived on each reporting tick
type Sample struct {
	Deleted   uint64
	Files     uint64
	Dirs      uint64
	Bytes     uint64
	Skipped   uint64
	Failed    uint64
	Processed uint64
	Current   string

	// Counter side. Total is only set when HasTotal is true.
	Counted      uint64
	CountedBytes uint64
	Counting     bool
	Approximate  bool
	Total        uint64
	HasTotal     bool

	Elapsed  time.Duration
	Rate     float64 // entries per second over the trailing window
	Fraction float64
	ETA      time.Duration
	HasETA   bool
}

// Display renders samples produced by a Reporter
type Display interface {
	Render(s Sample)
	Finish(s Sample)
}

type point struct {
	at        time.Time
	processed uint64
}

// Reporter polls the Counter and Deleter totals on a fixed cadence and
// renders at most one update per interval
type Reporter struct {
	counter  *Totals
	deleter  *Totals
	display  Display
	interval time.Duration
	window   time.Duration
	now      func() time.Time

	mu       sync.Mutex
	start    time.Time
	lastEmit time.Time
	emitted  bool
	points   []point
}

// Option configures a Reporter
type Option func(*Reporter)

// WithInterval sets the throttle interval
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithRateWindow sets the trailing window used to smooth the rate
func WithRateWindow(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// NewReporter creates a reporter. counter may be nil when no estimate is being
// produced.
func NewReporter(counter, deleter *Totals, display Display, opts ...Option) *Reporter {
	r := &Reporter{
		counter:  counter,
		deleter:  deleter,
		display:  display,
		interval: DefaultInterval,
		window:   DefaultRateWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.now()
	return r
}

// Run ticks until ctx is done. It never blocks either traversal.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Tick(r.now())
		}
	}
}

// Tick samples and renders, unless the previous render was less than one
// interval ago. A tenth of the interval is tolerated so that ticker ticks
// arriving slightly early are not dropped.
func (r *Reporter) Tick(now time.Time) (Sample, bool) {
	r.mu.Lock()
	if r.emitted && now.Sub(r.lastEmit) < r.interval-r.interval/10 {
		r.mu.Unlock()
		return Sample{}, false
	}
	s := r.sample(now)
	r.lastEmit = now
	r.emitted = true
	r.mu.Unlock()

	if r.display != nil {
		r.display.Render(s)
	}
	return s, true
}

// Finish renders a final sample regardless of the throttle
func (r *Reporter) Finish() Sample {
	r.mu.Lock()
	s := r.sample(r.now())
	r.mu.Unlock()

	if r.display != nil {
		r.display.Finish(s)
	}
	return s
}

func (r *Reporter) sample(now time.Time) Sample {
	d := r.deleter.Snapshot()
	processed := d.Processed()
	r.record(now, processed)

	s := Sample{
		Deleted:   d.Entries,
		Files:     d.Files(),
		Dirs:      d.Dirs,
		Bytes:     d.Bytes,
		Skipped:   d.Skipped,
		Failed:    d.Errors,
		Processed: processed,
		Current:   d.Current,
		Elapsed:   now.Sub(r.start),
		Rate:      r.rate(),
	}

	if r.counter == nil {
		return s
	}

	c := r.counter.Snapshot()
	s.Counted = c.Entries
	s.CountedBytes = c.Bytes
	s.Counting = c.State == StateRunning

	if c.State != StateFinished || c.Entries == 0 {
		return s
	}
	// A Deleter ahead of the Counter means the Counter missed a subtree
	if c.Errors > 0 || c.Vanished > 0 || processed > c.Entries {
		s.Approximate = true
		return s
	}

	s.Total = c.Entries
	s.HasTotal = true
	s.Fraction = float64(processed) / float64(c.Entries)

	remaining := c.Entries - processed
	switch {
	case remaining == 0:
		s.HasETA = true
	case s.Rate > 0:
		s.ETA = time.Duration(float64(remaining) / s.Rate * float64(time.Second))
		s.HasETA = true
	}
	return s
}

// record appends a rate point and drops points that fell out of the window,
// keeping one point at or before the window start as the baseline
func (r *Reporter) record(now time.Time, processed uint64) {
	r.points = append(r.points, point{at: now, processed: processed})

	cutoff := now.Add(-r.window)
	drop := 0
	for drop+1 < len(r.points)-1 && !r.points[drop+1].at.After(cutoff) {
		drop++
	}
	if drop > 0 {
		r.points = append(r.points[:0], r.points[drop:]...)
	}
}

func (r *Reporter) rate() float64 {
	if len(r.points) < 2 {
		return 0
	}
	first, last := r.points[0], r.points[len(r.points)-1]
	dt := last.at.Sub(first.at).Seconds()
	if dt <= 0 || last.processed < first.processed {
		return 0
	}
	return float64(last.processed-first.processed) / dt
}
