package progress

import (
	"fmt"
	"sync/atomic"
	"time"
)

// State represents the lifecycle of a traversal
type State int32

const (
	StateRunning State = iota
	StateFinished
	StateFailed
)

// String returns a human-readable state
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Totals holds the running counters of one traversal. Only the owning
// traversal writes; any goroutine may read through Snapshot.
type Totals struct {
	entries  atomic.Uint64
	bytes    atomic.Uint64
	dirs     atomic.Uint64
	skipped  atomic.Uint64
	errors   atomic.Uint64
	vanished atomic.Uint64

	state   atomic.Int32
	err     atomic.Pointer[error]
	current atomic.Pointer[string]
}

// NewTotals creates a new Totals in the running state
func NewTotals() *Totals {
	return &Totals{}
}

// Add records one entry. Directories contribute no bytes.
func (t *Totals) Add(size int64, isDir bool) {
	t.entries.Add(1)
	if isDir {
		t.dirs.Add(1)
		return
	}
	if size > 0 {
		t.bytes.Add(uint64(size))
	}
}

// AddSkipped records an entry that was left in place
func (t *Totals) AddSkipped() {
	t.skipped.Add(1)
}

// AddError records an entry that could not be listed or removed
func (t *Totals) AddError() {
	t.errors.Add(1)
}

// AddVanished records an entry that disappeared mid-traversal
func (t *Totals) AddVanished() {
	t.vanished.Add(1)
}

// SetCurrent publishes the path the traversal is working on
func (t *Totals) SetCurrent(path string) {
	t.current.Store(&path)
}

// Finish moves the traversal to StateFinished. It is a no-op once a terminal
// state has been reached.
func (t *Totals) Finish() bool {
	return t.state.CompareAndSwap(int32(StateRunning), int32(StateFinished))
}

// Fail moves the traversal to StateFailed with err. It is a no-op once a
// terminal state has been reached.
func (t *Totals) Fail(err error) bool {
	if !t.state.CompareAndSwap(int32(StateRunning), int32(StateFailed)) {
		return false
	}
	t.err.Store(&err)
	return true
}

// State returns the current traversal state
func (t *Totals) State() State {
	return State(t.state.Load())
}

// Err returns the failure cause, if any
func (t *Totals) Err() error {
	if p := t.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Snapshot is a point-in-time copy of Totals
type Snapshot struct {
	Entries  uint64
	Bytes    uint64
	Dirs     uint64
	Skipped  uint64
	Errors   uint64
	Vanished uint64
	State    State
	Current  string
}

// Files returns the number of non-directory entries
func (s Snapshot) Files() uint64 {
	return s.Entries - s.Dirs
}

// Processed returns every entry the traversal has dealt with, whatever the
// outcome
func (s Snapshot) Processed() uint64 {
	return s.Entries + s.Skipped + s.Errors + s.Vanished
}

// Snapshot reads all counters without blocking the writer. The state is read
// first so a Finished snapshot never carries counts older than the transition.
func (t *Totals) Snapshot() Snapshot {
	state := State(t.state.Load())
	s := Snapshot{
		Entries:  t.entries.Load(),
		Bytes:    t.bytes.Load(),
		Dirs:     t.dirs.Load(),
		Skipped:  t.skipped.Load(),
		Errors:   t.errors.Load(),
		Vanished: t.vanished.Load(),
		State:    state,
	}
	if p := t.current.Load(); p != nil {
		s.Current = *p
	}
	return s
}

// FormatBytes formats bytes in human-readable format
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatRate formats an entries-per-second figure
func FormatRate(rate float64) string {
	switch {
	case rate >= 1_000_000:
		return fmt.Sprintf("%.1fM/s", rate/1_000_000)
	case rate >= 10_000:
		return fmt.Sprintf("%.1fk/s", rate/1_000)
	case rate >= 10:
		return fmt.Sprintf("%.0f/s", rate)
	default:
		return fmt.Sprintf("%.1f/s", rate)
	}
}
