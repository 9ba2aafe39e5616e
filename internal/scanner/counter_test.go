package scanner

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/fenilsonani/rm-rfp/internal/fsops"
	"github.com/fenilsonani/rm-rfp/internal/progress"
	"github.com/fenilsonani/rm-rfp/internal/testutil"
)

func TestCounterCountsEverything(t *testing.T) {
	fs := testutil.MemTree(t, map[string]int{
		"/root/a":       10,
		"/root/b":       20,
		"/root/c":       30,
		"/root/empty/":  0,
		"/root/sub/d":   5,
		"/root/sub/e/f": 7,
	})

	totals := progress.NewTotals()
	c := NewCounter(fsops.NewLister(fs), totals, WithWorkers(2))
	if err := c.Run(context.Background(), []string{"/root"}); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	snap := totals.Snapshot()
	// root, a, b, c, empty, sub, d, e, f
	if snap.Entries != 9 {
		t.Errorf("Entries = %d, want 9", snap.Entries)
	}
	if snap.Dirs != 4 {
		t.Errorf("Dirs = %d, want 4", snap.Dirs)
	}
	if snap.Bytes != 72 {
		t.Errorf("Bytes = %d, want 72", snap.Bytes)
	}
	if snap.State != progress.StateFinished {
		t.Errorf("State = %v, want finished", snap.State)
	}
	if snap.Errors != 0 || snap.Vanished != 0 {
		t.Errorf("unexpected errors=%d vanished=%d", snap.Errors, snap.Vanished)
	}
}

func TestCounterMultipleRootsAndFiles(t *testing.T) {
	fs := testutil.MemTree(t, map[string]int{
		"/one/x": 1,
		"/two":   2,
	})

	totals := progress.NewTotals()
	if err := NewCounter(fsops.NewLister(fs), totals).Run(context.Background(), []string{"/one", "/two"}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	snap := totals.Snapshot()
	if snap.Entries != 3 || snap.Bytes != 3 {
		t.Errorf("got entries=%d bytes=%d, want 3/3", snap.Entries, snap.Bytes)
	}
}

func TestCounterSaturatedPool(t *testing.T) {
	entries := make(map[string]int)
	for i := 0; i < 20; i++ {
		for j := 0; j < 5; j++ {
			entries[fmt.Sprintf("/root/d%02d/s%d/f", i, j)] = 1
		}
	}
	fs := testutil.MemTree(t, entries)

	totals := progress.NewTotals()
	if err := NewCounter(fsops.NewLister(fs), totals, WithWorkers(1)).Run(context.Background(), []string{"/root"}); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// root + 20 dirs + 100 subdirs + 100 files
	if got := totals.Snapshot().Entries; got != 221 {
		t.Errorf("Entries = %d, want 221", got)
	}
}

func TestCounterRecordsErrorsAndContinues(t *testing.T) {
	faulty := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{
		"/root/locked/a": 1,
		"/root/open/b":   1,
	}))
	faulty.FailOpen("/root/locked", syscall.EACCES)

	totals := progress.NewTotals()
	if err := NewCounter(fsops.NewLister(faulty), totals).Run(context.Background(), []string{"/root"}); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	snap := totals.Snapshot()
	if snap.Errors != 1 {
		t.Errorf("Errors = %d, want 1", snap.Errors)
	}
	// root, locked, open, b
	if snap.Entries != 4 {
		t.Errorf("Entries = %d, want 4", snap.Entries)
	}
	if snap.State != progress.StateFinished {
		t.Errorf("State = %v, want finished", snap.State)
	}
}

func TestCounterVanishedRoot(t *testing.T) {
	fs := testutil.MemTree(t, map[string]int{"/present": 1})

	totals := progress.NewTotals()
	if err := NewCounter(fsops.NewLister(fs), totals).Run(context.Background(), []string{"/gone", "/present"}); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	snap := totals.Snapshot()
	if snap.Vanished != 1 {
		t.Errorf("Vanished = %d, want 1", snap.Vanished)
	}
	if snap.Entries != 1 {
		t.Errorf("Entries = %d, want 1", snap.Entries)
	}
}

func TestCounterCancelled(t *testing.T) {
	fs := testutil.MemTree(t, map[string]int{"/root/a": 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	totals := progress.NewTotals()
	err := NewCounter(fsops.NewLister(fs), totals).Run(ctx, []string{"/root"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if totals.State() != progress.StateFailed {
		t.Errorf("State = %v, want failed", totals.State())
	}
	if !errors.Is(totals.Err(), context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", totals.Err())
	}
}

func TestCounterMatchesOnDiskTree(t *testing.T) {
	fix := testutil.NewFixture(t)
	top := fix.MakeTree("tree", 3)

	want, err := testutil.CountEntries(top)
	if err != nil {
		t.Fatal(err)
	}

	totals := progress.NewTotals()
	if err := NewCounter(fsops.NewLister(fsops.NewOSDeleter().Fs), totals).Run(context.Background(), []string{top}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := totals.Snapshot().Entries; got != uint64(want) {
		t.Errorf("Entries = %d, want %d", got, want)
	}
}
