package cleaner

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/fenilsonani/rm-rfp/internal/fsops"
	"github.com/fenilsonani/rm-rfp/internal/progress"
	"github.com/fenilsonani/rm-rfp/internal/prompt"
	"github.com/fenilsonani/rm-rfp/internal/testutil"
)

func newCleaner(fsys afero.Fs, opts ...Option) *Cleaner {
	return New(fsops.NewLister(fsys), fsops.FsDeleter{Fs: fsys}, progress.NewTotals(), opts...)
}

// scriptedAsker replays canned answers and records every question
type scriptedAsker struct {
	answers   []string
	questions []string
}

func (s *scriptedAsker) Ask(q string) (string, error) {
	s.questions = append(s.questions, q)
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func (s *scriptedAsker) Say(string) error { return nil }

// =============================================================================
// Non-interactive runs
// =============================================================================

func TestRunDeletesWholeTree(t *testing.T) {
	fix := testutil.NewFixture(t)
	top := fix.MakeTree("tree", 4)

	want, err := testutil.CountEntries(top)
	if err != nil {
		t.Fatal(err)
	}

	c := newCleaner(afero.NewOsFs())
	result, err := c.Run(context.Background(), []string{top})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if result.Deleted != uint64(want) {
		t.Errorf("Deleted = %d, want %d", result.Deleted, want)
	}
	if result.Failed != 0 || result.Skipped != 0 {
		t.Errorf("unexpected failed=%d skipped=%d", result.Failed, result.Skipped)
	}
	fix.AssertFileNotExists(top)
	if c.Totals().State() != progress.StateFinished {
		t.Errorf("State = %v, want finished", c.Totals().State())
	}
}

func TestRunThreeFilesAndEmptyDir(t *testing.T) {
	fix := testutil.NewFixture(t)
	fix.CreateFileOfSize("root/a", 10)
	fix.CreateFileOfSize("root/b", 20)
	fix.CreateFileOfSize("root/c", 30)
	fix.CreateDir("root/empty")

	result, err := newCleaner(afero.NewOsFs()).Run(context.Background(), []string{fix.Path("root")})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if result.Deleted != 5 {
		t.Errorf("Deleted = %d, want 5", result.Deleted)
	}
	if result.Bytes != 60 {
		t.Errorf("Bytes = %d, want 60", result.Bytes)
	}
	if result.Dirs != 2 {
		t.Errorf("Dirs = %d, want 2", result.Dirs)
	}
	fix.AssertFileNotExists(fix.Path("root"))
}

func TestRunDryRunTwice(t *testing.T) {
	fix := testutil.NewFixture(t)
	top := fix.MakeTree("tree", 3)
	before := fix.Find(top)

	var counts []uint64
	for i := 0; i < 2; i++ {
		c := newCleaner(afero.NewOsFs(), WithDryRun(true))
		result, err := c.Run(context.Background(), []string{top})
		if err != nil {
			t.Fatalf("Run %d error: %v", i, err)
		}
		if !result.DryRun {
			t.Errorf("result should be marked dry run")
		}
		counts = append(counts, result.Deleted)
	}

	if counts[0] != counts[1] {
		t.Errorf("dry runs disagree: %v", counts)
	}
	if counts[0] != uint64(len(before)) {
		t.Errorf("Deleted = %d, want %d", counts[0], len(before))
	}
	if after := fix.Find(top); !slices.Equal(before, after) {
		t.Errorf("dry run changed the tree:\nbefore %v\nafter  %v", before, after)
	}
}

func TestRunPostOrder(t *testing.T) {
	fix := testutil.NewFixture(t)
	top := fix.MakeTree("tree", 3)
	fix.CreateDir("tree/a/empty")
	fix.CreateSymlink("aa", "tree/a/b/link")

	rec := &fsops.RecordingDeleter{Next: fsops.NewOSDeleter()}
	c := New(fsops.NewLister(afero.NewOsFs()), rec, progress.NewTotals())
	if _, err := c.Run(context.Background(), []string{top}); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	calls := rec.Calls()
	index := make(map[string]int, len(calls))
	for i, p := range calls {
		index[p] = i
	}
	for i, p := range calls {
		if p == top {
			continue
		}
		parent, ok := index[filepath.Dir(p)]
		if !ok {
			t.Fatalf("parent of %s never deleted", p)
		}
		if parent < i {
			t.Errorf("%s deleted before its child %s", filepath.Dir(p), p)
		}
	}
	if calls[len(calls)-1] != top {
		t.Errorf("root should be deleted last, got %s", calls[len(calls)-1])
	}
}

func TestRunMultipleRootsAndFileRoot(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{
		"/one/a": 1,
		"/two":   2,
	}))

	result, err := newCleaner(fsys).Run(context.Background(), []string{"/one", "/two"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Deleted != 3 || result.Bytes != 3 {
		t.Errorf("got deleted=%d bytes=%d, want 3/3", result.Deleted, result.Bytes)
	}
	for _, p := range []string{"/one", "/two"} {
		if testutil.MemExists(fsys, p) {
			t.Errorf("%s should be gone", p)
		}
	}
}

func TestRunTrailingSlashRoot(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{"/r/a": 1}))
	if _, err := newCleaner(fsys).Run(context.Background(), []string{"/r/"}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if testutil.MemExists(fsys, "/r") {
		t.Error("/r should be gone")
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestRunListErrorKeepsSubtree(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{
		"/root/locked/a": 1,
		"/root/open/b":   1,
		"/root/c":        1,
	}))
	fsys.FailOpen("/root/locked", syscall.EACCES)

	c := newCleaner(fsys)
	result, err := c.Run(context.Background(), []string{"/root"})
	if err != nil {
		t.Fatalf("per-entry errors must not fail the run: %v", err)
	}

	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	// root is kept; locked already counts as failed
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	// open, b, c
	if result.Deleted != 3 {
		t.Errorf("Deleted = %d, want 3", result.Deleted)
	}
	// root, locked, open, b, c
	if got := c.Totals().Snapshot().Processed(); got != 5 {
		t.Errorf("Processed = %d, want 5", got)
	}
	if len(result.Errors) != 1 || result.Errors[0].Op != OpList || result.Errors[0].Reason != ErrorPermissionDenied {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
	if !testutil.MemExists(fsys, "/root/locked/a") {
		t.Error("unreadable subtree should survive")
	}
}

func TestRunUnreadableDirectoryCountsOnce(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{"/locked/a": 1}))
	fsys.FailOpen("/locked", syscall.EACCES)

	c := newCleaner(fsys)
	result, err := c.Run(context.Background(), []string{"/locked"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Failed != 1 || result.Skipped != 0 || result.Deleted != 0 {
		t.Errorf("got failed=%d skipped=%d deleted=%d, want 1/0/0", result.Failed, result.Skipped, result.Deleted)
	}
	if got := c.Totals().Snapshot().Processed(); got != 1 {
		t.Errorf("Processed = %d, want 1", got)
	}
}

func TestRunDeleteErrorContinuesWithSiblings(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{
		"/root/a": 1,
		"/root/b": 1,
		"/root/c": 1,
	}))
	fsys.FailRemove("/root/b", syscall.EPERM)

	result, err := newCleaner(fsys).Run(context.Background(), []string{"/root"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Deleted != 2 || result.Failed != 1 || result.Skipped != 1 {
		t.Errorf("got deleted=%d failed=%d skipped=%d, want 2/1/1", result.Deleted, result.Failed, result.Skipped)
	}
	if testutil.MemExists(fsys, "/root/a") || testutil.MemExists(fsys, "/root/c") {
		t.Error("siblings of the failed entry should be deleted")
	}
}

func TestRunRootDeleteFailureIsReported(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{"/root/a": 1, "/other/b": 1}))
	fsys.FailRemove("/root", syscall.EBUSY)

	c := newCleaner(fsys, WithRetryDelays())
	result, err := c.Run(context.Background(), []string{"/root", "/other"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(result.Errors) != 1 || result.Errors[0].Path != "/root" {
		t.Errorf("expected the root failure to be reported, got %v", result.Errors)
	}
	if testutil.MemExists(fsys, "/other") {
		t.Error("other roots should still be processed")
	}
}

func TestRunVanishedEntryIsBenign(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{
		"/root/a": 1,
		"/root/b": 1,
	}))
	fsys.FailRemove("/root/a", fs.ErrNotExist)
	fsys.OnRemove(func(p string) {
		if p == "/root/a" {
			fsys.Fs.Remove(p)
		}
	})

	result, err := newCleaner(fsys).Run(context.Background(), []string{"/root"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Vanished != 1 {
		t.Errorf("Vanished = %d, want 1", result.Vanished)
	}
	if result.Failed != 0 {
		t.Errorf("Failed = %d, want 0", result.Failed)
	}
	if testutil.MemExists(fsys, "/root") {
		t.Error("parent of a vanished entry should still be removed")
	}
	if len(result.Errors) != 1 || result.Errors[0].Reason != ErrorFileNotFound {
		t.Errorf("expected one not-found record, got %v", result.Errors)
	}
}

func TestRunVanishedDirectoryCountsOnce(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{
		"/root/a":      1,
		"/root/gone/x": 1,
	}))
	// gone disappears after root was listed but before it is opened
	fsys.OnRemove(func(p string) {
		if p == "/root/a" {
			fsys.Fs.RemoveAll("/root/gone")
		}
	})

	c := newCleaner(fsys)
	result, err := c.Run(context.Background(), []string{"/root"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Vanished != 1 {
		t.Errorf("Vanished = %d, want 1", result.Vanished)
	}
	if result.Skipped != 0 || result.Failed != 0 {
		t.Errorf("got skipped=%d failed=%d, want 0/0", result.Skipped, result.Failed)
	}
	// a, root
	if result.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", result.Deleted)
	}
	// a, gone, root
	if got := c.Totals().Snapshot().Processed(); got != 3 {
		t.Errorf("Processed = %d, want 3", got)
	}
	if testutil.MemExists(fsys, "/root") {
		t.Error("/root should be gone")
	}
}

func TestRunRootVanished(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{"/ok/a": 1}))

	c := newCleaner(fsys)
	result, err := c.Run(context.Background(), []string{"/gone", "/ok"})
	if !errors.Is(err, ErrRootVanished) {
		t.Fatalf("Run error = %v, want ErrRootVanished", err)
	}

	var rootErr *RootError
	if !errors.As(err, &rootErr) || rootErr.Path != "/gone" {
		t.Errorf("expected RootError for /gone, got %v", err)
	}
	if testutil.MemExists(fsys, "/ok") {
		t.Error("remaining roots should still be deleted")
	}
	if result.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", result.Deleted)
	}
	if c.Totals().State() != progress.StateFailed {
		t.Errorf("State = %v, want failed", c.Totals().State())
	}
}

type flakyDeleter struct {
	fails int
	calls int
}

func (f *flakyDeleter) Remove(path string) error {
	f.calls++
	if f.calls <= f.fails {
		return &os.PathError{Op: "remove", Path: path, Err: syscall.EBUSY}
	}
	return nil
}

func TestRunRetriesBusyEntries(t *testing.T) {
	tests := []struct {
		name    string
		fails   int
		deleted uint64
		calls   int
	}{
		{"succeeds after one retry", 1, 1, 2},
		{"gives up after retries", 5, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := testutil.MemTree(t, map[string]int{"/f": 1})
			del := &flakyDeleter{fails: tt.fails}

			var slept []time.Duration
			c := New(fsops.NewLister(fsys), del, progress.NewTotals(), WithRetryDelays(time.Millisecond, 2*time.Millisecond))
			c.sleep = func(d time.Duration) { slept = append(slept, d) }

			result, err := c.Run(context.Background(), []string{"/f"})
			if err != nil {
				t.Fatalf("Run error: %v", err)
			}
			if result.Deleted != tt.deleted {
				t.Errorf("Deleted = %d, want %d", result.Deleted, tt.deleted)
			}
			if del.calls != tt.calls {
				t.Errorf("calls = %d, want %d", del.calls, tt.calls)
			}
			if len(slept) != tt.calls-1 {
				t.Errorf("slept %v", slept)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{"/root/a": 1}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newCleaner(fsys)
	result, err := c.Run(ctx, []string{"/root"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if result.Deleted != 0 {
		t.Errorf("Deleted = %d, want 0", result.Deleted)
	}
	if !testutil.MemExists(fsys, "/root/a") {
		t.Error("nothing should be deleted after cancellation")
	}
}

func TestRunManifest(t *testing.T) {
	fsys := testutil.NewFaultyFs(testutil.MemTree(t, map[string]int{"/root/a": 3}))
	m := NewDeletionManifest(false)

	if _, err := newCleaner(fsys, WithManifest(m)).Run(context.Background(), []string{"/root"}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(m.Files) != 2 || m.TotalSize != 3 {
		t.Fatalf("manifest = %+v", m)
	}
	if m.Files[0].Path != "/root/a" || m.Files[1].Path != "/root" {
		t.Errorf("manifest order = %s, %s", m.Files[0].Path, m.Files[1].Path)
	}

	out := filepath.Join(t.TempDir(), "manifest.txt")
	if err := m.Save(out); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Total Entries: 2") || !strings.Contains(string(data), "/root/a | 3 bytes | file") {
		t.Errorf("unexpected manifest:\n%s", data)
	}
}

// =============================================================================
// Interactive runs
// =============================================================================

func interactiveTree(t *testing.T, k int) *testutil.FaultyFs {
	t.Helper()
	entries := map[string]int{"/root/z": 1}
	for i := 0; i < k; i++ {
		entries[filepath.Join("/root/k", string(rune('a'+i)))] = 1
	}
	return testutil.NewFaultyFs(testutil.MemTree(t, entries))
}

func TestInteractiveAllStopsPrompting(t *testing.T) {
	fix := testutil.NewFixture(t)
	top := fix.MakeTree("tree", 3)
	want, _ := testutil.CountEntries(top)

	asker := &scriptedAsker{answers: []string{"a"}}
	c := newCleaner(afero.NewOsFs(), WithPrompter(prompt.New(asker)))
	result, err := c.Run(context.Background(), []string{top})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(asker.questions) != 1 {
		t.Errorf("asked %d times, want 1: %v", len(asker.questions), asker.questions)
	}
	if result.Deleted != uint64(want) {
		t.Errorf("Deleted = %d, want %d", result.Deleted, want)
	}
	fix.AssertFileNotExists(top)
}

func TestInteractiveSkipDirectory(t *testing.T) {
	const k = 4
	fsys := interactiveTree(t, k)

	// "s" at k's descend prompt keeps k unopened and covers the rest of
	// root, so z is kept too and root keeps its children.
	asker := &scriptedAsker{answers: []string{"y", "s", "y"}}
	result, err := newCleaner(fsys, WithPrompter(prompt.New(asker))).Run(context.Background(), []string{"/root"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []string{
		`descend into directory "/root"? (y/N/a/q/d/s/?) `,
		`descend into directory "/root/k"? (y/N/a/q/d/s/?) `,
	}
	if !slices.Equal(asker.questions, want) {
		t.Fatalf("questions:\n%s\nwant:\n%s", strings.Join(asker.questions, "\n"), strings.Join(want, "\n"))
	}
	if result.Deleted != 0 {
		t.Errorf("Deleted = %d, want 0", result.Deleted)
	}
	for i := 0; i < k; i++ {
		p := filepath.Join("/root/k", string(rune('a'+i)))
		if !testutil.MemExists(fsys, p) {
			t.Errorf("%s should survive", p)
		}
	}
	// k, z, root
	if result.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", result.Skipped)
	}
}

func TestInteractiveDeclineDescend(t *testing.T) {
	const k = 3
	fsys := interactiveTree(t, k)

	asker := &scriptedAsker{answers: []string{"y", "n", "y"}}
	result, err := newCleaner(fsys, WithPrompter(prompt.New(asker))).Run(context.Background(), []string{"/root"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(asker.questions) != 3 {
		t.Fatalf("asked %d times, want 3: %v", len(asker.questions), asker.questions)
	}
	if !strings.HasPrefix(asker.questions[2], `remove file "/root/z"`) {
		t.Errorf("third question = %q", asker.questions[2])
	}
	if result.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", result.Deleted)
	}
	if !testutil.MemExists(fsys, "/root/k/a") {
		t.Error("/root/k should not be opened")
	}
	// k, root
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", result.Skipped)
	}
}

func TestInteractiveDeleteDirectory(t *testing.T) {
	fsys := interactiveTree(t, 3)

	// "d" on k/a covers the rest of k and k itself
	asker := &scriptedAsker{answers: []string{"y", "y", "d", "n"}}
	result, err := newCleaner(fsys, WithPrompter(prompt.New(asker))).Run(context.Background(), []string{"/root"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(asker.questions) != 4 {
		t.Fatalf("asked %d times, want 4: %v", len(asker.questions), asker.questions)
	}
	if testutil.MemExists(fsys, "/root/k") {
		t.Error("/root/k should be deleted")
	}
	if !testutil.MemExists(fsys, "/root/z") {
		t.Error("/root/z should survive")
	}
	// 3 files + k
	if result.Deleted != 4 {
		t.Errorf("Deleted = %d, want 4", result.Deleted)
	}
}

func TestInteractiveQuit(t *testing.T) {
	fsys := interactiveTree(t, 3)

	asker := &scriptedAsker{answers: []string{"y", "y", "y", "q", "y"}}
	c := newCleaner(fsys, WithPrompter(prompt.New(asker)))
	result, err := c.Run(context.Background(), []string{"/root", "/elsewhere"})
	if err != nil {
		t.Fatalf("quit is not an error: %v", err)
	}

	if !result.Quit {
		t.Error("result should record the quit")
	}
	if len(asker.questions) != 4 {
		t.Errorf("asked %d times, want 4", len(asker.questions))
	}
	if result.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", result.Deleted)
	}
	if result.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", result.Skipped)
	}
	if c.Totals().State() != progress.StateFinished {
		t.Errorf("State = %v, want finished", c.Totals().State())
	}
}

func TestInteractiveEveryEntryIsAskedOnce(t *testing.T) {
	fsys := interactiveTree(t, 2)

	answers := make([]string, 10)
	for i := range answers {
		answers[i] = "y"
	}
	asker := &scriptedAsker{answers: answers}
	if _, err := newCleaner(fsys, WithPrompter(prompt.New(asker))).Run(context.Background(), []string{"/root"}); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []string{
		`descend into directory "/root"? (y/N/a/q/d/s/?) `,
		`descend into directory "/root/k"? (y/N/a/q/d/s/?) `,
		`remove file "/root/k/a" [1 B]? (y/N/a/q/d/s/?) `,
		`remove file "/root/k/b" [1 B]? (y/N/a/q/d/s/?) `,
		`remove directory "/root/k"? (y/N/a/q/d/s/?) `,
		`remove file "/root/z" [1 B]? (y/N/a/q/d/s/?) `,
		`remove directory "/root"? (y/N/a/q/d/s/?) `,
	}
	if !slices.Equal(asker.questions, want) {
		t.Errorf("questions:\n%s\nwant:\n%s", strings.Join(asker.questions, "\n"), strings.Join(want, "\n"))
	}
}
