// Package prompt implements the interactive confirmation state machine used
// by the Deleter in -i mode.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/fenilsonani/rm-rfp/internal/fsops"
	"github.com/fenilsonani/rm-rfp/internal/progress"
)

// Decision is the verdict for a single entry
type Decision int

const (
	Skip Decision = iota
	Delete
)

// String returns a human-readable decision
func (d Decision) String() string {
	if d == Delete {
		return "delete"
	}
	return "skip"
}

// ScopeKind tags a directory-scoped decision
type ScopeKind int

const (
	DirectoryDeleteAll ScopeKind = iota
	DirectorySkipAll
)

// Scope is a decision that holds for a directory and everything below it
type Scope struct {
	Kind ScopeKind
	Dir  string
}

func (s Scope) decision() Decision {
	if s.Kind == DirectoryDeleteAll {
		return Delete
	}
	return Skip
}

func (s Scope) covers(path string) bool {
	return path == s.Dir || isWithin(s.Dir, path)
}

// Asker talks to the operator. Ask shows question and returns one line of
// input without its line ending; io.EOF means no more input. Say prints a
// full line.
type Asker interface {
	Ask(question string) (string, error)
	Say(line string) error
}

const (
	choices = "(y/N/a/q/d/s/?) "

	badInput = `Bad input. Enter "?" for help`

	helpText = "y - Yes, delete it\n" +
		"n - No, don't delete it\n" +
		"a - Delete this and everything else (without any further prompts)\n" +
		"q - Quit without deleting this nor anything else\n" +
		"d - Delete this and the rest of its directory without further prompts\n" +
		"s - Don't delete this or anything else in its directory, but continue asking about other items\n" +
		"? - Show help"
)

// Machine answers "should this entry be deleted?" for the Deleter, only
// asking the operator when no broader decision is in force. It is driven by
// a single goroutine; Quitting may be read from any goroutine.
type Machine struct {
	asker Asker
	log   zerolog.Logger

	all    bool
	quit   atomic.Bool
	scopes []Scope
}

// Option configures a Machine
type Option func(*Machine)

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(m *Machine) {
		m.log = log
	}
}

// New creates a Machine that asks through asker
func New(asker Asker, opts ...Option) *Machine {
	m := &Machine{
		asker: asker,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Decide returns the verdict for entry, which lives in dir
func (m *Machine) Decide(entry fsops.Entry, dir string) (Decision, error) {
	return m.decide(entry, dir, Question(entry))
}

// Descend decides whether the directory entry, which lives in dir, is
// opened at all. Skip keeps the whole subtree without asking about any of it.
// The answers and their scopes are the same as for Decide.
func (m *Machine) Descend(entry fsops.Entry, dir string) (Decision, error) {
	return m.decide(entry, dir, DescendQuestion(entry))
}

func (m *Machine) decide(entry fsops.Entry, dir, question string) (Decision, error) {
	if m.quit.Load() {
		return Skip, nil
	}
	if m.all {
		return Delete, nil
	}
	for i := len(m.scopes) - 1; i >= 0; i-- {
		if m.scopes[i].covers(entry.Path) {
			return m.scopes[i].decision(), nil
		}
	}
	return m.ask(question+"? "+choices, dir)
}

func (m *Machine) ask(question, dir string) (Decision, error) {
	for {
		answer, err := m.asker.Ask(question)
		if err != nil {
			if errors.Is(err, io.EOF) {
				m.log.Debug().Msg("prompt input closed, quitting")
				m.quit.Store(true)
				return Skip, nil
			}
			return Skip, fmt.Errorf("read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y":
			return Delete, nil
		case "", "n":
			return Skip, nil
		case "a":
			m.all = true
			return Delete, nil
		case "q":
			m.quit.Store(true)
			return Skip, nil
		case "d":
			m.push(Scope{Kind: DirectoryDeleteAll, Dir: dir})
			return Delete, nil
		case "s":
			m.push(Scope{Kind: DirectorySkipAll, Dir: dir})
			return Skip, nil
		case "?":
			err = m.asker.Say(helpText)
		default:
			err = m.asker.Say(badInput)
		}
		if err != nil {
			return Skip, fmt.Errorf("write prompt: %w", err)
		}
	}
}

func (m *Machine) push(s Scope) {
	m.log.Debug().Str("dir", s.Dir).Int("kind", int(s.Kind)).Msg("prompt scope pushed")
	m.scopes = append(m.scopes, s)
}

// ExitDir drops the scopes pushed for dir. The Deleter calls it once dir
// itself has been decided.
func (m *Machine) ExitDir(dir string) {
	kept := m.scopes[:0]
	for _, s := range m.scopes {
		if s.Dir != dir {
			kept = append(kept, s)
		}
	}
	m.scopes = kept
}

// ResetScopes drops every directory scope. Delete-all and quit persist.
func (m *Machine) ResetScopes() {
	m.scopes = m.scopes[:0]
}

// Quitting reports whether the operator asked to stop
func (m *Machine) Quitting() bool {
	return m.quit.Load()
}

// AllRemaining reports whether every remaining entry is being deleted
// without asking
func (m *Machine) AllRemaining() bool {
	return m.all
}

// Scopes returns a copy of the active directory scopes, innermost last
func (m *Machine) Scopes() []Scope {
	return append([]Scope(nil), m.scopes...)
}

// Question describes what deleting entry would do
func Question(entry fsops.Entry) string {
	p := fmt.Sprintf("%q", entry.Path)
	switch entry.Kind {
	case fsops.KindDir:
		return "remove directory " + p
	case fsops.KindFile:
		if entry.Size == 0 {
			return "remove empty file " + p
		}
		return fmt.Sprintf("remove file %s [%s]", p, progress.FormatBytes(uint64(entry.Size)))
	case fsops.KindOther:
		return "remove unknown file " + p
	default:
		return "remove " + entry.Kind.String() + " " + p
	}
}

// DescendQuestion asks whether to look inside the directory entry
func DescendQuestion(entry fsops.Entry) string {
	return fmt.Sprintf("descend into directory %q", entry.Path)
}

// isWithin reports whether path lies strictly below dir
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
