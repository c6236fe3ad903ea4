// Package table builds, stores, and searches rainbow tables over the chain
// space defined in internal/chain. On disk a table is a fixed-width binary
// file of seed/terminal pairs behind a small versioned header; in memory the
// terminals are indexed so a search only re-walks chains that might contain
// the target digest.
package table

import (
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"rainbow/internal/chain"
)

// entry is one stored chain: the seed plaintext and the terminal digest the
// walk from it ends with. Everything in between is recomputed on demand.
type entry struct {
	pass     []byte
	terminal [md5.Size]byte
}

// Table is an in-memory rainbow table plus a terminal-digest index over its
// chains. Tables are immutable once built or read.
type Table struct {
	space chain.Space

	entries []entry
	// byTerminal maps a terminal digest to every chain ending in it.
	// Merged chains share a terminal, so the value is a slice.
	byTerminal map[[md5.Size]byte][]int
}

// Build walks one chain per seed and indexes the results. At most
// chainCount seeds are consumed; fewer seeds than that simply yield a
// smaller table. Every consumed seed must be exactly PassLength bytes.
// progress, when non-nil, is invoked after each completed chain.
func Build(space chain.Space, seeds []string, chainCount int, progress func(done, total int)) (*Table, error) {
	if chainCount < 1 {
		return nil, fmt.Errorf("chain count %d must be at least 1", chainCount)
	}
	if len(seeds) == 0 {
		return nil, errors.New("no seeds supplied")
	}
	if len(seeds) > chainCount {
		seeds = seeds[:chainCount]
	}
	for i, s := range seeds {
		if len(s) != space.PassLength() {
			return nil, fmt.Errorf("seed %d (%q) is %d bytes, want %d", i, s, len(s), space.PassLength())
		}
	}

	t := &Table{
		space:      space,
		entries:    make([]entry, len(seeds)),
		byTerminal: make(map[[md5.Size]byte][]int, len(seeds)),
	}
	for i, s := range seeds {
		pass := []byte(s)
		term := space.Terminal(pass)
		t.entries[i] = entry{pass: pass, terminal: term}
		t.byTerminal[term] = append(t.byTerminal[term], i)
		if progress != nil {
			progress(i+1, len(seeds))
		}
	}
	return t, nil
}

// Space returns the chain space the table was built over.
func (t *Table) Space() chain.Space { return t.space }

// Len returns the number of stored chains.
func (t *Table) Len() int { return len(t.entries) }

// Lookup searches the table for a password hashing to digest. For each
// column, the digest is projected forward to the terminal it would imply;
// chains ending in that terminal are re-walked from their seeds. Terminal
// hits that do not yield the digest are false alarms from chain merges and
// are skipped.
func (t *Table) Lookup(digest [md5.Size]byte) ([]byte, bool) {
	for col := t.space.ChainLength() - 1; col >= 0; col-- {
		term := t.space.Project(col, digest)
		for _, i := range t.byTerminal[term] {
			if pass, ok := t.space.WalkFind(t.entries[i].pass, digest); ok {
				return pass, true
			}
		}
	}
	return nil, false
}

// WriteFile writes the table to path, creating parent directories as
// needed. A sibling .lock file serializes access with concurrent readers
// and writers of the same path.
func (t *Table) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create table directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock table file %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write table file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close table file: %w", err)
	}
	return nil
}

// ReadFile reads a table from path under a shared lock.
func ReadFile(path string) (*Table, error) {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to lock table file %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table file: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read table file %s: %w", path, err)
	}
	return t, nil
}

// ReadFileHeader reads only the header of the table at path. Listing
// commands use it to describe tables without loading their chains.
func ReadFileHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("failed to open table file: %w", err)
	}
	defer f.Close()

	hdr, err := ReadHeader(f)
	if err != nil {
		return Header{}, fmt.Errorf("failed to read table file %s: %w", path, err)
	}
	return hdr, nil
}
