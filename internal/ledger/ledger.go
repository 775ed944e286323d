// Package ledger tracks the physical files met during a directory walk.
//
// Every regular file is identified by its inode. The first time an inode is
// seen it is inserted together with its on-disk hard-link count; every further
// occurrence decrements that count. Once the walk is over, an entry whose
// remaining link count is still above one has hard links living outside the
// walked tree.
package ledger

import "errors"

// ErrDuplicate is returned by Insert for an inode that is already recorded.
var ErrDuplicate = errors.New("inode already recorded")

// Entry describes one physical file (one inode).
type Entry struct {
	// Inode identifies the file within its filesystem.
	Inode uint64 `json:"inode"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// RemainingLinks starts at the on-disk hard-link count and is decremented
	// for every further occurrence of the inode.
	RemainingLinks uint64 `json:"remaining_links"`
}

// External reports whether the file has hard links that were not visited.
func (e Entry) External() bool {
	return e.RemainingLinks > 1
}

// Summary holds the tree-wide totals derived from a ledger.
type Summary struct {
	// Files is the number of distinct files.
	Files int64 `json:"files"`
	// Bytes is the combined size of the distinct files.
	Bytes int64 `json:"bytes"`
	// ExternalFiles is the number of files with hard links outside the tree.
	ExternalFiles int64 `json:"external_files"`
	// ExternalBytes is the combined size of those files.
	ExternalBytes int64 `json:"external_bytes"`
}

// Ledger maps inodes to entries. The zero value is not usable; use New.
// A Ledger is not safe for concurrent use.
type Ledger struct {
	entries map[uint64]*Entry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[uint64]*Entry)}
}

// Touch reports whether inode is already recorded. If it is, its remaining
// link count is decremented.
func (l *Ledger) Touch(inode uint64) bool {
	e, ok := l.entries[inode]
	if !ok {
		return false
	}

	if e.RemainingLinks > 0 {
		e.RemainingLinks--
	}

	return true
}

// Insert records a new file. It must only be called after Touch returned
// false for the same inode.
func (l *Ledger) Insert(size int64, links, inode uint64) error {
	if _, ok := l.entries[inode]; ok {
		return ErrDuplicate
	}

	l.entries[inode] = &Entry{Inode: inode, Size: size, RemainingLinks: links}

	return nil
}

// Record touches inode and inserts it when it was unknown.
// It returns true if the inode had been seen before.
func (l *Ledger) Record(size int64, links, inode uint64) bool {
	if l.Touch(inode) {
		return true
	}

	if err := l.Insert(size, links, inode); err != nil {
		panic("ledger: insert after failed touch: " + err.Error())
	}

	return false
}

// Get returns a copy of the entry for inode.
func (l *Ledger) Get(inode uint64) (Entry, bool) {
	e, ok := l.entries[inode]
	if !ok {
		return Entry{}, false
	}

	return *e, true
}

// Len returns the number of distinct files recorded.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Summarize computes the distinct and externally linked totals.
func (l *Ledger) Summarize() Summary {
	var s Summary

	for _, e := range l.entries {
		s.Files++
		s.Bytes += e.Size

		if e.External() {
			s.ExternalFiles++
			s.ExternalBytes += e.Size
		}
	}

	return s
}
