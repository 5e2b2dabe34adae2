// pkg/index/index.go
//
// Package index is the thin stand-in for the "index layer" spec.md §6
// treats as an external collaborator: the MVCC engine only ever calls
// Replace, Lookup, a cursor's iteration, and the comparison primitives, so
// that is all this package implements. It deliberately does not attempt a
// faithful B-tree (page layout, node splits, on-disk format) — spec.md §1
// places "the indexes themselves" out of scope, and a full storage engine
// here would just be re-implementing what the spec excludes.
package index

import (
	"errors"
	"hash/fnv"

	"tur/pkg/tuple"
)

var (
	// ErrKeyNotFound is returned by Lookup and by Replace in REPLACE mode
	// when no existing entry matches the key.
	ErrKeyNotFound = errors.New("index: key not found")
	// ErrDuplicateKey is returned by Replace in INSERT mode when the key
	// already exists; the MVCC engine resolves this against a dirty
	// displacement's visibility before surfacing it to the caller
	// (spec.md §4.5).
	ErrDuplicateKey = errors.New("index: duplicate key")
)

// ReplaceMode mirrors spec.md §6's three replace modes.
type ReplaceMode int

const (
	ModeInsert ReplaceMode = iota
	ModeReplace
	ModeReplaceOrInsert
)

// IteratorType is the set of scan shapes spec.md §4.3's nearby/count gap
// trackers need to reason about: equality, reverse-equality, and the four
// ordered comparisons.
type IteratorType int

const (
	IterEq IteratorType = iota
	IterReqEq
	IterGE
	IterGT
	IterLE
	IterLT
)

// ID identifies an index within a space; index 0 is always the primary key.
type ID int

// KeyFunc extracts an index's comparison key from a tuple's decoded fields.
type KeyFunc func(*tuple.Tuple) []byte

// Cursor iterates matching entries in the direction and order an Index's
// Iterate call established.
type Cursor interface {
	// Next advances the cursor and reports whether a tuple is available.
	Next() bool
	// Tuple returns the tuple at the cursor's current position.
	Tuple() *tuple.Tuple
	// Close releases cursor resources (a no-op for in-memory indexes, kept
	// so callers written against a page-based cursor need no changes).
	Close()
}

// Index is the contract the MVCC engine consumes: physical replace,
// point lookup, ranged iteration, and the comparison/hash primitives used
// by gap and point-hole trackers.
type Index interface {
	ID() ID
	Unique() bool
	// Ordered reports whether Iterate honors IteratorType's ordered
	// comparisons; a false value means only IterEq/full scans are
	// meaningful (spec.md's "full-scan gap" case).
	Ordered() bool

	// Replace performs the physical update spec.md §6 describes. Exactly
	// one of old/newT may be nil: newT nil means delete, old nil means
	// insert of a key not already present (an already-present key is
	// reported as ErrDuplicateKey when mode is ModeInsert, or satisfied in
	// place otherwise). displaced is whatever tuple previously occupied
	// the key (nil if none); successor is, for ordered indexes, the tuple
	// immediately after the affected key once the call completes (used to
	// attach nearby-gap trackers per spec.md §4.3).
	Replace(old, newT *tuple.Tuple, mode ReplaceMode) (displaced, successor *tuple.Tuple, err error)

	// Lookup returns the tuple currently stored at key, or ErrKeyNotFound.
	Lookup(key []byte) (*tuple.Tuple, error)

	// Iterate starts a cursor per it/key. For IterEq/IterReqEq, key is a
	// full or partial key to match; for the ordered comparisons it is the
	// bound the scan starts from.
	Iterate(it IteratorType, key []byte) Cursor

	// KeyOf extracts the comparison key the index would store for t.
	KeyOf(t *tuple.Tuple) []byte
	// Compare orders two tuples by this index's key.
	Compare(a, b *tuple.Tuple) int
	// CompareWithKey orders a tuple's key against a raw key, honoring
	// partial-key prefixes shorter than the index's full key.
	CompareWithKey(t *tuple.Tuple, key []byte) int
	// KeyHash hashes a raw key, used by the point-hole table.
	KeyHash(key []byte) uint64
}

// fnvHash is the KeyHash implementation shared by both index flavors.
func fnvHash(key []byte) uint64 {
	h := fnv.New64a()
	h.Write(key)
	return h.Sum64()
}
