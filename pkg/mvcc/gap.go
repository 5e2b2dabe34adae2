// pkg/mvcc/gap.go
package mvcc

import (
	"bytes"

	"tur/pkg/index"
)

// gapKind distinguishes the four shapes spec.md §4.3 describes. A tagged
// struct is used instead of four types behind an interface: the trackers
// differ only in which fields are meaningful, there is no behavior a vtable
// would usefully dispatch on, and every write-side check has to consider
// all four kinds together anyway.
type gapKind int

const (
	// gapInplace pins the exact absence of a key at one chain position:
	// the transaction looked up a single key on an ordered index and found
	// nothing there.
	gapInplace gapKind = iota
	// gapNearby pins a bounded [lo, hi) range between two neighbors a
	// range scan observed as adjacent.
	gapNearby
	// gapCount pins an observed row count over [lo, hi); any write that
	// changes the count is a conflict.
	gapCount
	// gapFullScan pins "nothing in this index/space may change"; used for
	// unordered (hash) indexes, where no key ordering exists to bound a
	// narrower range.
	gapFullScan
)

// GapTracker records that a transaction's read implies some region of an
// index currently has no matching rows, so a later write into that region
// is a serialization conflict. See trackGap/trackCount/trackFullScan for
// construction and handleGapWrite for the write-side check.
type GapTracker struct {
	kind  gapKind
	txn   *Transaction
	space *Space
	idx   index.ID

	lo, hi []byte // meaningful for gapInplace (lo==hi) and gapNearby/gapCount
	count  int    // meaningful for gapCount only

	// Story-anchored trackers (inplace, nearby) live on the lower-bound
	// story's gap list; space-anchored trackers (count, full-scan) live on
	// the owning Space's gap list. Only one of the two pairs below is used
	// per tracker, distinguished by anchor being non-nil or nil.
	anchor *Story

	prevInStory, nextInStory *GapTracker
	prevInSpace, nextInSpace *GapTracker
	prevInTxn, nextInTxn     *GapTracker
}

func prependGapTxn(txn *Transaction, g *GapTracker) {
	g.prevInTxn = nil
	g.nextInTxn = txn.gapHead
	if txn.gapHead != nil {
		txn.gapHead.prevInTxn = g
	}
	txn.gapHead = g
}

func removeGapTxn(txn *Transaction, g *GapTracker) {
	if g.prevInTxn != nil {
		g.prevInTxn.nextInTxn = g.nextInTxn
	} else {
		txn.gapHead = g.nextInTxn
	}
	if g.nextInTxn != nil {
		g.nextInTxn.prevInTxn = g.prevInTxn
	}
	g.prevInTxn, g.nextInTxn = nil, nil
}

func prependGapStory(story *Story, g *GapTracker) {
	g.anchor = story
	g.prevInStory = nil
	g.nextInStory = story.gaps
	if story.gaps != nil {
		story.gaps.prevInStory = g
	}
	story.gaps = g
}

func removeGapStory(g *GapTracker) {
	story := g.anchor
	if story == nil {
		return
	}
	if g.prevInStory != nil {
		g.prevInStory.nextInStory = g.nextInStory
	} else {
		story.gaps = g.nextInStory
	}
	if g.nextInStory != nil {
		g.nextInStory.prevInStory = g.prevInStory
	}
	g.prevInStory, g.nextInStory = nil, nil
	g.anchor = nil
}

func prependGapSpace(space *Space, g *GapTracker) {
	g.prevInSpace = nil
	g.nextInSpace = space.gapHead
	if space.gapHead != nil {
		space.gapHead.prevInSpace = g
	}
	space.gapHead = g
}

func removeGapSpace(space *Space, g *GapTracker) {
	if g.prevInSpace != nil {
		g.prevInSpace.nextInSpace = g.nextInSpace
	} else {
		space.gapHead = g.nextInSpace
	}
	if g.nextInSpace != nil {
		g.nextInSpace.prevInSpace = g.prevInSpace
	}
	g.prevInSpace, g.nextInSpace = nil, nil
}

// trackGap installs an inplace or nearby gap tracker anchored to the story
// that sits immediately below the empty region (nil if the region is below
// everything currently in the index).
func trackGap(txn *Transaction, space *Space, idx index.ID, below *Story, lo, hi []byte) *GapTracker {
	kind := gapNearby
	if lo != nil && bytes.Equal(lo, hi) {
		kind = gapInplace
	}
	g := &GapTracker{kind: kind, txn: txn, space: space, idx: idx, lo: lo, hi: hi}
	prependGapTxn(txn, g)
	if below != nil {
		prependGapStory(below, g)
	} else {
		prependGapSpace(space, g)
	}
	return g
}

// trackCount installs a count tracker over [lo, hi) with the row count the
// transaction observed.
func trackCount(txn *Transaction, space *Space, idx index.ID, lo, hi []byte, count int) *GapTracker {
	g := &GapTracker{kind: gapCount, txn: txn, space: space, idx: idx, lo: lo, hi: hi, count: count}
	prependGapTxn(txn, g)
	prependGapSpace(space, g)
	return g
}

// trackFullScan installs a tracker that conflicts with any write to the
// space, used when a transaction scans an unordered index end to end.
func trackFullScan(txn *Transaction, space *Space, idx index.ID) *GapTracker {
	g := &GapTracker{kind: gapFullScan, txn: txn, space: space, idx: idx}
	prependGapTxn(txn, g)
	prependGapSpace(space, g)
	return g
}

func releaseGap(g *GapTracker) {
	removeGapTxn(g.txn, g)
	if g.anchor != nil {
		removeGapStory(g)
	} else {
		removeGapSpace(g.space, g)
	}
}

// releaseAllGaps drops every gap tracker a transaction owns.
func releaseAllGaps(txn *Transaction) {
	for g := txn.gapHead; g != nil; {
		next := g.nextInTxn
		if g.anchor != nil {
			removeGapStory(g)
		} else {
			removeGapSpace(g.space, g)
		}
		g = next
	}
	txn.gapHead = nil
}

func (g *GapTracker) covers(key []byte) bool {
	switch g.kind {
	case gapFullScan:
		return true
	case gapInplace:
		return bytes.Equal(key, g.lo)
	default: // gapNearby, gapCount
		if bytes.Compare(key, g.lo) < 0 {
			return false
		}
		if g.hi == nil {
			// No upper neighbor was observed: the range is open-ended.
			return true
		}
		return bytes.Compare(key, g.hi) < 0
	}
}

// handleGapWrite runs whenever AddStmt introduces key into idx within
// space. DeleteStmt does not call it, so a delete neither reaches nor
// narrows any gap or count tracker; a delete conflicts with other readers
// only through the read trackers on the story it removes. Trackers
// belonging to the writer's own transaction are
// narrowed in place (a nearby tracker splits around the new key, a count
// tracker's observed count is bumped) rather than flagged, since a
// transaction never conflicts with its own prior reads. Trackers belonging
// to any other transaction are reported back for the conflict cascade in
// conflict.go to act on.
func handleGapWrite(writer *Transaction, space *Space, idx index.ID, below *Story, key []byte) []*GapTracker {
	var foreign []*GapTracker

	checkList := func(head *GapTracker) {
		for g := head; g != nil; {
			next := nextInList(g)
			if g.idx == idx && g.covers(key) {
				if g.txn == writer {
					splitOrBump(g, key)
				} else {
					foreign = append(foreign, g)
				}
			}
			g = next
		}
	}

	if below != nil {
		checkList(below.gaps)
	}
	checkList(space.gapHead)
	return foreign
}

func nextInList(g *GapTracker) *GapTracker {
	if g.anchor != nil {
		return g.nextInStory
	}
	return g.nextInSpace
}

// splitOrBump narrows a self-owned tracker after the owning transaction's
// own write lands inside it.
func splitOrBump(g *GapTracker, key []byte) {
	switch g.kind {
	case gapCount:
		g.count++
	case gapNearby:
		// Split [lo, hi) into [lo, key) and (key, hi); g keeps the lower
		// half in place, a sibling tracker covers the upper half. Neither
		// half covers key itself: the sibling starts at the smallest key
		// greater than key.
		hi := g.hi
		g.hi = append([]byte(nil), key...)
		if bytes.Equal(g.lo, g.hi) {
			g.kind = gapInplace
		}
		sibling := &GapTracker{kind: gapNearby, txn: g.txn, space: g.space, idx: g.idx, lo: append(append([]byte(nil), key...), 0), hi: hi}
		if bytes.Equal(sibling.lo, sibling.hi) {
			sibling.kind = gapInplace
		}
		prependGapTxn(g.txn, sibling)
		if g.anchor != nil {
			prependGapStory(g.anchor, sibling)
		} else {
			prependGapSpace(g.space, sibling)
		}
	}
}
