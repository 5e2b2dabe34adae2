// pkg/mvcc/story.go
package mvcc

import "tur/pkg/tuple"

// StoryStatus classifies a story for GCStep's sweep; classify in gc.go
// checks the statuses in the order listed below.
type StoryStatus int

const (
	// StoryUsed means the story is not deleted: it still holds the live
	// version of its key and must not be touched.
	StoryUsed StoryStatus = iota
	// StoryInReadView means a deleted story still has read trackers
	// pinning it.
	StoryInReadView
	// StoryTrackGap means a deleted story with no readers is still acting
	// as the anchor for a gap tracker.
	StoryTrackGap
	// StoryCollectable means none of the above hold; GCStep may unlink it.
	StoryCollectable
)

// chainLink is one per-index entry in a Story's position within that
// index's version chain (newest-to-oldest, doubly linked via newer and
// older).
type chainLink struct {
	newer, older *Story
	// inIndex is true for the chain's top link when this story's tuple is
	// the one physically stored in the index (invariant 1 of spec.md §3).
	inIndex bool
}

// Story is one version record: a tuple plus the statements that introduced
// and (optionally) intend to or did remove it, plus its position in every
// index's chain. Exactly one Story exists per distinct tuple version,
// shared across all of a space's indexes (pkg/tuple.Tuple itself carries no
// MVCC metadata).
type Story struct {
	space *Space
	t     *tuple.Tuple

	addStmt *Statement // only RollbackStmt clears it; commit leaves it set
	delStmt *Statement // head of a singly-linked list via Statement.nextDeleter; nil if never deleted

	addPSN uint64 // 0 until addStmt is prepared
	delPSN uint64 // 0 until a deleter is prepared

	readers *ReadTracker // head of this story's reader list (see reader.go)
	gaps    *GapTracker  // head of gap trackers anchored here (see gap.go)

	links []chainLink // one per index, links[i] for space.Indexes()[i]

	// space-local intrusive list, walked by InvalidateSpace.
	spacePrev, spaceNext *Story
	// engine-global intrusive list, insertion order, for the GC cursor.
	globalPrev, globalNext *Story
}

func newStory(space *Space, t *tuple.Tuple) *Story {
	s := &Story{
		space: space,
		t:     t,
		links: make([]chainLink, len(space.Indexes())),
	}
	t.MarkDirty()
	return s
}

func (s *Story) Tuple() *tuple.Tuple { return s.t }
func (s *Story) Space() *Space       { return s.space }

// committed reports whether this story's introducing statement has been
// prepared (committed or merely prepared-but-not-yet-committed both count,
// since PSN assignment happens at prepare time and visibility only cares
// about PSN order, not which of the two states is current).
func (s *Story) committed() bool { return s.addStmt == nil || s.addPSN != 0 }

// deleted reports whether some deleter has been prepared.
func (s *Story) deleted() bool { return s.delPSN != 0 }

// linkAbove makes s the new top of indexIdx's chain, placing below as the
// next-older entry (below may be nil for a solo insert into an empty
// position).
func (s *Story) linkAbove(indexIdx int, below *Story) {
	s.links[indexIdx].older = below
	s.links[indexIdx].inIndex = true
	if below != nil {
		below.links[indexIdx].newer = s
		below.links[indexIdx].inIndex = false
	}
}

// top walks newer-pointers to the chain's current head for index indexIdx.
func (s *Story) top(indexIdx int) *Story {
	cur := s
	for cur.links[indexIdx].newer != nil {
		cur = cur.links[indexIdx].newer
	}
	return cur
}

// reorder swaps s with the sibling immediately newer than it in chain
// indexIdx, moving s one position toward the chain's head, per spec.md
// §4.1's reorder(story, older, i) operation. It never touches which story
// is physically stored in the index: in_index stays with whichever story
// already carried it, even if that is no longer the topologically newest
// link afterward (see sinkPrepared in statement.go). Reports whether a
// swap happened (false if s was already at the head).
func (s *Story) reorder(indexIdx int) bool {
	newer := s.links[indexIdx].newer
	if newer == nil {
		return false
	}
	aboveNewer := newer.links[indexIdx].newer
	below := s.links[indexIdx].older

	newer.links[indexIdx].older = below
	if below != nil {
		below.links[indexIdx].newer = newer
	}
	s.links[indexIdx].older = newer
	s.links[indexIdx].newer = aboveNewer
	if aboveNewer != nil {
		aboveNewer.links[indexIdx].older = s
	}
	newer.links[indexIdx].newer = s
	return true
}

// unlinkFromChain removes s from index indexIdx's chain, reconnecting its
// neighbors. If s was the physically-in-index top, the next-older story
// becomes the new top (the caller is responsible for the matching
// index.Replace call when that next-older story's tuple must now become
// physically present).
func (s *Story) unlinkFromChain(indexIdx int) {
	link := s.links[indexIdx]
	if link.newer != nil {
		link.newer.links[indexIdx].older = link.older
	}
	if link.older != nil {
		link.older.links[indexIdx].newer = link.newer
		if link.newer == nil {
			link.older.links[indexIdx].inIndex = link.inIndex
		}
	}
	s.links[indexIdx] = chainLink{}
}
