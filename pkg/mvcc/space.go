// pkg/mvcc/space.go
package mvcc

import "tur/pkg/index"

// Space is the per-space MVCC state: the set of indexes statements replace
// into, and the intrusive list of its stories that InvalidateSpace walks
// (GCStep walks the engine-global list instead). The catalog-level
// notion of a space (name, field list, DDL) lives in pkg/space and embeds
// one of these rather than the other way around, so this package never has
// to import the catalog layer.
type Space struct {
	id      uint32
	indexes []index.Index

	storyHead, storyTail *Story // space-local story list, oldest-linked at tail
	tupleCount           int64

	gapHead *GapTracker // count/full-scan trackers, anchored to the space (see gap.go)

	invalidated bool
}

// NewSpace attaches MVCC bookkeeping to a set of indexes. indexes[0] must be
// the primary key index; spec.md §4.5 resolves unique-key conflicts against
// index 0 specifically.
func NewSpace(id uint32, indexes []index.Index) *Space {
	return &Space{id: id, indexes: indexes}
}

func (s *Space) ID() uint32            { return s.id }
func (s *Space) Indexes() []index.Index { return s.indexes }
func (s *Space) TupleCount() int64     { return s.tupleCount }
func (s *Space) Invalidated() bool     { return s.invalidated }

func (s *Space) linkStory(story *Story) {
	story.spacePrev = nil
	story.spaceNext = s.storyHead
	if s.storyHead != nil {
		s.storyHead.spacePrev = story
	}
	s.storyHead = story
	if s.storyTail == nil {
		s.storyTail = story
	}
}

func (s *Space) unlinkStory(story *Story) {
	if story.spacePrev != nil {
		story.spacePrev.spaceNext = story.spaceNext
	} else {
		s.storyHead = story.spaceNext
	}
	if story.spaceNext != nil {
		story.spaceNext.spacePrev = story.spacePrev
	} else {
		s.storyTail = story.spacePrev
	}
	story.spacePrev, story.spaceNext = nil, nil
}
