// pkg/mvcc/gc.go
package mvcc

import "tur/pkg/index"

// classify orders the checks spec.md §6 describes: a story still holding
// the live (undeleted) version of its key is never collectable; after
// that, a story is kept for a pinning reader, then for an anchored gap
// tracker, and only otherwise handed to collect.
func (e *Engine) classify(story *Story) StoryStatus {
	if !story.deleted() {
		return StoryUsed
	}
	if story.readers != nil {
		return StoryInReadView
	}
	if story.gaps != nil {
		return StoryTrackGap
	}
	return StoryCollectable
}

// GCStep inspects up to Config.GCStoriesPerStep stories starting from
// where the previous step left off, collecting whichever are classified
// StoryCollectable, and returns how many were collected. The fixed budget
// keeps a single call boundedly fast regardless of how large the engine's
// story population has grown, per spec.md §6.
func (e *Engine) GCStep() int {
	budget := e.cfg.GCStoriesPerStep
	if budget <= 0 {
		budget = 64
	}
	if e.gcCursor == nil {
		e.gcCursor = e.globalTail
	}

	collected := 0
	for i := 0; i < budget && e.gcCursor != nil; i++ {
		story := e.gcCursor
		next := story.globalPrev // walk oldest -> newest
		if e.classify(story) == StoryCollectable {
			e.collect(story)
			collected++
		}
		e.gcCursor = next
	}
	return collected
}

// collect physically removes story's tombstone from any index it is still
// the top-of-chain entry for, then forgets it entirely.
func (e *Engine) collect(story *Story) {
	for i, idx := range story.space.indexes {
		if story.links[i].inIndex {
			idx.Replace(story.t, nil, index.ModeReplace)
		}
		story.unlinkFromChain(i)
	}
	story.space.unlinkStory(story)
	e.unlinkGlobal(story)
}
