package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tur/pkg/index"
)

func TestClassifyOrdering(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	s := insertCommitted(e, space, 1, "v1")
	require.Equal(t, StoryUsed, e.classify(s))

	del := e.Begin(ReadCommitted)
	_, err := e.DeleteStmt(del, space, keyFor(1, "v1"))
	require.NoError(t, err)
	require.NoError(t, e.PrepareTxn(del))
	require.NoError(t, e.CommitTxn(del))
	require.True(t, s.deleted())

	reader := newTransaction(99, ReadConfirmed)
	trackRead(reader, s)
	require.Equal(t, StoryInReadView, e.classify(s))
	releaseAllReaders(reader)

	trackGap(reader, space, 0, s, []byte{1}, []byte{1})
	require.Equal(t, StoryTrackGap, e.classify(s))
	releaseAllGaps(reader)

	require.Equal(t, StoryCollectable, e.classify(s))
}

func TestGCStepCollectsAndRespectsBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GCStoriesPerStep = 2
	e := NewEngine(cfg, nil)
	space := newTestSpace(true)

	for i := int64(0); i < 5; i++ {
		insertCommitted(e, space, i, "v")
		del := e.Begin(ReadCommitted)
		_, err := e.DeleteStmt(del, space, keyFor(i, "v"))
		require.NoError(t, err)
		require.NoError(t, e.PrepareTxn(del))
		require.NoError(t, e.CommitTxn(del))
	}

	collected := e.GCStep()
	require.Equal(t, 2, collected)
	collected = e.GCStep()
	require.Equal(t, 2, collected)
	collected = e.GCStep()
	require.Equal(t, 1, collected)
	collected = e.GCStep()
	require.Equal(t, 0, collected)
}

func TestGCStepSkipsStoryPinnedByReader(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	s := insertCommitted(e, space, 1, "v1")

	reader := e.Begin(ReadConfirmed)
	_, err := e.Get(reader, space, 0, keyFor(1, "v1"))
	require.NoError(t, err)

	del := e.Begin(ReadCommitted)
	_, err = e.DeleteStmt(del, space, keyFor(1, "v1"))
	require.NoError(t, err)
	require.NoError(t, e.PrepareTxn(del))
	require.NoError(t, e.CommitTxn(del))

	collected := e.GCStep()
	require.Equal(t, 0, collected)
	require.Equal(t, StoryInReadView, e.classify(s))

	e.RollbackTxn(reader)
	collected = e.GCStep()
	require.Equal(t, 1, collected)
}

func TestCollectRemovesTopOfChainFromIndex(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	insertCommitted(e, space, 1, "v1")
	del := e.Begin(ReadCommitted)
	_, err := e.DeleteStmt(del, space, keyFor(1, "v1"))
	require.NoError(t, err)
	require.NoError(t, e.PrepareTxn(del))
	require.NoError(t, e.CommitTxn(del))

	e.GCStep()

	idx := space.indexes[0]
	_, err = idx.Lookup(keyFor(1, "v1"))
	require.ErrorIs(t, err, index.ErrKeyNotFound)
}
