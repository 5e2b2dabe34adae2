package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackReadDeduplicates(t *testing.T) {
	space := newTestSpace(true)
	s := newStory(space, row1(1))
	txn := newTransaction(1, ReadConfirmed)

	rt1 := trackRead(txn, s)
	rt2 := trackRead(txn, s)
	require.Same(t, rt1, rt2)
	require.Same(t, rt1, s.readers)
	require.Same(t, rt1, txn.readSetHead)
}

func TestTrackReadMultipleStoriesAndRelease(t *testing.T) {
	space := newTestSpace(true)
	s1 := newStory(space, row1(1))
	s2 := newStory(space, row1(2))
	txn := newTransaction(1, ReadConfirmed)

	trackRead(txn, s1)
	trackRead(txn, s2)
	require.NotNil(t, s1.readers)
	require.NotNil(t, s2.readers)

	releaseAllReaders(txn)
	require.Nil(t, s1.readers)
	require.Nil(t, s2.readers)
	require.Nil(t, txn.readSetHead)
}

func TestTrackReadMovesToFrontOnRepeat(t *testing.T) {
	space := newTestSpace(true)
	s1 := newStory(space, row1(1))
	s2 := newStory(space, row1(2))
	txn := newTransaction(1, ReadConfirmed)

	trackRead(txn, s1)
	trackRead(txn, s2)
	require.Same(t, s2, txn.readSetHead.story)

	trackRead(txn, s1)
	require.Same(t, s1, txn.readSetHead.story)
}
