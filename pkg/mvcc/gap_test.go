package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackGapInplaceVsNearby(t *testing.T) {
	space := newTestSpace(true)
	txn := newTransaction(1, ReadConfirmed)

	g1 := trackGap(txn, space, 0, nil, []byte{5}, []byte{5})
	require.Equal(t, gapInplace, g1.kind)

	g2 := trackGap(txn, space, 0, nil, []byte{1}, []byte{9})
	require.Equal(t, gapNearby, g2.kind)
}

func TestHandleGapWriteSplitsOwnNearbyTracker(t *testing.T) {
	space := newTestSpace(true)
	txn := newTransaction(1, ReadConfirmed)

	trackGap(txn, space, 0, nil, []byte{0}, []byte{10})
	foreign := handleGapWrite(txn, space, 0, nil, []byte{5})
	require.Empty(t, foreign)

	// Splitting should leave two trackers covering the halves, both still
	// owned by txn, neither any longer covering the split point itself.
	var found []*GapTracker
	for g := space.gapHead; g != nil; g = g.nextInSpace {
		found = append(found, g)
	}
	require.Len(t, found, 2)
	for _, g := range found {
		require.False(t, g.covers([]byte{5}))
	}
}

func TestHandleGapWriteReportsForeignConflict(t *testing.T) {
	space := newTestSpace(true)
	reader := newTransaction(1, ReadConfirmed)
	writer := newTransaction(2, ReadConfirmed)

	trackGap(reader, space, 0, nil, []byte{0}, []byte{10})
	foreign := handleGapWrite(writer, space, 0, nil, []byte{5})
	require.Len(t, foreign, 1)
	require.Same(t, reader, foreign[0].txn)
}

func TestTrackCountBumpsOnOwnWrite(t *testing.T) {
	space := newTestSpace(true)
	txn := newTransaction(1, ReadConfirmed)

	g := trackCount(txn, space, 0, []byte{0}, []byte{10}, 3)
	handleGapWrite(txn, space, 0, nil, []byte{5})
	require.Equal(t, 4, g.count)
}

func TestReleaseAllGapsClearsSpaceAndStoryLists(t *testing.T) {
	space := newTestSpace(true)
	s := newStory(space, row1(1))
	txn := newTransaction(1, ReadConfirmed)

	trackGap(txn, space, 0, s, []byte{1}, []byte{1})
	trackFullScan(txn, space, 0)
	require.NotNil(t, s.gaps)
	require.NotNil(t, space.gapHead)

	releaseAllGaps(txn)
	require.Nil(t, s.gaps)
	require.Nil(t, space.gapHead)
	require.Nil(t, txn.gapHead)
}
