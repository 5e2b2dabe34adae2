package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackPointDeduplicates(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	txn := newTransaction(1, ReadConfirmed)

	pt1 := e.trackPoint(txn, space, 0, []byte{1})
	pt2 := e.trackPoint(txn, space, 0, []byte{1})
	require.Same(t, pt1, pt2)
}

func TestHandlePointHoleWriteReleasesOwnAndReportsForeign(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	reader := newTransaction(1, ReadConfirmed)
	writer := newTransaction(2, ReadConfirmed)

	e.trackPoint(reader, space, 0, []byte{1})
	e.trackPoint(writer, space, 0, []byte{1})

	foreign := e.handlePointHoleWrite(writer, space, 0, []byte{1})
	require.Len(t, foreign, 1)
	require.Same(t, reader, foreign[0].txn)

	// writer's own tracker for this key should be gone now.
	require.Nil(t, writer.pointHolesHead)
	// reader's tracker is untouched until the conflict cascade acts on it.
	require.NotNil(t, reader.pointHolesHead)
}

func TestReleaseAllPointHolesClearsTable(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	txn := newTransaction(1, ReadConfirmed)

	e.trackPoint(txn, space, 0, []byte{1})
	e.trackPoint(txn, space, 0, []byte{2})
	e.releaseAllPointHoles(txn)

	require.Nil(t, txn.pointHolesHead)
	require.Empty(t, e.pointHoles)
}
