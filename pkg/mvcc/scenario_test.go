package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tur/pkg/index"
)

// TestWriteSkewPrevented exercises the classic write-skew anomaly: A reads
// X and writes Y based on it, B reads Y and writes X based on it. Once A
// commits, B's prior read of Y should have demoted it to a read view, so
// its later write attempt is rejected rather than silently creating the
// cycle.
func TestWriteSkewPrevented(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	insertCommitted(e, space, 1, "x") // key 1 = X
	insertCommitted(e, space, 2, "y") // key 2 = Y

	a := e.Begin(ReadConfirmed)
	b := e.Begin(ReadConfirmed)

	_, err := e.Get(a, space, 0, keyFor(1, "x")) // A reads X
	require.NoError(t, err)
	_, err = e.Get(b, space, 0, keyFor(2, "y")) // B reads Y
	require.NoError(t, err)

	_, err = e.AddStmt(a, space, row(2, "y-updated"), index.ModeReplace) // A writes Y
	require.NoError(t, err)
	require.NoError(t, e.PrepareTxn(a))
	require.NoError(t, e.CommitTxn(a))

	require.Equal(t, TxInReadView, b.status)

	_, err = e.AddStmt(b, space, row(1, "x-updated"), index.ModeReplace) // B writes X
	require.ErrorIs(t, err, ErrConflict)
}

// TestCountGapConflictsOnInsert exercises a count tracker: a transaction
// scans a range, observes a count, and a concurrent insert into that range
// must be reported as a foreign conflict against the scanner.
func TestCountGapConflictsOnInsert(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	insertCommitted(e, space, 1, "a")
	insertCommitted(e, space, 5, "b")

	scanner := e.Begin(ReadConfirmed)
	results, err := e.Scan(scanner, space, 0, index.IterGE, keyFor(0, ""))
	require.NoError(t, err)
	require.Len(t, results, 2)

	writer := e.Begin(ReadCommitted)
	_, err = e.AddStmt(writer, space, row(3, "c"), index.ModeInsert)
	require.NoError(t, err)
	require.NoError(t, e.PrepareTxn(writer))
	require.NoError(t, e.CommitTxn(writer))

	require.Equal(t, TxInReadView, scanner.status)
}

// TestNearbyGapSplitsOnOwnWrite confirms a transaction's own insert into
// the middle of its own previously-tracked nearby gap splits the tracker
// rather than conflicting with itself, while a write by that transaction
// into a range another transaction tracks is still reported against the
// other transaction.
func TestNearbyGapSplitsOnOwnWrite(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(false)

	txn := e.Begin(ReadConfirmed)
	trackGap(txn, space, 0, nil, []byte{0}, []byte{10})

	_, err := e.AddStmt(txn, space, row(5, "mid"), index.ModeInsert)
	require.NoError(t, err)

	var kinds []gapKind
	for g := txn.gapHead; g != nil; g = g.nextInTxn {
		kinds = append(kinds, g.kind)
	}
	require.Len(t, kinds, 2)
	for _, k := range kinds {
		require.Equal(t, gapNearby, k)
	}

	other := e.Begin(ReadConfirmed)
	trackGap(other, space, 0, nil, []byte{6}, []byte{9})
	foreign := handleGapWrite(txn, space, 0, nil, []byte{7})
	require.Len(t, foreign, 1)
	require.Same(t, other, foreign[0].txn)
}

// TestRollbackOfPreparedStatementRepromotesReader confirms SPEC_FULL.md
// §9's resolution: rolling back a prepared statement undoes the demotion
// it caused, restoring the reader to TxInProgress when no other statement
// still demotes it.
func TestRollbackOfPreparedStatementRepromotesReader(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	insertCommitted(e, space, 1, "v1")

	reader := e.Begin(ReadConfirmed)
	_, err := e.Get(reader, space, 0, keyFor(1, "v1"))
	require.NoError(t, err)

	writer := e.Begin(ReadCommitted)
	stmt, err := e.AddStmt(writer, space, row(1, "v2"), index.ModeReplace)
	require.NoError(t, err)
	require.NoError(t, e.PrepareTxn(writer))
	require.Equal(t, TxInReadView, reader.status)

	e.RollbackStmt(stmt)
	require.Equal(t, TxInProgress, reader.status)
}

// TestRollbackOfPreparedSinkRewiresDeleter exercises the prepared-and-sunk
// rollback case: T1 replaces {1,a}->{1,b} but has not yet prepared when T2
// concurrently replaces the same key again, physically displacing T1's
// still-unprepared story. Once T1 prepares, its story sinks back above T2's
// (still unprepared) story in chain order without touching which tuple the
// index physically holds. Rolling T1 back must restore the chain without
// disturbing T2, which then commits transparently.
func TestRollbackOfPreparedSinkRewiresDeleter(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	insertCommitted(e, space, 1, "a")

	t1 := e.Begin(ReadCommitted)
	_, err := e.AddStmt(t1, space, row(1, "b"), index.ModeReplace)
	require.NoError(t, err)

	t2 := e.Begin(ReadConfirmed)
	_, err = e.AddStmt(t2, space, row(1, "d"), index.ModeReplace)
	require.NoError(t, err)

	require.NoError(t, e.PrepareTxn(t1))
	e.RollbackTxn(t1)

	require.NoError(t, e.PrepareTxn(t2))
	require.NoError(t, e.CommitTxn(t2))

	reader := e.Begin(ReadCommitted)
	tup, err := e.Get(reader, space, 0, keyFor(1, ""))
	require.NoError(t, err)
	require.Equal(t, "d", tup.Values()[1].Text())
}

// TestInvalidateSpaceAbortsFullScanHolders exercises the DDL-invalidation
// case: a transaction holding a full-scan tracker over an unordered index
// is aborted outright once the space is invalidated.
func TestInvalidateSpaceAbortsFullScanHolders(t *testing.T) {
	e := newTestEngine()
	hashIdx := index.NewHash(0, true, intKey)
	space := NewSpace(2, []index.Index{hashIdx})
	insertCommitted(e, space, 1, "v1")

	scanner := e.Begin(ReadConfirmed)
	_, err := e.Scan(scanner, space, 0, index.IterEq, nil)
	require.NoError(t, err)
	require.NotNil(t, space.gapHead)

	e.InvalidateSpace(space)
	require.Equal(t, TxAborted, scanner.status)
}
