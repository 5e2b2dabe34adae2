package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tur/pkg/index"
	"tur/pkg/tuple"
)

func keyFor(id int64, text string) []byte {
	return intKey(tuple.New(row(id, text)))
}

func TestAddGetCommitRoundTrip(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)

	insertCommitted(e, space, 1, "alice")

	reader := e.Begin(ReadCommitted)
	got, err := e.Get(reader, space, 0, keyFor(1, "alice"))
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Values()[0].Int())
	require.Equal(t, "alice", got.Values()[1].Text())
}

func TestAddStmtInsertRejectsDuplicate(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	insertCommitted(e, space, 1, "alice")

	txn := e.Begin(ReadCommitted)
	_, err := e.AddStmt(txn, space, row(1, "bob"), index.ModeInsert)
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestAddStmtReplaceRequiresExisting(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)

	txn := e.Begin(ReadCommitted)
	_, err := e.AddStmt(txn, space, row(1, "alice"), index.ModeReplace)
	require.ErrorIs(t, err, index.ErrKeyNotFound)
}

func TestDeleteStmtThenGetMisses(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	insertCommitted(e, space, 1, "alice")

	txn := e.Begin(ReadCommitted)
	_, err := e.DeleteStmt(txn, space, keyFor(1, "alice"))
	require.NoError(t, err)
	require.NoError(t, e.PrepareTxn(txn))
	require.NoError(t, e.CommitTxn(txn))

	reader := e.Begin(ReadCommitted)
	_, err = e.Get(reader, space, 0, keyFor(1, "alice"))
	require.ErrorIs(t, err, index.ErrKeyNotFound)
}

func TestRollbackToSavepointUndoesLaterStatements(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)

	txn := e.Begin(ReadCommitted)
	_, err := e.AddStmt(txn, space, row(1, "kept"), index.ModeInsert)
	require.NoError(t, err)

	txn.Savepoint("before-2")
	_, err = e.AddStmt(txn, space, row(2, "undone"), index.ModeInsert)
	require.NoError(t, err)

	require.NoError(t, e.RollbackToSavepoint(txn, "before-2"))
	require.NoError(t, e.PrepareTxn(txn))
	require.NoError(t, e.CommitTxn(txn))

	reader := e.Begin(ReadCommitted)
	got, err := e.Get(reader, space, 0, keyFor(1, "kept"))
	require.NoError(t, err)
	require.Equal(t, "kept", got.Values()[1].Text())

	_, err = e.Get(reader, space, 0, keyFor(2, "undone"))
	require.ErrorIs(t, err, index.ErrKeyNotFound)
}

func TestRollbackToSavepointUnknownNameErrors(t *testing.T) {
	e := newTestEngine()
	txn := e.Begin(ReadCommitted)
	require.ErrorIs(t, e.RollbackToSavepoint(txn, "nope"), ErrSavepointNotFound)
}

func TestWriteToReadViewTransactionConflicts(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)

	txn := e.Begin(ReadConfirmed)
	e.sendToReadView(txn, 5, &Statement{txn: txn})
	_, err := e.AddStmt(txn, space, row(1, "alice"), index.ModeInsert)
	require.ErrorIs(t, err, ErrConflict)
}
