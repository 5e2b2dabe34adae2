package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tur/pkg/index"
)

func TestReadCommittedSeesLatestCommittedOnly(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	insertCommitted(e, space, 1, "v1")

	writer := e.Begin(ReadCommitted)
	_, err := e.AddStmt(writer, space, row(1, "v2"), index.ModeReplace)
	require.NoError(t, err)

	reader := e.Begin(ReadCommitted)
	got, err := e.Get(reader, space, 0, keyFor(1, "v1"))
	require.NoError(t, err)
	require.Equal(t, "v1", got.Values()[1].Text())

	require.NoError(t, e.PrepareTxn(writer))
	require.NoError(t, e.CommitTxn(writer))

	got, err = e.Get(reader, space, 0, keyFor(1, "v1"))
	require.NoError(t, err)
	require.Equal(t, "v2", got.Values()[1].Text())
}

func TestReadConfirmedSnapshotIsRepeatable(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	insertCommitted(e, space, 1, "v1")

	reader := e.Begin(ReadConfirmed)
	got, err := e.Get(reader, space, 0, keyFor(1, "v1"))
	require.NoError(t, err)
	require.Equal(t, "v1", got.Values()[1].Text())

	writer := e.Begin(ReadCommitted)
	_, err = e.AddStmt(writer, space, row(1, "v2"), index.ModeReplace)
	require.NoError(t, err)
	require.NoError(t, e.PrepareTxn(writer))
	require.NoError(t, e.CommitTxn(writer))

	// reader was demoted to a read view excluding writer's prepare, so it
	// must still see v1.
	got, err = e.Get(reader, space, 0, keyFor(1, "v1"))
	require.NoError(t, err)
	require.Equal(t, "v1", got.Values()[1].Text())
	require.Equal(t, TxInReadView, reader.status)
}

func TestDeleteThenReinsertInvisibleBetween(t *testing.T) {
	e := newTestEngine()
	space := newTestSpace(true)
	insertCommitted(e, space, 1, "v1")

	reader := e.Begin(ReadConfirmed)
	_, err := e.Get(reader, space, 0, keyFor(1, "v1"))
	require.NoError(t, err)

	del := e.Begin(ReadCommitted)
	_, err = e.DeleteStmt(del, space, keyFor(1, "v1"))
	require.NoError(t, err)
	require.NoError(t, e.PrepareTxn(del))
	require.NoError(t, e.CommitTxn(del))

	reinsert := e.Begin(ReadCommitted)
	_, err = e.AddStmt(reinsert, space, row(1, "v3"), index.ModeInsert)
	require.NoError(t, err)
	require.NoError(t, e.PrepareTxn(reinsert))
	require.NoError(t, e.CommitTxn(reinsert))

	// reader's snapshot predates both the delete and the reinsert, so it
	// still sees v1.
	got, err := e.Get(reader, space, 0, keyFor(1, "v1"))
	require.NoError(t, err)
	require.Equal(t, "v1", got.Values()[1].Text())
}
