package mvcc

import (
	"encoding/binary"

	"tur/pkg/index"
	"tur/pkg/tuple"
)

// intKey extracts field 0 (an int) as a big-endian byte key, giving the
// test ordered index a well-defined sort order.
func intKey(t *tuple.Tuple) []byte {
	v := t.Values()[0]
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v.Int()))
	return b[:]
}

func newTestSpace(unique bool) *Space {
	idx := index.NewOrdered(0, unique, intKey, nil)
	return NewSpace(1, []index.Index{idx})
}

func newTestEngine() *Engine {
	return NewEngine(DefaultConfig(), nil)
}

func row(id int64, text string) []tuple.Value {
	return []tuple.Value{tuple.NewInt(id), tuple.NewText(text)}
}

// insertCommitted is a test convenience: runs a full add/prepare/commit
// cycle in its own transaction and returns the resulting story.
func insertCommitted(e *Engine, space *Space, id int64, text string) *Story {
	txn := e.Begin(ReadCommitted)
	stmt, err := e.AddStmt(txn, space, row(id, text), index.ModeInsert)
	if err != nil {
		panic(err)
	}
	if err := e.PrepareTxn(txn); err != nil {
		panic(err)
	}
	if err := e.CommitTxn(txn); err != nil {
		panic(err)
	}
	return stmt.newStory
}
