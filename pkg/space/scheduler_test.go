package space

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"tur/pkg/index"
	"tur/pkg/mvcc"
	"tur/pkg/tuple"
)

func newTestScheduler(t *testing.T) (*Scheduler, *Space) {
	t.Helper()
	cat := NewCatalog()
	sp, err := cat.Create("widgets", []Field{
		{Name: "id", Type: FieldInt},
		{Name: "name", Type: FieldText},
	}, []IndexDef{
		{Name: "primary", Kind: IndexOrdered, Unique: true, Fields: []int{0}},
	})
	require.NoError(t, err)

	engine := mvcc.NewEngine(mvcc.DefaultConfig(), nil)
	return NewScheduler(engine, cat), sp
}

func TestSchedulerSerializesConcurrentCallers(t *testing.T) {
	sched, sp := newTestScheduler(t)
	ctx := context.Background()

	const n = 32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return sched.Run(gctx, func(e *mvcc.Engine, _ *Catalog) error {
				txn := e.Begin(mvcc.ReadCommitted)
				_, err := e.AddStmt(txn, sp.MVCC(), []tuple.Value{
					tuple.NewInt(int64(i)),
					tuple.NewText("widget"),
				}, index.ModeInsert)
				if err != nil {
					return err
				}
				if err := e.PrepareTxn(txn); err != nil {
					return err
				}
				return e.CommitTxn(txn)
			})
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, n, sp.MVCC().TupleCount())
}

func TestSchedulerBeginThenRun(t *testing.T) {
	sched, sp := newTestScheduler(t)
	ctx := context.Background()

	txn, err := sched.Begin(ctx, mvcc.ReadCommitted)
	require.NoError(t, err)

	err = sched.Run(ctx, func(e *mvcc.Engine, _ *Catalog) error {
		_, err := e.AddStmt(txn, sp.MVCC(), []tuple.Value{
			tuple.NewInt(1),
			tuple.NewText("gadget"),
		}, index.ModeInsert)
		if err != nil {
			return err
		}
		if err := e.PrepareTxn(txn); err != nil {
			return err
		}
		return e.CommitTxn(txn)
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, sp.MVCC().TupleCount())
}
