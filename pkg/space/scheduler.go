package space

import (
	"context"
	"sync"

	"tur/pkg/mvcc"
)

// Scheduler is the single-threaded-cooperative execution boundary
// pkg/mvcc/doc.go requires above the engine: every Engine/Transaction
// method call goes through Run, which holds one mutex for its duration.
// pkg/mvcc deliberately takes no internal lock (a lock per story traversal
// would cost more than a cooperative single-writer scheduler already
// gives for free); Scheduler is where that cooperation is actually
// enforced, the way the teacher's Catalog guards its maps with
// sync.RWMutex rather than leaving callers to coordinate themselves.
type Scheduler struct {
	mu      sync.Mutex
	engine  *mvcc.Engine
	catalog *Catalog
}

func NewScheduler(engine *mvcc.Engine, catalog *Catalog) *Scheduler {
	return &Scheduler{engine: engine, catalog: catalog}
}

// Run executes fn with exclusive access to the engine and catalog. fn
// receives the same *mvcc.Engine and *Catalog the Scheduler was built
// with; it must not retain a Transaction or Statement past Run's return
// for use outside another Run call.
func (s *Scheduler) Run(ctx context.Context, fn func(*mvcc.Engine, *Catalog) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.engine, s.catalog)
}

// Begin starts a transaction under the scheduler's lock and hands it back
// for later statements; callers still route every subsequent operation on
// it through Run so the cooperative boundary holds for the whole
// transaction's lifetime, not just its start.
func (s *Scheduler) Begin(ctx context.Context, isolation mvcc.IsolationLevel) (*mvcc.Transaction, error) {
	var txn *mvcc.Transaction
	err := s.Run(ctx, func(e *mvcc.Engine, _ *Catalog) error {
		txn = e.Begin(isolation)
		return nil
	})
	return txn, err
}
