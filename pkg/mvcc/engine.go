// Package mvcc implements the in-memory multi-version concurrency control
// engine: story chains, read/gap/point-hole trackers, the visibility
// resolver, and the statement lifecycle that ties them together. The
// engine itself does no locking (see doc.go); pkg/space's scheduler is the
// single-threaded-cooperative boundary above it.
package mvcc

import (
	"tur/pkg/index"
	"tur/pkg/logging"
	"tur/pkg/tuple"
)

// Engine is the process-wide MVCC state: the monotonic PSN counter, the
// global story list GCStep walks, the global read-view list, and the
// point-hole table. One Engine typically backs an entire process; spaces
// register themselves with NewSpace and are otherwise independent of one
// another except insofar as GCStep interleaves their story lists.
type Engine struct {
	cfg    Config
	logger *logging.Logger

	nextTxnID uint64
	nextPSN   uint64

	globalHead, globalTail *Story
	storiesSinceGC         int

	readViewList []*Transaction // ascending rv_psn

	pointHoles map[pointHoleKey][]*PointHoleTracker

	storyByTuple map[*tuple.Tuple]*Story

	gcCursor *Story
}

// NewEngine builds an Engine. A nil logger falls back to a discarding one,
// so callers that do not care about engine diagnostics need not wire one.
func NewEngine(cfg Config, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Noop()
	}
	return &Engine{
		cfg:          cfg,
		logger:       logger.Component("mvcc"),
		nextPSN:      1,
		pointHoles:   make(map[pointHoleKey][]*PointHoleTracker),
		storyByTuple: make(map[*tuple.Tuple]*Story),
	}
}

// Begin starts a new transaction at the given isolation level.
func (e *Engine) Begin(isolation IsolationLevel) *Transaction {
	e.nextTxnID++
	return newTransaction(e.nextTxnID, isolation)
}

// PrepareTxn prepares every statement the transaction has accumulated, in
// the order they were added, stopping at the first failure.
func (e *Engine) PrepareTxn(txn *Transaction) error {
	for _, stmt := range txn.stmts {
		if err := e.PrepareStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CommitTxn finalizes a prepared transaction: it must already have had
// PrepareTxn (or per-statement PrepareStmt) succeed for all its statements.
func (e *Engine) CommitTxn(txn *Transaction) error {
	if txn.status != TxPrepared {
		return ErrConflict
	}
	for _, stmt := range txn.stmts {
		if err := e.CommitStmt(stmt); err != nil {
			return err
		}
	}
	txn.status = TxCommitted
	e.removeReadView(txn)
	releaseAllReaders(txn)
	releaseAllGaps(txn)
	e.releaseAllPointHoles(txn)
	return nil
}

// RollbackTxn undoes every statement the transaction holds, newest first,
// and marks it aborted.
func (e *Engine) RollbackTxn(txn *Transaction) {
	for i := len(txn.stmts) - 1; i >= 0; i-- {
		e.RollbackStmt(txn.stmts[i])
	}
	txn.stmts = nil
	txn.status = TxAborted
	e.removeReadView(txn)
	releaseAllReaders(txn)
	releaseAllGaps(txn)
	e.releaseAllPointHoles(txn)
}

// RollbackToSavepoint rolls back every statement added after name was
// recorded, newest first, leaving the transaction in progress.
func (e *Engine) RollbackToSavepoint(txn *Transaction, name string) error {
	idx := -1
	for i := len(txn.savepoints) - 1; i >= 0; i-- {
		if txn.savepoints[i].name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrSavepointNotFound
	}
	mark := txn.savepoints[idx].stmtMark
	for i := len(txn.stmts) - 1; i >= mark; i-- {
		e.RollbackStmt(txn.stmts[i])
	}
	txn.stmts = txn.stmts[:mark]
	txn.savepoints = txn.savepoints[:idx]
	return nil
}

// Get resolves the version of key on idxID visible to txn, installing a
// point-hole or gap tracker when no visible row is found so the absence
// stays repeatable for isolation levels that require it.
func (e *Engine) Get(txn *Transaction, space *Space, idxID index.ID, key []byte) (*tuple.Tuple, error) {
	idx := space.indexes[idxID]
	physical, err := idx.Lookup(key)
	if err != nil {
		e.trackMiss(txn, space, idxID, key)
		return nil, index.ErrKeyNotFound
	}
	story := e.storyOf(physical)
	visible := e.clarify(txn, story, idxID)
	if visible == nil {
		e.trackMiss(txn, space, idxID, key)
		return nil, index.ErrKeyNotFound
	}
	return visible.Tuple(), nil
}

// trackMiss installs whatever tracker kind fits the index that just missed
// key: a point-hole for a unique index, a full-scan for an unordered one,
// or, for an ordered non-unique index, a nearby gap bounded by the two
// neighbors actually observed on either side of key (unbounded on a side
// with no neighbor), per spec.md §4.3.
func (e *Engine) trackMiss(txn *Transaction, space *Space, idxID index.ID, key []byte) {
	if txn.isolation == ReadCommitted {
		return
	}
	idx := space.indexes[idxID]
	if idx.Unique() {
		e.trackPoint(txn, space, idxID, key)
		return
	}
	if !idx.Ordered() {
		trackFullScan(txn, space, idxID)
		return
	}

	loCur := idx.Iterate(index.IterLT, key)
	defer loCur.Close()
	var below *Story
	var lo []byte
	if loCur.Next() {
		belowT := loCur.Tuple()
		below = e.storyOf(belowT)
		lo = idx.KeyOf(belowT)
	}

	hiCur := idx.Iterate(index.IterGT, key)
	defer hiCur.Close()
	var hi []byte
	if hiCur.Next() {
		hi = idx.KeyOf(hiCur.Tuple())
	}

	trackGap(txn, space, idxID, below, lo, hi)
}

// Scan iterates idxID from key in the direction it implies, returning every
// version visible to txn, and installs a count tracker over the observed
// range (or a full-scan tracker for an unordered index) so the result
// stays repeatable.
func (e *Engine) Scan(txn *Transaction, space *Space, idxID index.ID, it index.IteratorType, key []byte) ([]*tuple.Tuple, error) {
	idx := space.indexes[idxID]
	cur := idx.Iterate(it, key)
	defer cur.Close()

	var results []*tuple.Tuple
	var lastKey []byte
	for cur.Next() {
		t := cur.Tuple()
		lastKey = idx.KeyOf(t)
		story := e.storyOf(t)
		if visible := e.clarify(txn, story, idxID); visible != nil {
			results = append(results, visible.Tuple())
		}
	}

	if txn.isolation == ReadCommitted {
		return results, nil
	}
	if !idx.Ordered() {
		trackFullScan(txn, space, idxID)
		return results, nil
	}
	lo, hi := key, lastKey
	if it == index.IterLT || it == index.IterLE {
		lo, hi = nil, key
		if lastKey != nil {
			lo = lastKey
		}
	}
	if hi == nil {
		hi = lo
	}
	trackCount(txn, space, idxID, lo, hi, len(results))
	return results, nil
}

func (e *Engine) storyOf(t *tuple.Tuple) *Story {
	return e.storyByTuple[t]
}

func (e *Engine) linkGlobal(s *Story) {
	e.storyByTuple[s.t] = s
	s.globalPrev = nil
	s.globalNext = e.globalHead
	if e.globalHead != nil {
		e.globalHead.globalPrev = s
	}
	e.globalHead = s
	if e.globalTail == nil {
		e.globalTail = s
	}
}

func (e *Engine) unlinkGlobal(s *Story) {
	delete(e.storyByTuple, s.t)
	if s.globalPrev != nil {
		s.globalPrev.globalNext = s.globalNext
	} else {
		e.globalHead = s.globalNext
	}
	if s.globalNext != nil {
		s.globalNext.globalPrev = s.globalPrev
	} else {
		e.globalTail = s.globalPrev
	}
	if e.gcCursor == s {
		e.gcCursor = s.globalNext
	}
	s.globalPrev, s.globalNext = nil, nil
}

func (e *Engine) maybeStepGC() {
	if e.cfg.GCStepsPerNewStory <= 0 {
		return
	}
	e.storiesSinceGC++
	if e.storiesSinceGC >= e.cfg.GCStepsPerNewStory {
		e.storiesSinceGC = 0
		e.GCStep()
	}
}

// InvalidateSpace tears down every index-chain link rooted in space, per
// spec.md §4.5's DDL-invalidation case: any concurrent reader, gap holder,
// writer, or point-hole waiter that references the space is aborted first
// (its primitives are about to disappear), then the newest committed
// version of every chain is baked into the physical index with
// index.Replace (no transaction's uncommitted insert, replace or delete is
// kept, whichever transaction runs the DDL), and finally every story
// belonging to the space is
// unlinked and destroyed — nothing can reference the space's MVCC state
// past this call.
func (e *Engine) InvalidateSpace(space *Space) {
	space.invalidated = true

	seen := make(map[*Transaction]bool)
	abort := func(txn *Transaction) {
		if txn == nil || seen[txn] {
			return
		}
		seen[txn] = true
		e.abortWithConflict(txn)
	}

	for g := space.gapHead; g != nil; g = g.nextInSpace {
		abort(g.txn)
	}
	for s := space.storyHead; s != nil; s = s.spaceNext {
		for g := s.gaps; g != nil; g = g.nextInStory {
			abort(g.txn)
		}
		for rt := s.readers; rt != nil; rt = rt.nextInStory {
			abort(rt.reader)
		}
		if s.addStmt != nil {
			abort(s.addStmt.txn)
		}
		for d := s.delStmt; d != nil; d = d.nextDeleter {
			abort(d.txn)
		}
	}
	for k, trackers := range e.pointHoles {
		if k.space != space.id {
			continue
		}
		for _, pt := range trackers {
			abort(pt.txn)
		}
		delete(e.pointHoles, k)
	}

	// Bake in the last committed version of every chain (discarding
	// whatever an now-aborted writer had physically staged there) before
	// destroying the space's stories outright.
	for i, idx := range space.indexes {
		for s := space.storyHead; s != nil; s = s.spaceNext {
			if !s.links[i].inIndex {
				continue
			}
			anc := committedAncestor(s, i)
			if anc == s {
				continue
			}
			if anc == nil {
				idx.Replace(s.t, nil, index.ModeReplace)
			} else {
				idx.Replace(s.t, anc.t, index.ModeReplaceOrInsert)
				anc.links[i].inIndex = true
			}
			s.links[i].inIndex = false
		}
	}

	for s := space.storyHead; s != nil; {
		next := s.spaceNext
		for i := range space.indexes {
			s.unlinkFromChain(i)
		}
		space.unlinkStory(s)
		e.unlinkGlobal(s)
		s = next
	}
}

// committedAncestor walks chain idxID from s toward the oldest story,
// looking for the nearest version whose introduction actually committed
// (an in-progress or merely-prepared writer's version does not count,
// since that writer is about to be aborted). It returns s itself if s is
// already that version, or nil if even the nearest committed ancestor was
// removed by a committed delete (the key has no owner-visible row left).
func committedAncestor(s *Story, idxID int) *Story {
	for cur := s; cur != nil; cur = cur.links[idxID].older {
		if cur.addStmt != nil && cur.addStmt.txn.status != TxCommitted {
			continue
		}
		for d := cur.delStmt; d != nil; d = d.nextDeleter {
			if d.txn.status == TxCommitted {
				return nil
			}
		}
		return cur
	}
	return nil
}
