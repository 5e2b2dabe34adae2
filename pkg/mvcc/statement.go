// pkg/mvcc/statement.go
package mvcc

import (
	"tur/pkg/index"
	"tur/pkg/tuple"
)

// Statement is one DML operation within a transaction: it introduces a new
// story, removes an existing one, or both (a replace). Per spec.md §4.1 a
// story's delStmt is a singly-linked list since several in-progress
// transactions may each intend to delete the same version; Statement is
// the list node, linked via nextDeleter.
type Statement struct {
	txn   *Transaction
	space *Space

	oldStory *Story // story this statement deletes, nil for a pure insert
	newStory *Story // story this statement adds, nil for a pure delete

	nextDeleter *Statement // next statement in oldStory's delStmt list

	psn      uint64 // assigned at prepare time
	prepared bool

	// pendingGapConflicts/pendingPointConflicts are the foreign trackers
	// discovered when this statement's insert was physically applied,
	// collected at add time and resolved by cascade() once psn is known.
	pendingGapConflicts   []*GapTracker
	pendingPointConflicts []*PointHoleTracker

	// demotedReaders is every transaction this statement's prepare sent to
	// a read view, so RollbackStmt can undo it (SPEC_FULL.md §9).
	demotedReaders []*Transaction

	// replacedHead is whatever story newStory's insert displaced in the
	// primary index at add time (nil for a fresh key). prepare_stmt
	// rewires any in-progress deleter of replacedHead onto newStory, per
	// spec.md §4.5 step 2; rollback reverses it.
	replacedHead *Story
	// rewiredDeleters is every statement moved from replacedHead onto
	// newStory by that rewire, so a rollback can move the survivors back.
	rewiredDeleters []*Statement

	// sinkSwaps records every reorder() swap prepare_stmt's sink (§4.1)
	// performed while sinking newStory above still-in-progress siblings,
	// so rollback can walk them in reverse to restore the original order.
	sinkSwaps []sinkSwap
}

// sinkSwap is one adjacent-pair swap performed by sinkPrepared: pushedDown
// is the sibling that moved one slot toward the chain's tail.
type sinkSwap struct {
	idx        int
	pushedDown *Story
}

func (s *Statement) Txn() *Transaction { return s.txn }
func (s *Statement) Prepared() bool    { return s.prepared }

// AddStmt performs the physical insert/replace side of spec.md §4.5: it
// runs index.Replace on every index, resolves a unique-key collision
// against the displaced version's visibility rather than surfacing it
// unconditionally, and records (but does not yet act on) any foreign gap
// or point-hole trackers the new key falsifies.
//
// Only the primary index (space.Indexes()[0]) is checked for a visible
// duplicate; a secondary unique index's own constraint is assumed
// satisfied by the index layer's own bookkeeping (spec.md §1 scopes the
// index implementation itself out of this engine).
func (e *Engine) AddStmt(txn *Transaction, space *Space, values []tuple.Value, mode index.ReplaceMode) (*Statement, error) {
	if txn.status != TxInProgress {
		return nil, ErrConflict
	}

	newT := tuple.New(values)
	ns := newStory(space, newT)

	primary := space.indexes[0]
	key := primary.KeyOf(newT)

	var visibleOld *Story
	if existing, err := primary.Lookup(key); err == nil {
		visibleOld = e.clarify(txn, e.storyOf(existing), primary.ID())
	}
	switch mode {
	case index.ModeInsert:
		if visibleOld != nil {
			return nil, ErrDuplicateKey
		}
	case index.ModeReplace:
		if visibleOld == nil {
			return nil, index.ErrKeyNotFound
		}
	}

	stmt := &Statement{txn: txn, space: space, newStory: ns}
	ns.addStmt = stmt

	for i, idx := range space.indexes {
		ik := idx.KeyOf(newT)
		displaced, _, err := idx.Replace(nil, newT, index.ModeReplaceOrInsert)
		if err != nil {
			return nil, err
		}
		var below *Story
		if displaced != nil {
			below = e.storyOf(displaced)
			ns.linkAbove(i, below)
			if i == 0 {
				stmt.replacedHead = below
			}
		} else {
			ns.linkAbove(i, nil)
		}
		foreignGaps := handleGapWrite(txn, space, index.ID(i), below, ik)
		stmt.pendingGapConflicts = append(stmt.pendingGapConflicts, foreignGaps...)
		if idx.Unique() {
			foreignPoints := e.handlePointHoleWrite(txn, space, index.ID(i), ik)
			stmt.pendingPointConflicts = append(stmt.pendingPointConflicts, foreignPoints...)
		}
	}

	if visibleOld != nil {
		stmt.oldStory = visibleOld
		stmt.nextDeleter = visibleOld.delStmt
		visibleOld.delStmt = stmt
	}

	space.linkStory(ns)
	e.linkGlobal(ns)
	space.tupleCount++
	txn.stmts = append(txn.stmts, stmt)
	txn.wroteAnything = true
	e.maybeStepGC()
	return stmt, nil
}

// DeleteStmt removes the version currently visible to txn at key, per
// spec.md §4.5's delete path: it is exactly AddStmt's delete-only case,
// without a replacement story.
func (e *Engine) DeleteStmt(txn *Transaction, space *Space, key []byte) (*Statement, error) {
	if txn.status != TxInProgress {
		return nil, ErrConflict
	}
	primary := space.indexes[0]
	existing, err := primary.Lookup(key)
	if err != nil {
		return nil, index.ErrKeyNotFound
	}
	visible := e.clarify(txn, e.storyOf(existing), primary.ID())
	if visible == nil {
		return nil, index.ErrKeyNotFound
	}

	stmt := &Statement{txn: txn, space: space, oldStory: visible}
	stmt.nextDeleter = visible.delStmt
	visible.delStmt = stmt

	txn.stmts = append(txn.stmts, stmt)
	txn.wroteAnything = true
	return stmt, nil
}

// PrepareStmt assigns the transaction's PSN (on the first statement
// prepared) and applies it to this statement's stories, then runs the
// conflict cascade against readers and gap/point-hole trackers that
// disagree with the new fact this statement establishes.
func (e *Engine) PrepareStmt(stmt *Statement) error {
	if stmt.prepared {
		return nil
	}
	txn := stmt.txn
	if txn.status != TxInProgress && txn.status != TxInReadView && txn.status != TxPrepared {
		return ErrConflict
	}
	if txn.psn == 0 {
		txn.psn = e.nextPSN
		e.nextPSN++
	}
	stmt.psn = txn.psn
	stmt.prepared = true

	if stmt.newStory != nil {
		stmt.newStory.addPSN = stmt.psn
		for i := range stmt.space.indexes {
			e.sinkPrepared(stmt, i)
		}
		if stmt.replacedHead != nil {
			stmt.rewiredDeleters = rewireDeleters(stmt.replacedHead, stmt.newStory, stmt)
		}
	}
	if stmt.oldStory != nil {
		stmt.oldStory.delPSN = stmt.psn
	}

	e.cascade(stmt, stmt.psn)
	txn.status = TxPrepared
	return nil
}

// sinkPrepared implements spec.md §4.1/§4.5 step 1: once stmt's newStory is
// prepared, it must sit ahead of (newer than) any sibling in chain idxID
// that is still in progress, since a prepared fact always outranks an
// unprepared one in serialization order. It walks upward, swapping stmt's
// story past each unprepared sibling above it, stopping at the chain's
// head or at a sibling that has itself already been prepared.
func (e *Engine) sinkPrepared(stmt *Statement, idxID int) {
	s := stmt.newStory
	for {
		newer := s.links[idxID].newer
		if newer == nil || (newer.addStmt != nil && newer.addStmt.prepared) {
			return
		}
		pushedDown := newer
		s.reorder(idxID)
		stmt.sinkSwaps = append(stmt.sinkSwaps, sinkSwap{idx: idxID, pushedDown: pushedDown})
	}
}

// rewireDeleters moves every in-progress deleter of from (other than
// exclude, this statement's own replace of the same story) onto to,
// updating each moved statement's oldStory so a later RollbackStmt or
// commit finds it in the right list. Returns the statements moved, so
// RollbackStmt can move the survivors back.
func rewireDeleters(from, to *Story, exclude *Statement) []*Statement {
	var moved []*Statement
	var kept *Statement
	for d := from.delStmt; d != nil; {
		next := d.nextDeleter
		if d == exclude || d.prepared {
			d.nextDeleter = kept
			kept = d
		} else {
			d.oldStory = to
			d.nextDeleter = to.delStmt
			to.delStmt = d
			moved = append(moved, d)
		}
		d = next
	}
	from.delStmt = kept
	return moved
}

// CommitStmt finalizes a prepared statement. The engine already treats a
// prepared story's PSN as authoritative for visibility, so there is no
// further bookkeeping beyond marking the owning transaction committed,
// which CommitTxn does once every statement is confirmed.
func (e *Engine) CommitStmt(stmt *Statement) error {
	if !stmt.prepared {
		return ErrConflict
	}
	return nil
}

// RollbackStmt undoes stmt. A never-prepared statement is simply unwound
// physically (the index entries it created are removed, its stories
// forgotten). A prepared statement additionally unwinds the conflict
// cascade it caused, re-promoting any reader no other statement still
// demotes (SPEC_FULL.md §9).
func (e *Engine) RollbackStmt(stmt *Statement) {
	if stmt.prepared {
		e.unwindCascade(stmt)
		if stmt.replacedHead != nil {
			unrewireDeleters(stmt)
		}
		e.unsinkPrepared(stmt)
		if stmt.newStory != nil {
			stmt.newStory.addPSN = 0
		}
		if stmt.oldStory != nil {
			stmt.oldStory.delPSN = 0
		}
	}

	if stmt.oldStory != nil {
		removeDeleter(stmt.oldStory, stmt)
		stmt.oldStory = nil
	}

	if stmt.newStory != nil {
		ns := stmt.newStory
		sunk := false
		for i, idx := range stmt.space.indexes {
			if !ns.links[i].inIndex {
				// A still-in-progress sibling sank ns and now physically
				// occupies this index; ns's chain links here belong to
				// that sibling's own bookkeeping and must be left alone.
				sunk = true
				continue
			}
			below := ns.links[i].older
			idx.Replace(ns.t, nil, index.ModeReplace)
			if below != nil {
				idx.Replace(nil, below.t, index.ModeReplaceOrInsert)
			}
			ns.unlinkFromChain(i)
		}
		if sunk {
			// ns can no longer be destroyed outright: some index's chain
			// still runs through it. Mark it permanently invisible instead
			// and release anyone pinned on it as a reader.
			ns.delPSN = 1
			for rt := ns.readers; rt != nil; rt = rt.nextInStory {
				e.abortWithConflict(rt.reader)
			}
		} else {
			stmt.space.unlinkStory(ns)
			e.unlinkGlobal(ns)
			stmt.space.tupleCount--
			ns.addStmt = nil
		}
		stmt.newStory = nil
	}
}

// unsinkPrepared reverses every reorder() swap sinkPrepared performed,
// walked in reverse so the chain returns to its pre-sink order.
func (e *Engine) unsinkPrepared(stmt *Statement) {
	for i := len(stmt.sinkSwaps) - 1; i >= 0; i-- {
		sw := stmt.sinkSwaps[i]
		sw.pushedDown.reorder(sw.idx)
	}
	stmt.sinkSwaps = nil
}

// unrewireDeleters reverses rewireDeleters: every statement it moved onto
// stmt.newStory is moved back onto stmt.replacedHead, unless that
// statement's own rollback has already detached it.
func unrewireDeleters(stmt *Statement) {
	ns := stmt.newStory
	old := stmt.replacedHead
	for _, d := range stmt.rewiredDeleters {
		if !deleterListed(ns, d) {
			continue
		}
		removeDeleter(ns, d)
		d.oldStory = old
		d.nextDeleter = old.delStmt
		old.delStmt = d
	}
	stmt.rewiredDeleters = nil
}

// deleterListed reports whether stmt still appears in story's delStmt list.
func deleterListed(story *Story, stmt *Statement) bool {
	for d := story.delStmt; d != nil; d = d.nextDeleter {
		if d == stmt {
			return true
		}
	}
	return false
}

func removeDeleter(story *Story, stmt *Statement) {
	if story.delStmt == stmt {
		story.delStmt = stmt.nextDeleter
		stmt.nextDeleter = nil
		return
	}
	for d := story.delStmt; d != nil; d = d.nextDeleter {
		if d.nextDeleter == stmt {
			d.nextDeleter = stmt.nextDeleter
			stmt.nextDeleter = nil
			return
		}
	}
}
