// pkg/mvcc/conflict.go
package mvcc

// sendToReadView confines reader's snapshot to psn, attributing the
// demotion to stmt so a later rollback of stmt can undo it (SPEC_FULL.md
// §9). It is idempotent: a reader already confined to an rv_psn at or
// before psn is left untouched, matching spec.md §4.4's testable property.
func (e *Engine) sendToReadView(reader *Transaction, psn uint64, stmt *Statement) {
	if reader.status != TxInProgress && reader.status != TxInReadView {
		return
	}
	if reader.status == TxInReadView && psn >= reader.rvPSN {
		return
	}

	updated := false
	for i := range reader.demotions {
		if reader.demotions[i].stmt == stmt {
			if psn < reader.demotions[i].psn {
				reader.demotions[i].psn = psn
			}
			updated = true
			break
		}
	}
	if !updated {
		reader.demotions = append(reader.demotions, demotion{stmt: stmt, psn: psn})
		stmt.demotedReaders = append(stmt.demotedReaders, reader)
	}

	wasInProgress := reader.status == TxInProgress
	reader.status = TxInReadView
	reader.recomputeRVPSN()
	if !wasInProgress {
		e.removeReadView(reader)
	}
	e.insertReadView(reader)
}

// abortWithConflict aborts reader outright and drops it from the read-view
// list. InvalidateSpace uses it for every transaction that touches the
// space, and RollbackStmt for readers of a story that the rolled-back
// prepared statement had sunk; the demotion path above never aborts.
func (e *Engine) abortWithConflict(reader *Transaction) {
	if reader.status == TxCommitted || reader.status == TxAborted {
		return
	}
	e.removeReadView(reader)
	reader.status = TxAborted
}

func (e *Engine) insertReadView(txn *Transaction) {
	i := 0
	for i < len(e.readViewList) && e.readViewList[i].rvPSN <= txn.rvPSN {
		i++
	}
	e.readViewList = append(e.readViewList, nil)
	copy(e.readViewList[i+1:], e.readViewList[i:])
	e.readViewList[i] = txn
}

func (e *Engine) removeReadView(txn *Transaction) {
	for i, t := range e.readViewList {
		if t == txn {
			e.readViewList = append(e.readViewList[:i], e.readViewList[i+1:]...)
			return
		}
	}
}

// cascade applies the conflict consequences of preparing stmt at psn:
// every other in-progress or read-view reader of the story stmt deletes is
// confined to a snapshot that excludes the delete, and every foreign gap
// or point-hole tracker stmt's insert falsified is confined the same way.
// BEST_EFFORT readers are exempt, matching their relaxed contract.
func (e *Engine) cascade(stmt *Statement, psn uint64) {
	if stmt.oldStory != nil {
		for rt := stmt.oldStory.readers; rt != nil; rt = rt.nextInStory {
			reader := rt.reader
			if reader == stmt.txn || reader.isolation == BestEffort {
				continue
			}
			e.sendToReadView(reader, psn-1, stmt)
		}
	}
	for _, g := range stmt.pendingGapConflicts {
		if g.txn == stmt.txn || g.txn.isolation == BestEffort {
			continue
		}
		if g.txn.status == TxInProgress || g.txn.status == TxInReadView {
			e.sendToReadView(g.txn, psn-1, stmt)
		}
	}
	for _, pt := range stmt.pendingPointConflicts {
		if pt.txn == stmt.txn || pt.txn.isolation == BestEffort {
			continue
		}
		if pt.txn.status == TxInProgress || pt.txn.status == TxInReadView {
			e.sendToReadView(pt.txn, psn-1, stmt)
		}
	}
}

// unwindCascade reverses the demotions attributed to stmt (RollbackStmt's
// prepared path), re-promoting any reader no other statement still demotes.
func (e *Engine) unwindCascade(stmt *Statement) {
	for _, reader := range stmt.demotedReaders {
		reader.removeDemotion(stmt)
		if len(reader.demotions) == 0 {
			if reader.status == TxInReadView {
				e.removeReadView(reader)
				reader.status = TxInProgress
				reader.rvPSN = 0
			}
			continue
		}
		reader.recomputeRVPSN()
		if reader.status == TxInReadView {
			e.removeReadView(reader)
			e.insertReadView(reader)
		}
	}
	stmt.demotedReaders = nil
}
