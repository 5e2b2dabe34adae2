// pkg/mvcc/visibility.go
package mvcc

import "tur/pkg/index"

// clarify walks a version chain, newest to oldest, starting at start, and
// returns the first story visible to reader — or nil if no version of this
// key is visible (the row does not exist as far as reader can tell). As a
// side effect, a found story gains a read tracker (pinning it against GC)
// unless reader is READ_COMMITTED, which by definition never needs a
// repeatable view and so never needs to pin anything; and a story skipped
// only because reader cannot yet see its prepared fact demotes reader to a
// read view that excludes it (see demoteOnSkip).
func (e *Engine) clarify(reader *Transaction, start *Story, idx index.ID) *Story {
	preparedOk := isPreparedOk(reader)
	for cur := start; cur != nil; cur = cur.links[idx].older {
		if e.deletedVisibleTo(reader, cur, preparedOk) {
			return nil
		}
		if e.addedVisibleTo(reader, cur, preparedOk) {
			if reader.isolation != ReadCommitted {
				trackRead(reader, cur)
			}
			return cur
		}
		e.demoteOnSkip(reader, preparedOk, cur)
	}
	return nil
}

// isPreparedOk implements spec.md §4.4's is_prepared_ok flag: whether
// reader may see a fact (an insert or delete) that has been prepared —
// assigned a PSN — but not yet committed. §4.4 also exempts "system
// spaces" unconditionally; this engine has no such concept (pkg/space's
// catalog draws no distinction between user and system spaces), so that
// exemption has nothing to bind to and is intentionally not modeled here.
func isPreparedOk(reader *Transaction) bool {
	switch reader.isolation {
	case ReadCommitted:
		return true
	case BestEffort:
		// A best-effort transaction that has not written anything yet
		// reads a stable confirmed view like READ_CONFIRMED; one that has
		// already written tolerates seeing concurrent prepared facts,
		// since it has already accepted the risk of a write-write race.
		return reader.wroteAnything
	default: // ReadConfirmed, Linearizable
		return false
	}
}

// addedVisibleTo reports whether story's introduction has happened as far
// as reader can see: either reader is the one introducing it, or it has
// committed, or it is merely prepared and preparedOk lets reader see
// prepared-not-yet-committed facts, at a PSN reader's snapshot includes.
func (e *Engine) addedVisibleTo(reader *Transaction, story *Story, preparedOk bool) bool {
	if story.addStmt != nil && story.addStmt.txn == reader {
		return true
	}
	if story.addPSN == 0 {
		return false // not even prepared yet
	}
	if !preparedOk && story.addStmt != nil && story.addStmt.txn.status != TxCommitted {
		return false // prepared but not committed, and reader may not see that
	}
	if reader.status == TxInReadView {
		return story.addPSN <= reader.rvPSN
	}
	return true
}

// deletedVisibleTo reports whether story's removal has happened as far as
// reader can see, under the same prepared/committed rule as addedVisibleTo.
func (e *Engine) deletedVisibleTo(reader *Transaction, story *Story, preparedOk bool) bool {
	if deleterIs(story, reader) {
		return true
	}
	if story.delPSN == 0 {
		return false // not prepared yet (or never deleted)
	}
	if !preparedOk {
		if d := deleterAtPSN(story); d != nil && d.txn.status != TxCommitted {
			return false
		}
	}
	if reader.status == TxInReadView {
		return story.delPSN <= reader.rvPSN
	}
	return true
}

// demoteOnSkip implements §4.4's lazy-demotion side effect: if cur carries
// a prepared insert or delete that reader just failed to see, reader is
// confined (via send_to_read_view) to a snapshot that excludes it — this
// is how the engine lazily discovers that reader cannot see a concurrent
// committer, rather than requiring the preparer to have known about every
// potential reader in advance.
func (e *Engine) demoteOnSkip(reader *Transaction, preparedOk bool, cur *Story) {
	if cur.delPSN != 0 && !deleterIs(cur, reader) && !e.deletedVisibleTo(reader, cur, preparedOk) {
		e.sendToReadView(reader, cur.delPSN-1, deleterAtPSN(cur))
	}
	if cur.addPSN != 0 && !(cur.addStmt != nil && cur.addStmt.txn == reader) && !e.addedVisibleTo(reader, cur, preparedOk) {
		e.sendToReadView(reader, cur.addPSN-1, cur.addStmt)
	}
}

// deleterAtPSN returns the deleter statement that actually holds story's
// current del_psn, or nil if none is found (should not happen for a live
// story with delPSN != 0).
func deleterAtPSN(story *Story) *Statement {
	for d := story.delStmt; d != nil; d = d.nextDeleter {
		if d.psn == story.delPSN {
			return d
		}
	}
	return nil
}

// deleterIs reports whether txn appears anywhere in story's singly-linked
// list of in-progress-or-prepared deleters.
func deleterIs(story *Story, txn *Transaction) bool {
	for d := story.delStmt; d != nil; d = d.nextDeleter {
		if d.txn == txn {
			return true
		}
	}
	return false
}
