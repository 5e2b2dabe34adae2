// pkg/mvcc/pointhole.go
package mvcc

import "tur/pkg/index"

// pointHoleKey identifies a unique-index lookup that found nothing, keyed
// by the index's identity and the raw key bytes, per spec.md §4.3's
// point-hole case (the degenerate gap of a single missed unique key).
type pointHoleKey struct {
	space uint32
	idx   index.ID
	key   string
}

// PointHoleTracker records that a transaction looked up key on a unique
// index and found no matching row, pinning that absence against
// concurrent inserts of the same key.
type PointHoleTracker struct {
	txn   *Transaction
	space *Space
	idx   index.ID
	key   []byte

	prevInTxn, nextInTxn *PointHoleTracker
}

// trackPoint installs a point-hole tracker in the engine's global table,
// deduplicating against one this transaction already holds for the same
// (space, index, key).
func (e *Engine) trackPoint(txn *Transaction, space *Space, idx index.ID, key []byte) *PointHoleTracker {
	k := pointHoleKey{space: space.id, idx: idx, key: string(key)}
	for _, existing := range e.pointHoles[k] {
		if existing.txn == txn {
			return existing
		}
	}
	pt := &PointHoleTracker{txn: txn, space: space, idx: idx, key: key}
	e.pointHoles[k] = append(e.pointHoles[k], pt)
	pt.prevInTxn = nil
	pt.nextInTxn = txn.pointHolesHead
	if txn.pointHolesHead != nil {
		txn.pointHolesHead.prevInTxn = pt
	}
	txn.pointHolesHead = pt
	return pt
}

// handlePointHoleWrite reports every other transaction's point-hole
// tracker for (space, idx, key), for the conflict cascade to act on. The
// writer's own trackers for the same key are released in place, since the
// hole it was watching is the one it just filled.
func (e *Engine) handlePointHoleWrite(writer *Transaction, space *Space, idx index.ID, key []byte) []*PointHoleTracker {
	k := pointHoleKey{space: space.id, idx: idx, key: string(key)}
	trackers := e.pointHoles[k]
	if len(trackers) == 0 {
		return nil
	}
	var foreign []*PointHoleTracker
	var kept []*PointHoleTracker
	for _, pt := range trackers {
		if pt.txn == writer {
			e.releasePointHole(pt)
			continue
		}
		foreign = append(foreign, pt)
		kept = append(kept, pt)
	}
	if len(kept) == 0 {
		delete(e.pointHoles, k)
	} else {
		e.pointHoles[k] = kept
	}
	return foreign
}

func (e *Engine) releasePointHole(pt *PointHoleTracker) {
	txn := pt.txn
	if pt.prevInTxn != nil {
		pt.prevInTxn.nextInTxn = pt.nextInTxn
	} else {
		txn.pointHolesHead = pt.nextInTxn
	}
	if pt.nextInTxn != nil {
		pt.nextInTxn.prevInTxn = pt.prevInTxn
	}
	pt.prevInTxn, pt.nextInTxn = nil, nil

	k := pointHoleKey{space: pt.space.id, idx: pt.idx, key: string(pt.key)}
	list := e.pointHoles[k]
	for i, other := range list {
		if other == pt {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(e.pointHoles, k)
	} else {
		e.pointHoles[k] = list
	}
}

// releaseAllPointHoles drops every point-hole tracker a transaction owns.
func (e *Engine) releaseAllPointHoles(txn *Transaction) {
	for pt := txn.pointHolesHead; pt != nil; {
		next := pt.nextInTxn
		k := pointHoleKey{space: pt.space.id, idx: pt.idx, key: string(pt.key)}
		list := e.pointHoles[k]
		for i, other := range list {
			if other == pt {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(e.pointHoles, k)
		} else {
			e.pointHoles[k] = list
		}
		pt = next
	}
	txn.pointHolesHead = nil
}
