// pkg/index/ordered.go
package index

import (
	"bytes"
	"sort"

	"tur/pkg/tuple"
)

// Comparator orders two raw keys; Ordered defaults to bytes.Compare, which
// is sufficient for the order-preserving big-endian keys pkg/space's
// EncodeKey produces.
type Comparator func(a, b []byte) int

// Ordered is an in-memory ordered index: a single sorted slice of tuples
// kept in key order via binary-search insert/delete. Grounded on the
// teacher's pkg/tree.Tree/Cursor interface shape and the leaf-linked-list
// range-scan idea from pkg/cowbtree — simplified to a flat slice because
// spec.md §1 puts the index's own storage layout out of this engine's
// scope; only the primitives below need to behave correctly.
type Ordered struct {
	id      ID
	unique  bool
	keyFn   KeyFunc
	cmp     Comparator
	entries []*tuple.Tuple // sorted ascending by keyFn
}

// NewOrdered creates an empty ordered index. cmp may be nil to use
// bytes.Compare.
func NewOrdered(id ID, unique bool, keyFn KeyFunc, cmp Comparator) *Ordered {
	if cmp == nil {
		cmp = bytes.Compare
	}
	return &Ordered{id: id, unique: unique, keyFn: keyFn, cmp: cmp}
}

func (o *Ordered) ID() ID        { return o.id }
func (o *Ordered) Unique() bool  { return o.unique }
func (o *Ordered) Ordered() bool { return true }

func (o *Ordered) KeyOf(t *tuple.Tuple) []byte { return o.keyFn(t) }

func (o *Ordered) Compare(a, b *tuple.Tuple) int {
	return o.cmp(o.keyFn(a), o.keyFn(b))
}

func (o *Ordered) CompareWithKey(t *tuple.Tuple, key []byte) int {
	full := o.keyFn(t)
	if len(key) < len(full) {
		return o.cmp(full[:len(key)], key)
	}
	return o.cmp(full, key)
}

func (o *Ordered) KeyHash(key []byte) uint64 { return fnvHash(key) }

// find returns the smallest index i such that entries[i]'s key >= key, and
// whether entries[i]'s key equals key exactly.
func (o *Ordered) find(key []byte) (int, bool) {
	i := sort.Search(len(o.entries), func(i int) bool {
		return o.cmp(o.keyFn(o.entries[i]), key) >= 0
	})
	if i < len(o.entries) && o.cmp(o.keyFn(o.entries[i]), key) == 0 {
		return i, true
	}
	return i, false
}

func (o *Ordered) Lookup(key []byte) (*tuple.Tuple, error) {
	i, found := o.find(key)
	if !found {
		return nil, ErrKeyNotFound
	}
	return o.entries[i], nil
}

func (o *Ordered) Replace(old, newT *tuple.Tuple, mode ReplaceMode) (displaced, successor *tuple.Tuple, err error) {
	var key []byte
	switch {
	case newT != nil:
		key = o.keyFn(newT)
	case old != nil:
		key = o.keyFn(old)
	default:
		return nil, nil, ErrKeyNotFound
	}

	i, found := o.find(key)

	if newT == nil {
		// Delete path.
		if !found {
			return nil, nil, ErrKeyNotFound
		}
		displaced = o.entries[i]
		o.entries = append(o.entries[:i], o.entries[i+1:]...)
		if i < len(o.entries) {
			successor = o.entries[i]
		}
		return displaced, successor, nil
	}

	if found {
		if mode == ModeInsert {
			return o.entries[i], nil, ErrDuplicateKey
		}
		displaced = o.entries[i]
		o.entries[i] = newT
		if i+1 < len(o.entries) {
			successor = o.entries[i+1]
		}
		return displaced, successor, nil
	}

	if mode == ModeReplace {
		return nil, nil, ErrKeyNotFound
	}
	o.entries = append(o.entries, nil)
	copy(o.entries[i+1:], o.entries[i:])
	o.entries[i] = newT
	if i+1 < len(o.entries) {
		successor = o.entries[i+1]
	}
	return nil, successor, nil
}

func (o *Ordered) Iterate(it IteratorType, key []byte) Cursor {
	switch it {
	case IterEq, IterReqEq:
		i, _ := o.find(key)
		if i >= len(o.entries) || o.CompareWithKey(o.entries[i], key) != 0 {
			return &orderedCursor{}
		}
		// Gather the (possibly multi-entry, for a partial/secondary key)
		// equal run, honoring direction for IterReqEq.
		j := i
		for j < len(o.entries) && o.cmp(o.keyFn(o.entries[j])[:min(len(key), len(o.keyFn(o.entries[j])))], key) == 0 {
			j++
		}
		run := append([]*tuple.Tuple(nil), o.entries[i:j]...)
		if it == IterReqEq {
			reverse(run)
		}
		return &orderedCursor{entries: run, pos: -1}
	case IterGE:
		i, _ := o.find(key)
		return &orderedCursor{entries: o.entries[i:], pos: -1}
	case IterGT:
		i, found := o.find(key)
		if found {
			i++
		}
		return &orderedCursor{entries: o.entries[i:], pos: -1}
	case IterLT:
		i, _ := o.find(key)
		run := append([]*tuple.Tuple(nil), o.entries[:i]...)
		reverse(run)
		return &orderedCursor{entries: run, pos: -1}
	case IterLE:
		i, found := o.find(key)
		if found {
			i++
		}
		run := append([]*tuple.Tuple(nil), o.entries[:i]...)
		reverse(run)
		return &orderedCursor{entries: run, pos: -1}
	default:
		return &orderedCursor{}
	}
}

func reverse(s []*tuple.Tuple) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

type orderedCursor struct {
	entries []*tuple.Tuple
	pos     int
}

func (c *orderedCursor) Next() bool {
	c.pos++
	return c.pos < len(c.entries)
}

func (c *orderedCursor) Tuple() *tuple.Tuple {
	if c.pos < 0 || c.pos >= len(c.entries) {
		return nil
	}
	return c.entries[c.pos]
}

func (c *orderedCursor) Close() {}
