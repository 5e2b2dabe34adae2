// pkg/index/hash.go
package index

import (
	"tur/pkg/tuple"
)

// Hash is an in-memory unordered index. It backs the "full-scan gap" case
// of spec.md §4.3: there is no ordering to reason about, only whether a
// transaction enumerated the whole index or looked up one exact key.
// Insertion order is kept alongside the lookup map purely so repeated
// full scans in tests are deterministic; the MVCC engine never depends on
// that order.
type Hash struct {
	id     ID
	unique bool
	keyFn  KeyFunc
	lookup map[string]*tuple.Tuple
	order  []*tuple.Tuple
}

func NewHash(id ID, unique bool, keyFn KeyFunc) *Hash {
	return &Hash{
		id:     id,
		unique: unique,
		keyFn:  keyFn,
		lookup: make(map[string]*tuple.Tuple),
	}
}

func (h *Hash) ID() ID        { return h.id }
func (h *Hash) Unique() bool  { return h.unique }
func (h *Hash) Ordered() bool { return false }

func (h *Hash) KeyOf(t *tuple.Tuple) []byte { return h.keyFn(t) }

func (h *Hash) Compare(a, b *tuple.Tuple) int {
	ka, kb := h.keyFn(a), h.keyFn(b)
	switch {
	case string(ka) < string(kb):
		return -1
	case string(ka) > string(kb):
		return 1
	default:
		return 0
	}
}

func (h *Hash) CompareWithKey(t *tuple.Tuple, key []byte) int {
	ka := h.keyFn(t)
	switch {
	case string(ka) < string(key):
		return -1
	case string(ka) > string(key):
		return 1
	default:
		return 0
	}
}

func (h *Hash) KeyHash(key []byte) uint64 { return fnvHash(key) }

func (h *Hash) Lookup(key []byte) (*tuple.Tuple, error) {
	t, ok := h.lookup[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return t, nil
}

func (h *Hash) Replace(old, newT *tuple.Tuple, mode ReplaceMode) (displaced, successor *tuple.Tuple, err error) {
	var key []byte
	switch {
	case newT != nil:
		key = h.keyFn(newT)
	case old != nil:
		key = h.keyFn(old)
	default:
		return nil, nil, ErrKeyNotFound
	}
	keyStr := string(key)
	existing, found := h.lookup[keyStr]

	if newT == nil {
		if !found {
			return nil, nil, ErrKeyNotFound
		}
		delete(h.lookup, keyStr)
		h.removeFromOrder(existing)
		return existing, nil, nil
	}

	if found {
		if mode == ModeInsert {
			return existing, nil, ErrDuplicateKey
		}
		h.lookup[keyStr] = newT
		h.replaceInOrder(existing, newT)
		return existing, nil, nil
	}

	if mode == ModeReplace {
		return nil, nil, ErrKeyNotFound
	}
	h.lookup[keyStr] = newT
	h.order = append(h.order, newT)
	return nil, nil, nil
}

func (h *Hash) removeFromOrder(t *tuple.Tuple) {
	for i, e := range h.order {
		if e == t {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}

func (h *Hash) replaceInOrder(old, newT *tuple.Tuple) {
	for i, e := range h.order {
		if e == old {
			h.order[i] = newT
			return
		}
	}
}

// Iterate ignores it/key (a hash index only supports the full-scan shape);
// key is accepted for interface symmetry with Ordered.
func (h *Hash) Iterate(it IteratorType, key []byte) Cursor {
	entries := append([]*tuple.Tuple(nil), h.order...)
	return &orderedCursor{entries: entries, pos: -1}
}
