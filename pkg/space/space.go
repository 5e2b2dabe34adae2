// Package space is the catalog layer above pkg/mvcc: it names spaces and
// their fields/indexes the way pkg/schema.Catalog names tables, and wires
// each space to the per-space MVCC state the engine walks.
package space

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tur/pkg/mvcc"
)

var (
	ErrSpaceExists   = errors.New("space: already exists")
	ErrSpaceNotFound = errors.New("space: not found")
	ErrFieldNotFound = errors.New("space: field not found")
)

// FieldType names a field's storage affinity, mirroring tuple.ValueType
// without importing pkg/tuple's Value itself into the catalog's
// definition surface.
type FieldType int

const (
	FieldAny FieldType = iota
	FieldInt
	FieldFloat
	FieldText
	FieldBlob
)

// Field describes one column a space's tuples carry.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
}

// IndexKind selects the in-memory index implementation pkg/index provides.
type IndexKind int

const (
	IndexOrdered IndexKind = iota
	IndexHash
)

// IndexDef describes one of a space's indexes. Fields lists the space
// fields (by position in Space.Fields) that make up the index key; per
// SPEC_FULL.md §9 only single-field keys are supported, so Fields must
// have exactly one element.
type IndexDef struct {
	Name   string
	Kind   IndexKind
	Unique bool
	Fields []int
}

// Space is a named, schema'd collection of tuples, backed by one
// *mvcc.Space for version tracking and garbage collection.
type Space struct {
	ID     uuid.UUID
	Name   string
	Fields []Field
	Idxs   []IndexDef

	mvccSpace *mvcc.Space
}

// MVCC returns the per-space MVCC state the engine's statement and scan
// operations take.
func (s *Space) MVCC() *mvcc.Space { return s.mvccSpace }

// Catalog names every live space, the way pkg/schema.Catalog names tables.
// It is guarded by a mutex because, unlike pkg/mvcc.Engine, spaces are
// created and dropped from outside the single-threaded-cooperative
// scheduler (DDL is rare enough that serializing it is cheap).
type Catalog struct {
	mu     sync.RWMutex
	spaces map[string]*Space
}

func NewCatalog() *Catalog {
	return &Catalog{spaces: make(map[string]*Space)}
}

// Create registers a new space, building its backing indexes (via
// BuildIndexes) and its *mvcc.Space.
func (c *Catalog) Create(name string, fields []Field, idxs []IndexDef) (*Space, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.spaces[name]; exists {
		return nil, ErrSpaceExists
	}
	for _, d := range idxs {
		if len(d.Fields) != 1 {
			return nil, mvcc.ErrMultikeyUnsupported
		}
	}

	sp := &Space{
		ID:        uuid.New(),
		Name:      name,
		Fields:    fields,
		Idxs:      idxs,
		mvccSpace: mvcc.NewSpace(uint32(len(c.spaces)+1), BuildIndexes(idxs)),
	}
	c.spaces[name] = sp
	return sp, nil
}

// Drop invalidates a space's MVCC state (aborting any transaction whose
// gap tracker can no longer be satisfied) and removes it from the
// catalog.
func (c *Catalog) Drop(engine *mvcc.Engine, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sp, exists := c.spaces[name]
	if !exists {
		return ErrSpaceNotFound
	}
	engine.InvalidateSpace(sp.mvccSpace)
	delete(c.spaces, name)
	return nil
}

func (c *Catalog) Get(name string) (*Space, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sp, exists := c.spaces[name]
	if !exists {
		return nil, ErrSpaceNotFound
	}
	return sp, nil
}

func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.spaces))
	for name := range c.spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.spaces)
}

// FieldIndex returns a field's position by name, or ErrFieldNotFound.
func (s *Space) FieldIndex(name string) (int, error) {
	for i, f := range s.Fields {
		if f.Name == name {
			return i, nil
		}
	}
	return -1, ErrFieldNotFound
}
