// pkg/mvcc/doc.go
//
// This file collects notes that don't belong to any single type.
//
// The engine never takes a lock. Every exported method assumes its caller
// (pkg/space's scheduler) has already serialized access to this Engine and
// to any Transaction it hands out; calling two methods on the same Engine
// concurrently from separate goroutines without an external mutex is a
// race, not merely unsupported usage. This is a deliberate departure from
// pkg/space's Catalog, which does guard its own state with sync.RWMutex:
// the cost of a lock on every story traversal would be
// disproportionate to what a cooperative single-writer scheduler already
// gives for free.
//
// Errors returned by this package are sentinel values (errors.go) compared
// with errors.Is by convention, not wrapped in custom types: nothing here
// carries dynamic data worth a structured error, and a transaction that
// hits ErrConflict has exactly one correct response (roll back and maybe
// retry), not several that would need distinguishing.
package mvcc
