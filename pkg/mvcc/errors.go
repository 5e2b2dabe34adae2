// pkg/mvcc/errors.go
package mvcc

import "errors"

var (
	// ErrTxNotActive names a transaction that is no longer in progress. No
	// function in this package returns it: operations on a committed or
	// aborted transaction return ErrConflict.
	ErrTxNotActive = errors.New("mvcc: transaction is not active")

	// ErrConflict is returned when a statement would violate serializability
	// and the transaction must be aborted rather than committed.
	ErrConflict = errors.New("mvcc: transaction aborted by conflict")

	// ErrDuplicateKey surfaces a unique-index violation resolved against a
	// dirty displacement's visibility (spec.md §4.5 insert path).
	ErrDuplicateKey = errors.New("mvcc: duplicate key")

	// ErrSavepointNotFound is returned by RollbackToSavepoint for an
	// unknown savepoint name.
	ErrSavepointNotFound = errors.New("mvcc: savepoint not found")

	// ErrMultikeyUnsupported is returned when a space tries to attach a
	// multikey or functional-key index; see SPEC_FULL.md §9's open question.
	ErrMultikeyUnsupported = errors.New("mvcc: multikey indexes are not supported")

	// ErrAlreadyPrepared names a statement that has already been prepared.
	// No function in this package returns it: RollbackStmt handles both
	// prepared and never-prepared statements itself and returns no error.
	ErrAlreadyPrepared = errors.New("mvcc: statement already prepared")
)
