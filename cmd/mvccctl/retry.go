package main

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tur/pkg/mvcc"
)

// conflictRetryMaxElapsed bounds how long a one-shot command keeps retrying
// a statement that keeps losing to concurrent writers before giving up.
const conflictRetryMaxElapsed = 5 * time.Second

func newConflictBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = conflictRetryMaxElapsed
	return bo
}

// runWithConflictRetry retries op for as long as it keeps returning
// ErrConflict, the way the teacher's storage layer retries a transient
// connection error: anything else is permanent and stops the retry loop
// immediately.
func runWithConflictRetry(ctx context.Context, op func() error) error {
	bo := newConflictBackoff()
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, mvcc.ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}
