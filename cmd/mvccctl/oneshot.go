package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tur/pkg/index"
	"tur/pkg/mvcc"
	"tur/pkg/space"
	"tur/pkg/tuple"
)

// ensureSpace fetches spaceName, creating it with the REPL's default
// id/text schema if this is the first command to touch it. Since every
// mvccctl invocation starts a fresh, empty-catalog engine, a one-shot
// command has nowhere else to learn the schema from.
func ensureSpace(c *space.Catalog, spaceName string) (*space.Space, error) {
	sp, err := c.Get(spaceName)
	if err == nil {
		return sp, nil
	}
	if !errors.Is(err, space.ErrSpaceNotFound) {
		return nil, err
	}
	return c.Create(spaceName,
		[]space.Field{{Name: "id", Type: space.FieldInt}, {Name: "text", Type: space.FieldText}},
		[]space.IndexDef{{Name: "primary", Kind: space.IndexOrdered, Unique: true, Fields: []int{0}}},
	)
}

// newPutCmd is a scripting-friendly counterpart to the repl's "put": it
// opens its own transaction, retries the whole begin/write/commit cycle on
// ErrConflict, and exits. Useful for one-off writes from shell scripts
// where holding a REPL open isn't worth it.
func newPutCmd() *cobra.Command {
	var spaceName string
	cmd := &cobra.Command{
		Use:   "put <id> <text>",
		Short: "Insert or replace a single row in one shot, retrying on conflict",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSessionFromFlags()
			if err != nil {
				return err
			}
			sp, err := ensureSpace(s.catalog, spaceName)
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("id must be an integer: %w", err)
			}
			ctx := cmdContext()
			return runWithConflictRetry(ctx, func() error {
				return s.sched.Run(ctx, func(e *mvcc.Engine, _ *space.Catalog) error {
					txn := e.Begin(mvcc.ReadCommitted)
					if _, err := e.AddStmt(txn, sp.MVCC(), []tuple.Value{tuple.NewInt(id), tuple.NewText(args[1])}, index.ModeReplaceOrInsert); err != nil {
						e.RollbackTxn(txn)
						return err
					}
					if err := e.PrepareTxn(txn); err != nil {
						e.RollbackTxn(txn)
						return err
					}
					return e.CommitTxn(txn)
				})
			})
		},
	}
	cmd.Flags().StringVar(&spaceName, "space", "", "space to write into (created if it does not exist)")
	_ = cmd.MarkFlagRequired("space")
	return cmd
}
