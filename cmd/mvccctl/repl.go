package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tur/pkg/index"
	"tur/pkg/mvcc"
	"tur/pkg/space"
	"tur/pkg/tuple"
)

// repl drives a single session's engine from line-based commands, the way
// the teacher's pkg/cli.REPL drives a SQL engine from statements, except a
// command here is one of a fixed small vocabulary rather than parsed SQL.
type repl struct {
	s       *session
	input   *bufio.Reader
	output  io.Writer
	errOut  io.Writer
	running bool
	txn     *mvcc.Transaction
}

func newREPL(s *session, input io.Reader, output, errOutput io.Writer) *repl {
	return &repl{
		s:      s,
		input:  bufio.NewReader(input),
		output: output,
		errOut: errOutput,
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Run an interactive session against a fresh in-process engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSessionFromFlags()
			if err != nil {
				return err
			}
			r := newREPL(s, os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
			r.run()
			return nil
		},
	}
}

func (r *repl) run() {
	r.running = true
	fmt.Fprintln(r.output, "mvccctl interactive session. Type \"help\" for commands, \"exit\" to quit.")

	for r.running {
		fmt.Fprint(r.output, "mvcc> ")
		line, err := r.input.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			r.dispatch(line)
		}
		if err != nil {
			fmt.Fprintln(r.output)
			break
		}
	}
}

func (r *repl) dispatch(line string) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	var err error
	switch cmd {
	case "help":
		r.printHelp()
	case "exit", "quit":
		r.running = false
	case "space":
		err = r.cmdSpace(args)
	case "begin":
		err = r.cmdBegin(args)
	case "put":
		err = r.cmdPut(args)
	case "get":
		err = r.cmdGet(args)
	case "delete":
		err = r.cmdDelete(args)
	case "scan":
		err = r.cmdScan(args)
	case "commit":
		err = r.cmdCommit()
	case "rollback":
		err = r.cmdRollback()
	case "gc":
		err = r.cmdGC(args)
	case "stats":
		err = r.cmdStats()
	default:
		fmt.Fprintf(r.errOut, "unknown command: %s (try \"help\")\n", cmd)
		return
	}
	if err != nil {
		fmt.Fprintf(r.errOut, "error: %v\n", err)
	}
}

func (r *repl) printHelp() {
	fmt.Fprint(r.output, `commands:
  space create <name>        create a space with a single unique int-keyed index
  begin [isolation]          start a transaction (READ_COMMITTED, READ_CONFIRMED, LINEARIZABLE, BEST_EFFORT)
  put <name> <id> <text>     insert or replace a row keyed by id
  get <name> <id>            fetch a row by id
  delete <name> <id>         delete a row by id
  scan <name>                iterate all visible rows in key order
  commit                     prepare and commit the current transaction
  rollback                   abort the current transaction
  gc [n]                     run n (default 1) garbage collection steps
  stats                      print space counts
  exit                       leave the session
`)
}

func (r *repl) cmdSpace(args []string) error {
	if len(args) != 2 || args[0] != "create" {
		return fmt.Errorf("usage: space create <name>")
	}
	_, err := r.s.catalog.Create(args[1],
		[]space.Field{{Name: "id", Type: space.FieldInt}, {Name: "text", Type: space.FieldText}},
		[]space.IndexDef{{Name: "primary", Kind: space.IndexOrdered, Unique: true, Fields: []int{0}}},
	)
	return err
}

func (r *repl) cmdBegin(args []string) error {
	if r.txn != nil && r.txn.Status() == mvcc.TxInProgress {
		return fmt.Errorf("a transaction is already open, commit or rollback first")
	}
	isolation := mvcc.ReadCommitted
	if len(args) > 0 {
		isolation = isolationFromString(strings.ToUpper(args[0]))
	}
	txn, err := r.s.sched.Begin(cmdContext(), isolation)
	if err != nil {
		return err
	}
	r.txn = txn
	fmt.Fprintf(r.output, "txn %d started\n", txn.ID())
	return nil
}

func (r *repl) resolveSpace(name string) (*space.Space, error) {
	return r.s.catalog.Get(name)
}

func (r *repl) requireTxn() (*mvcc.Transaction, error) {
	if r.txn == nil || r.txn.Status() != mvcc.TxInProgress {
		return nil, fmt.Errorf("no transaction in progress, run \"begin\" first")
	}
	return r.txn, nil
}

func (r *repl) cmdPut(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: put <space> <id> <text>")
	}
	txn, err := r.requireTxn()
	if err != nil {
		return err
	}
	sp, err := r.resolveSpace(args[0])
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("id must be an integer: %w", err)
	}
	return r.s.sched.Run(cmdContext(), func(e *mvcc.Engine, _ *space.Catalog) error {
		_, err := e.AddStmt(txn, sp.MVCC(), []tuple.Value{tuple.NewInt(id), tuple.NewText(args[2])}, index.ModeReplaceOrInsert)
		return err
	})
}

func (r *repl) cmdGet(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: get <space> <id>")
	}
	txn, err := r.requireTxn()
	if err != nil {
		return err
	}
	sp, err := r.resolveSpace(args[0])
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("id must be an integer: %w", err)
	}
	var t *tuple.Tuple
	err = r.s.sched.Run(cmdContext(), func(e *mvcc.Engine, _ *space.Catalog) error {
		var getErr error
		t, getErr = e.Get(txn, sp.MVCC(), 0, space.EncodeKey(tuple.NewInt(id)))
		return getErr
	})
	if err != nil {
		return err
	}
	printTuple(r.output, t)
	return nil
}

func (r *repl) cmdDelete(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: delete <space> <id>")
	}
	txn, err := r.requireTxn()
	if err != nil {
		return err
	}
	sp, err := r.resolveSpace(args[0])
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("id must be an integer: %w", err)
	}
	return r.s.sched.Run(cmdContext(), func(e *mvcc.Engine, _ *space.Catalog) error {
		_, err := e.DeleteStmt(txn, sp.MVCC(), space.EncodeKey(tuple.NewInt(id)))
		return err
	})
}

func (r *repl) cmdScan(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: scan <space>")
	}
	txn, err := r.requireTxn()
	if err != nil {
		return err
	}
	sp, err := r.resolveSpace(args[0])
	if err != nil {
		return err
	}
	var rows []*tuple.Tuple
	err = r.s.sched.Run(cmdContext(), func(e *mvcc.Engine, _ *space.Catalog) error {
		var scanErr error
		rows, scanErr = e.Scan(txn, sp.MVCC(), 0, index.IterGE, nil)
		return scanErr
	})
	if err != nil {
		return err
	}
	for _, t := range rows {
		printTuple(r.output, t)
	}
	fmt.Fprintf(r.output, "%d row(s)\n", len(rows))
	return nil
}

func (r *repl) cmdCommit() error {
	txn, err := r.requireTxn()
	if err != nil {
		return err
	}
	return r.s.sched.Run(cmdContext(), func(e *mvcc.Engine, _ *space.Catalog) error {
		if err := e.PrepareTxn(txn); err != nil {
			return err
		}
		return e.CommitTxn(txn)
	})
}

func (r *repl) cmdRollback() error {
	txn, err := r.requireTxn()
	if err != nil {
		return err
	}
	return r.s.sched.Run(cmdContext(), func(e *mvcc.Engine, _ *space.Catalog) error {
		e.RollbackTxn(txn)
		return nil
	})
}

func (r *repl) cmdGC(args []string) error {
	n := 1
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("n must be an integer: %w", err)
		}
		n = parsed
	}
	total := 0
	err := r.s.sched.Run(cmdContext(), func(e *mvcc.Engine, _ *space.Catalog) error {
		for i := 0; i < n; i++ {
			total += e.GCStep()
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.output, "collected %d stories\n", total)
	return nil
}

func (r *repl) cmdStats() error {
	for _, name := range r.s.catalog.List() {
		sp, err := r.s.catalog.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.output, "%s: %d tuples\n", name, sp.MVCC().TupleCount())
	}
	return nil
}

func printTuple(w io.Writer, t *tuple.Tuple) {
	if t == nil {
		fmt.Fprintln(w, "(nil)")
		return
	}
	parts := make([]string, 0, len(t.Values()))
	for _, v := range t.Values() {
		parts = append(parts, formatValue(v))
	}
	fmt.Fprintln(w, strings.Join(parts, " | "))
}

func formatValue(v tuple.Value) string {
	switch v.Type() {
	case tuple.TypeNull:
		return "NULL"
	case tuple.TypeInt:
		return strconv.FormatInt(v.Int(), 10)
	case tuple.TypeFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case tuple.TypeText:
		return v.Text()
	default:
		return fmt.Sprintf("[blob %d bytes]", len(v.Blob()))
	}
}
