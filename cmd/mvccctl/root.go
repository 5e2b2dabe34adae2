package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tur/pkg/logging"
	"tur/pkg/mvcc"
	"tur/pkg/space"
)

// cmdContext returns the context subcommands run under. There is no
// cancellation source yet (no signal handling, no request deadline), but
// every scheduler call takes one so adding one later is not a signature
// change.
func cmdContext() context.Context { return context.Background() }

// session bundles everything a subcommand needs: the engine, catalog, and
// scheduler boundary above them, plus the logger every subcommand shares.
type session struct {
	logger  *logging.Logger
	engine  *mvcc.Engine
	catalog *space.Catalog
	sched   *space.Scheduler
}

func newSession(cfg fileConfig) *session {
	logger := logging.New(&logging.Config{Level: cfg.LogLevel, Prefix: "mvccctl"})
	engine := mvcc.NewEngine(cfg.engineConfig(), logger)
	catalog := space.NewCatalog()
	return &session{
		logger:  logger,
		engine:  engine,
		catalog: catalog,
		sched:   space.NewScheduler(engine, catalog),
	}
}

var (
	cfgFile string
	logLvl  string
)

// newRootCmd builds the mvccctl command tree. Flags are bound through
// viper (flag > env MVCCCTL_* > config file > default) the way the
// teacher's sync/config commands layer their own overrides, even though
// this CLI's state lives only for the process's lifetime.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mvccctl",
		Short: "Drive an in-memory MVCC storage engine from the command line",
		Long: `mvccctl starts a fresh in-process engine, runs the requested
operation, and exits; state does not persist across invocations. Use the
repl subcommand to script a sequence of operations against one engine
instance within a single process.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file")
	root.PersistentFlags().StringVar(&logLvl, "log-level", "info", "log level (debug, info, warn, error)")

	viper.SetEnvPrefix("MVCCCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newReplCmd())
	root.AddCommand(newInitConfigCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newPutCmd())

	return root
}

func loadSessionFromFlags() (*session, error) {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if viper.IsSet("log-level") {
		cfg.LogLevel = viper.GetString("log-level")
	}
	return newSession(cfg), nil
}

func newInitConfigCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default mvccctl.toml to the given path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := writeDefaultConfig(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "mvccctl.toml", "output path")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the number of spaces in a fresh engine and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSessionFromFlags()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "spaces: %d\n", s.catalog.Count())
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
