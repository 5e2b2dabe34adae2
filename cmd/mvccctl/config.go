package main

import (
	"os"

	"github.com/BurntSushi/toml"

	"tur/pkg/mvcc"
)

// fileConfig mirrors mvcc.Config plus the CLI's own logging knob, decoded
// straight from TOML rather than through viper's config file support: the
// CLI's config file is its own small, hand-checked format, not something
// that benefits from viper's layered merge (that's reserved for flag/env
// overrides in root.go).
type fileConfig struct {
	LogLevel           string `toml:"log_level"`
	GCStoriesPerStep   int    `toml:"gc_stories_per_step"`
	GCStepsPerNewStory int    `toml:"gc_steps_per_new_story"`
	DefaultIsolation   string `toml:"default_isolation"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		LogLevel:           "info",
		GCStoriesPerStep:   64,
		GCStepsPerNewStory: 0,
		DefaultIsolation:   "READ_COMMITTED",
	}
}

// loadConfig decodes path if it exists, falling back to defaults
// otherwise; a missing config file is not an error, matching viper's
// ReadInConfig tolerance the teacher's own config loading leans on.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// writeDefaultConfig renders the default config as TOML to path, used by
// the "init-config" subcommand.
func writeDefaultConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(defaultFileConfig())
}

func isolationFromString(s string) mvcc.IsolationLevel {
	switch s {
	case "READ_CONFIRMED":
		return mvcc.ReadConfirmed
	case "LINEARIZABLE":
		return mvcc.Linearizable
	case "BEST_EFFORT":
		return mvcc.BestEffort
	default:
		return mvcc.ReadCommitted
	}
}

func (c fileConfig) engineConfig() mvcc.Config {
	return mvcc.Config{
		GCStoriesPerStep:   c.GCStoriesPerStep,
		GCStepsPerNewStory: c.GCStepsPerNewStory,
		DefaultIsolation:   isolationFromString(c.DefaultIsolation),
	}
}
