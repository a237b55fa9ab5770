// Package app implements the lingotab CLI commands.
package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lingotab/lingotab/internal/config"
	"github.com/lingotab/lingotab/internal/engine"
	"github.com/lingotab/lingotab/internal/provider"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "run":
		return runTranslate(args[1:])
	case "providers":
		return runProviders(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "lingotab CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lingotab <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run        Translate a CSV of records into one or more language groups")
	fmt.Fprintln(os.Stderr, "  providers  List providers with usable credentials")
	fmt.Fprintln(os.Stderr, "  serve      Start the HTTP API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"lingotab <command> -h\" for command-specific flags.")
}

// buildEngine wires the provider registry and per-provider throughput
// settings from the loaded configuration.
func buildEngine(cfg *config.Config, logger zerolog.Logger) (*engine.Engine, *provider.Registry) {
	registry := provider.NewRegistryFromConfig(cfg)

	settings := make(map[string]engine.Settings)
	for name, pc := range cfg.Providers() {
		settings[name] = engine.Settings{
			BatchSize:         pc.BatchSize,
			ConcurrentBatches: pc.ConcurrentBatches,
			Delay:             time.Duration(pc.DelayMs) * time.Millisecond,
			TokensPerMinute:   pc.TokensPerMinute,
		}
	}
	return engine.New(registry, settings, logger), registry
}
