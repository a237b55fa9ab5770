package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lingotab/lingotab/internal/cli"
	"github.com/lingotab/lingotab/internal/config"
	"github.com/lingotab/lingotab/internal/csvio"
	"github.com/lingotab/lingotab/internal/domain"
	"github.com/lingotab/lingotab/internal/engine"
	"github.com/lingotab/lingotab/internal/logging"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	inputPath := fs.String("input", "", "Input CSV file with key,source,text columns (- for stdin)")
	groupsPath := fs.String("groups", "", "JSON file describing the language groups")
	outputPath := fs.String("output", "-", "Output CSV file (- for stdout)")
	metadata := fs.Bool("metadata", true, "Include category and reasoning columns in the output")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*inputPath) == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
		return 2
	}
	if strings.TrimSpace(*groupsPath) == "" {
		fmt.Fprintln(os.Stderr, "--groups is required")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	records, err := readInput(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		return 1
	}

	groups, err := loadGroups(*groupsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load groups: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		logger.Warn().Msg("interrupt received, finishing current wave")
		cancel()
	}()

	eng, _ := buildEngine(cfg, logger)

	table, runErr := eng.Run(ctx, engine.Input{
		Records: records,
		Groups:  groups,
		Progress: func(groupID string, percent int) {
			logger.Info().Str("group", groupID).Int("percent", percent).Msg("progress")
		},
	})
	if runErr != nil && table == nil {
		logger.Error().Err(runErr).Msg("run rejected")
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", runErr)
		return 1
	}

	if err := writeOutput(*outputPath, table, records, groups, *metadata); err != nil {
		logger.Error().Err(err).Msg("write output failed")
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}

	if runErr != nil {
		// The partial table was still written; sentinels mark what the
		// cancellation skipped.
		logger.Warn().Err(runErr).Msg("run canceled, partial output written")
		return 1
	}
	return 0
}

func readInput(path string) ([]domain.Record, error) {
	if path == "-" {
		return csvio.ReadRecords(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csvio.ReadRecords(f)
}

func writeOutput(path string, table domain.Table, records []domain.Record, groups []*domain.Group, includeMetadata bool) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return csvio.WriteTable(w, table, records, groups, includeMetadata)
}

// loadGroups reads and validates the group definition file.
func loadGroups(path string) ([]*domain.Group, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var groups []*domain.Group
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, fmt.Errorf("parse groups JSON: %w", err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("groups file defines no groups")
	}

	seen := make(map[string]bool, len(groups))
	for i, group := range groups {
		if strings.TrimSpace(group.ID) == "" {
			return nil, fmt.Errorf("groups[%d]: id is required", i)
		}
		if strings.TrimSpace(group.Name) == "" {
			return nil, fmt.Errorf("groups[%d]: name is required", i)
		}
		if !domain.KnownProvider(group.Provider) {
			return nil, fmt.Errorf("groups[%d]: unknown provider %q", i, group.Provider)
		}
		if seen[group.ID] {
			return nil, fmt.Errorf("groups[%d]: duplicate id %q", i, group.ID)
		}
		seen[group.ID] = true
	}
	return groups, nil
}
