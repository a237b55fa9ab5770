package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/lingotab/lingotab/internal/cli"
	"github.com/lingotab/lingotab/internal/config"
	"github.com/lingotab/lingotab/internal/provider"
)

func runProviders(args []string) int {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
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

	registry := provider.NewRegistryFromConfig(cfg)
	names := registry.Names()
	if len(names) == 0 {
		fmt.Println("No providers configured. Set OPENAI_API_KEY, GEMINI_API_KEY or ANTHROPIC_API_KEY.")
		return 0
	}
	for _, name := range names {
		client, _ := registry.Client(name)
		fmt.Printf("%s\t%s\n", name, client.Model())
	}
	return 0
}
