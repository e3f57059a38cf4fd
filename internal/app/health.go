package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/morph/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "", "Ollama base URL (defaults to OLLAMA_HOST)")
	timeout := fs.Duration("timeout", 5*time.Second, "Ollama request timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	address := firstNonEmpty(*host, cfg.OllamaHost)
	registry, err := connectRegistry(logger, address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid Ollama address: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	models, err := registry.ListModels(ctx)
	if err != nil {
		logger.Error().Err(err).Str("address", address).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	logger.Info().
		Str("address", address).
		Int("models", len(models)).
		Dur("timeout", *timeout).
		Msg("ollama health check passed")
	fmt.Printf("ok: ollama at %s answered with %d models\n", address, len(models))
	return 0
}
