package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"horse.fit/morph/internal/cli"
	"horse.fit/morph/internal/ollama"
)

func runModels(args []string) int {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "", "Ollama base URL (defaults to OLLAMA_HOST)")
	timeout := fs.Duration("timeout", 10*time.Second, "Ollama request timeout")
	formatRaw := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	format, err := parseOutputFormat(*formatRaw, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	registry, err := connectRegistry(logger, firstNonEmpty(*host, cfg.OllamaHost))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid Ollama address: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	models, err := registry.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "List models failed: %v\n", err)
		return 1
	}

	if err := printModels(os.Stdout, models, format); err != nil {
		fmt.Fprintf(os.Stderr, "Write output failed: %v\n", err)
		return 1
	}
	return 0
}

func printModels(w io.Writer, models []ollama.LocalModel, format string) error {
	if format == outputFormatJSON {
		return printJSON(w, map[string]any{
			"items": models,
		})
	}

	rows := make([][]string, 0, len(models))
	for _, model := range models {
		rows = append(rows, []string{
			model.Name,
			formatSize(model.Size),
			formatUTCTimestamp(model.ModifiedAt),
		})
	}
	return writeTable(w, []string{"NAME", "SIZE", "MODIFIED"}, rows)
}
