package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"horse.fit/morph/internal/cli"
	"horse.fit/morph/internal/translation"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "", "Ollama base URL (defaults to OLLAMA_HOST)")
	model := fs.String("model", "", "Model name (defaults to DEFAULT_MODEL)")
	from := fs.String("from", translation.AutoFormat, "Input format, or auto")
	to := fs.String("to", "", "Output format, for example: english, json, yaml")
	timeout := fs.Duration("timeout", 0, "Abort after this long (0 disables)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  morph translate --to <format> [flags] [text...]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Reads stdin when no text is given. Interrupt once to stop after")
		fmt.Fprintln(os.Stderr, "the current batch, twice to abort.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat := strings.TrimSpace(*to)
	if outputFormat == "" {
		fmt.Fprintln(os.Stderr, "--to is required")
		return 2
	}

	input, err := readInput(fs.Args(), os.Stdin)
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, *timeout)
		defer cancelTimeout()
	}

	stop := translation.NewStopSignal()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go relayInterrupts(ctx, sigCh, stop, cancel, os.Stderr)

	out := &fragmentWriter{w: os.Stdout}
	controller := translation.NewController(registry, logger)
	err = controller.Translate(ctx, translation.Request{
		Input:        input,
		InputFormat:  *from,
		OutputFormat: outputFormat,
		Model:        firstNonEmpty(*model, cfg.DefaultModel),
		Sink:         out,
	}, stop)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Translate failed: %v\n", err)
		return 1
	}
	if stop.Stopped() {
		fmt.Fprintln(os.Stderr, "Translation stopped.")
	}
	return 0
}

// readInput joins the positional args, or reads in when there are none or
// the only one is "-".
func readInput(args []string, in io.Reader) (string, error) {
	var input string
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		raw, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		input = strings.TrimRight(string(raw), "\r\n")
	} else {
		input = strings.Join(args, " ")
	}

	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("input text is empty")
	}
	return input, nil
}

// fragmentWriter prints response fragments as they arrive and ends the
// output with a newline.
type fragmentWriter struct {
	w       io.Writer
	written bool
	lastNL  bool
}

func (f *fragmentWriter) Send(chunk translation.Chunk) error {
	if chunk.IsEndOfStream() {
		if f.written && !f.lastNL {
			_, err := io.WriteString(f.w, "\n")
			return err
		}
		return nil
	}

	text := chunk.Response.Response
	if text == "" {
		return nil
	}
	if _, err := io.WriteString(f.w, text); err != nil {
		return err
	}
	f.written = true
	f.lastNL = strings.HasSuffix(text, "\n")
	return nil
}

// relayInterrupts turns the first signal into a soft stop and the second
// into an abort.
func relayInterrupts(ctx context.Context, signals <-chan os.Signal, stop *translation.StopSignal, abort context.CancelFunc, notice io.Writer) {
	select {
	case <-ctx.Done():
		return
	case <-signals:
	}
	stop.Stop()
	fmt.Fprintln(notice, "Stopping after the current batch, interrupt again to abort.")

	select {
	case <-ctx.Done():
	case <-signals:
		abort()
	}
}

var _ translation.Sink = (*fragmentWriter)(nil)
