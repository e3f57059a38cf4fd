package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"horse.fit/morph/internal/ollama"
	"horse.fit/morph/internal/translation"
)

func TestRun_Dispatch(t *testing.T) {
	if code := Run(nil); code != 2 {
		t.Fatalf("expected usage exit code for no args, got %d", code)
	}
	if code := Run([]string{"help"}); code != 0 {
		t.Fatalf("expected 0 for help, got %d", code)
	}
	if code := Run([]string{"frobnicate"}); code != 2 {
		t.Fatalf("expected 2 for an unknown command, got %d", code)
	}
	if code := Run([]string{"translate", "--from", "french", "bonjour"}); code != 2 {
		t.Fatalf("expected 2 when --to is missing, got %d", code)
	}
	if code := Run([]string{"serve", "--port", "70000"}); code != 2 {
		t.Fatalf("expected 2 for an out of range port, got %d", code)
	}
	if code := Run([]string{"models", "--format", "xml"}); code != 2 {
		t.Fatalf("expected 2 for an unknown output format, got %d", code)
	}
}

func TestReadInput(t *testing.T) {
	t.Parallel()

	got, err := readInput([]string{"hello", "world"}, strings.NewReader("ignored"))
	if err != nil || got != "hello world" {
		t.Fatalf("unexpected args input: %q, %v", got, err)
	}

	got, err = readInput(nil, strings.NewReader("line one\nline two\n"))
	if err != nil || got != "line one\nline two" {
		t.Fatalf("unexpected stdin input: %q, %v", got, err)
	}

	got, err = readInput([]string{"-"}, strings.NewReader("  indented\n"))
	if err != nil || got != "  indented" {
		t.Fatalf("expected leading whitespace to survive: %q, %v", got, err)
	}

	if _, err := readInput(nil, strings.NewReader(" \n\n")); err == nil {
		t.Fatalf("expected empty input to be rejected")
	}
}

func chunkOf(text string) translation.Chunk {
	return translation.Chunk{
		Kind:     translation.ChunkResponse,
		Response: ollama.GenerationResponse{Response: text},
	}
}

func TestFragmentWriter(t *testing.T) {
	t.Parallel()

	end := translation.Chunk{Kind: translation.ChunkEndOfStream}

	var buf bytes.Buffer
	w := &fragmentWriter{w: &buf}
	for _, chunk := range []translation.Chunk{chunkOf("Hel"), chunkOf(""), chunkOf("lo"), end} {
		if err := w.Send(chunk); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if buf.String() != "Hello\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	w = &fragmentWriter{w: &buf}
	_ = w.Send(chunkOf("done\n"))
	_ = w.Send(end)
	if buf.String() != "done\n" {
		t.Fatalf("expected no doubled newline, got %q", buf.String())
	}

	buf.Reset()
	w = &fragmentWriter{w: &buf}
	_ = w.Send(end)
	if buf.Len() != 0 {
		t.Fatalf("expected nothing for an empty translation, got %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed pipe")
}

func TestFragmentWriter_ReportsWriteErrors(t *testing.T) {
	t.Parallel()

	w := &fragmentWriter{w: failingWriter{}}
	if err := w.Send(chunkOf("x")); err == nil {
		t.Fatalf("expected the write error")
	}
}

func TestRelayInterrupts_FirstStopsSecondAborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 2)
	stop := translation.NewStopSignal()
	var notice bytes.Buffer
	done := make(chan struct{})
	go func() {
		relayInterrupts(ctx, signals, stop, cancel, &notice)
		close(done)
	}()

	signals <- os.Interrupt
	deadline := time.After(2 * time.Second)
	for !stop.Stopped() {
		select {
		case <-deadline:
			t.Fatalf("expected the first interrupt to fire the stop signal")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if ctx.Err() != nil {
		t.Fatalf("expected the first interrupt not to abort")
	}

	signals <- os.Interrupt
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected relay to return after the second interrupt")
	}
	if ctx.Err() == nil {
		t.Fatalf("expected the second interrupt to abort")
	}
	if !strings.Contains(notice.String(), "interrupt again") {
		t.Fatalf("unexpected notice %q", notice.String())
	}
}

func TestRelayInterrupts_ReturnsWhenCallEnds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	stop := translation.NewStopSignal()
	done := make(chan struct{})
	go func() {
		relayInterrupts(ctx, make(chan os.Signal), stop, cancel, &bytes.Buffer{})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected relay to return once the context ends")
	}
	if stop.Stopped() {
		t.Fatalf("expected no stop without an interrupt")
	}
}

func TestPrintModels(t *testing.T) {
	t.Parallel()

	models := []ollama.LocalModel{
		{Name: "llama3:latest", Size: 4661224676, ModifiedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{Name: "tiny", Size: 512},
	}

	var table bytes.Buffer
	if err := printModels(&table, models, outputFormatTable); err != nil {
		t.Fatalf("print table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(table.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "NAME") {
		t.Fatalf("unexpected table:\n%s", table.String())
	}
	if !strings.Contains(lines[1], "4.3 GiB") || !strings.Contains(lines[1], "2024-05-01T10:00:00Z") {
		t.Fatalf("unexpected row: %q", lines[1])
	}
	if !strings.Contains(lines[2], "512 B") {
		t.Fatalf("unexpected row: %q", lines[2])
	}

	var out bytes.Buffer
	if err := printModels(&out, models, outputFormatJSON); err != nil {
		t.Fatalf("print json: %v", err)
	}
	var decoded struct {
		Items []ollama.LocalModel `json:"items"`
	}
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded.Items) != 2 || decoded.Items[0].Name != "llama3:latest" {
		t.Fatalf("unexpected json items: %+v", decoded.Items)
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	cases := map[int64]string{
		0:          "0 B",
		1023:       "1023 B",
		1024:       "1.0 KiB",
		1536:       "1.5 KiB",
		1048576:    "1.0 MiB",
		4661224676: "4.3 GiB",
	}
	for size, want := range cases {
		if got := formatSize(size); got != want {
			t.Fatalf("formatSize(%d) = %q, want %q", size, got, want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	t.Parallel()

	if got := firstNonEmpty("", "  ", " http://a ", "http://b"); got != "http://a" {
		t.Fatalf("unexpected value %q", got)
	}
	if got := firstNonEmpty("", " "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
