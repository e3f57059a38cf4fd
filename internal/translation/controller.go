// Package translation runs streamed, stoppable format translations
// against the connected peer.
package translation

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"horse.fit/morph/internal/connection"
	"horse.fit/morph/internal/globaltime"
	"horse.fit/morph/internal/ollama"
)

// SessionSource hands out snapshots of the current session.
type SessionSource interface {
	Current() (*connection.Session, bool)
}

// Request describes one translate call.
type Request struct {
	Input        string
	InputFormat  string
	OutputFormat string
	Model        string
	Sink         Sink
}

// Controller runs translate calls. One Controller serves any number of
// concurrent calls.
type Controller struct {
	sessions SessionSource
	logger   zerolog.Logger
}

func NewController(sessions SessionSource, logger zerolog.Logger) *Controller {
	return &Controller{
		sessions: sessions,
		logger:   logger.With().Str("component", "translation").Logger(),
	}
}

type batchStream interface {
	Next() ([]ollama.GenerationResponse, error)
}

type relayStats struct {
	batches   int
	fragments int
	stopped   bool
}

// Translate streams the translation of req.Input into req.Sink.
//
// The sink sees zero or more response chunks followed by exactly one
// end-of-stream chunk, unless the sink itself fails. stop is polled after
// each batch is forwarded, so a batch being read always completes first.
// A stopped call returns nil just like a finished one. ctx aborts the
// peer request outright and surfaces as a peer error.
//
// Errors: connection.ErrNoConnection, *connection.PeerError, *DeliveryError.
func (c *Controller) Translate(ctx context.Context, req Request, stop *StopSignal) error {
	if c == nil || c.sessions == nil {
		return fmt.Errorf("translation controller is not initialized")
	}
	if req.Sink == nil {
		return fmt.Errorf("chunk sink is required")
	}

	session, ok := c.sessions.Current()
	if !ok {
		return finish(req.Sink, connection.ErrNoConnection)
	}

	logger := c.logger.With().
		Str("model", req.Model).
		Str("address", session.Address()).
		Logger()
	started := globaltime.Now()

	stream, err := session.Client().GenerateStream(ctx, ollama.GenerationRequest{
		Model:  req.Model,
		Prompt: BuildPrompt(req.Input, req.InputFormat, req.OutputFormat),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("open generation stream failed")
		return finish(req.Sink, &connection.PeerError{Op: "generate", Err: err})
	}
	defer stream.Close()

	logger.Debug().Str("input_format", ResolveInputFormat(req.InputFormat)).Msg("translation started")

	stats, err := relay(stream, req.Sink, stop)
	event := logger.Info()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	event.
		Int("batches", stats.batches).
		Int("fragments", stats.fragments).
		Bool("stopped", stats.stopped).
		Dur("elapsed", globaltime.Since(started)).
		Msg("translation finished")

	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return err
	}
	return finish(req.Sink, err)
}

func relay(stream batchStream, sink Sink, stop *StopSignal) (relayStats, error) {
	stats := relayStats{}
	if stop.Stopped() {
		stats.stopped = true
		return stats, nil
	}

	for {
		batch, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, &connection.PeerError{Op: "generate", Err: err}
		}
		stats.batches++

		for _, fragment := range batch {
			if err := sink.Send(responseChunk(fragment)); err != nil {
				return stats, &DeliveryError{Err: err}
			}
			stats.fragments++
		}

		if stop.Stopped() {
			stats.stopped = true
			return stats, nil
		}
	}
}

// finish sends the end-of-stream marker and returns cause, joined with a
// delivery failure if the marker could not be sent.
func finish(sink Sink, cause error) error {
	if err := sink.Send(endOfStreamChunk()); err != nil {
		return errors.Join(cause, &DeliveryError{Err: err})
	}
	return cause
}
