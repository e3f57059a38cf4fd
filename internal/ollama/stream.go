package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var errStreamClosed = errors.New("generation stream is closed")

// StreamError is an error line sent by the peer in the middle of a stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "ollama stream error: " + e.Message
}

// GenerationStream yields the fragments of one generate call in batches.
// A batch is one line read from the wire plus every further complete line
// that had already arrived with it. The stream is consumed once; Next
// returns io.EOF after the last batch.
type GenerationStream struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	pending error
	closed  bool
}

func newGenerationStream(body io.ReadCloser) *GenerationStream {
	return &GenerationStream{
		body:   body,
		reader: bufio.NewReaderSize(body, 64<<10),
	}
}

type streamLine struct {
	GenerationResponse
	Error string `json:"error"`
}

// Next blocks until at least one fragment is available and returns it
// together with any fragments already buffered behind it.
func (s *GenerationStream) Next() ([]GenerationResponse, error) {
	if s.closed {
		return nil, errStreamClosed
	}
	if s.pending != nil {
		return nil, s.pending
	}

	first, err := s.readFragment()
	if err != nil {
		s.pending = err
		return nil, err
	}

	batch := []GenerationResponse{first}
	for s.lineBuffered() {
		next, err := s.readFragment()
		if err != nil {
			// Hand out what arrived intact; the error surfaces next call.
			s.pending = err
			break
		}
		batch = append(batch, next)
	}
	return batch, nil
}

// Close releases the response body. Unread fragments are discarded.
func (s *GenerationStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

func (s *GenerationStream) readFragment() (GenerationResponse, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if err != nil && !errors.Is(err, io.EOF) {
			return GenerationResponse{}, fmt.Errorf("read generate stream: %w", err)
		}
		if len(trimmed) == 0 {
			if err != nil {
				return GenerationResponse{}, err
			}
			continue
		}

		var parsed streamLine
		if decodeErr := json.Unmarshal(trimmed, &parsed); decodeErr != nil {
			return GenerationResponse{}, fmt.Errorf("decode generate fragment: %w", decodeErr)
		}
		if parsed.Error != "" {
			return GenerationResponse{}, &StreamError{Message: parsed.Error}
		}
		// An unterminated final line still counts; EOF comes back next read.
		return parsed.GenerationResponse, nil
	}
}

func (s *GenerationStream) lineBuffered() bool {
	n := s.reader.Buffered()
	if n == 0 {
		return false
	}
	buffered, err := s.reader.Peek(n)
	if err != nil {
		return false
	}
	for {
		idx := bytes.IndexByte(buffered, '\n')
		if idx < 0 {
			return false
		}
		if len(bytes.TrimSpace(buffered[:idx])) > 0 {
			return true
		}
		buffered = buffered[idx+1:]
	}
}
