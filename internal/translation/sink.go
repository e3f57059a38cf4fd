package translation

import (
	"errors"
	"fmt"
)

// ErrSinkClosed is returned by ChannelSink once its receiver has gone away.
var ErrSinkClosed = errors.New("chunk sink is closed")

// Sink receives the chunks of one translate call, in order.
type Sink interface {
	Send(chunk Chunk) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(chunk Chunk) error

func (f SinkFunc) Send(chunk Chunk) error {
	return f(chunk)
}

// ChannelSink delivers chunks on a channel until done is closed.
type ChannelSink struct {
	ch   chan<- Chunk
	done <-chan struct{}
}

func NewChannelSink(ch chan<- Chunk, done <-chan struct{}) *ChannelSink {
	return &ChannelSink{ch: ch, done: done}
}

func (s *ChannelSink) Send(chunk Chunk) error {
	select {
	case <-s.done:
		return ErrSinkClosed
	default:
	}

	select {
	case s.ch <- chunk:
		return nil
	case <-s.done:
		return ErrSinkClosed
	}
}

// DeliveryError means the sink rejected a chunk.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver chunk: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
