// Package connection holds the single active session to the inference peer.
package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/morph/internal/globaltime"
	"horse.fit/morph/internal/ollama"
)

var (
	// ErrInvalidURL is matched by every connect address rejection.
	ErrInvalidURL = errors.New("invalid url")
	// ErrNoConnection is returned by operations that need a session.
	ErrNoConnection = errors.New("no connection")
)

// InvalidURLError reports why a connect address was rejected.
type InvalidURLError struct {
	Address string
	Err     error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid url %q: %v", e.Address, e.Err)
}

func (e *InvalidURLError) Unwrap() error {
	return e.Err
}

func (e *InvalidURLError) Is(target error) bool {
	return target == ErrInvalidURL
}

// PeerError wraps any failure originating from the inference peer.
type PeerError struct {
	Op  string
	Err error
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("ollama %s: %v", e.Op, e.Err)
}

func (e *PeerError) Unwrap() error {
	return e.Err
}

// Session is one bound peer address. It never changes after Connect
// creates it, so callers may keep using a snapshot after a reconnect.
type Session struct {
	address     *url.URL
	client      *ollama.Client
	connectedAt time.Time
}

// Address returns the peer base URL as given to Connect.
func (s *Session) Address() string {
	return s.address.String()
}

// ConnectedAt reports when the session was created.
func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// Client returns the peer client bound to this session.
func (s *Session) Client() *ollama.Client {
	return s.client
}

// Registry owns the optional current session.
type Registry struct {
	mu         sync.RWMutex
	session    *Session
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewRegistry builds an empty registry. A nil httpClient gets a client
// without an overall timeout.
func NewRegistry(logger zerolog.Logger, httpClient *http.Client) *Registry {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Registry{
		httpClient: httpClient,
		logger:     logger.With().Str("component", "connection").Logger(),
	}
}

// Connect replaces the current session with one bound to address.
// Calls already holding the previous session keep using it.
func (r *Registry) Connect(address string) error {
	parsed, err := parseAddress(address)
	if err != nil {
		return err
	}

	session := &Session{
		address:     parsed,
		client:      ollama.NewClient(parsed, r.httpClient),
		connectedAt: globaltime.UTC(),
	}

	r.mu.Lock()
	previous := r.session
	r.session = session
	r.mu.Unlock()

	event := r.logger.Info().Str("address", session.Address())
	if previous != nil {
		event = event.Str("previous_address", previous.Address())
	}
	event.Msg("connected")
	return nil
}

// Disconnect clears the current session. It is a no-op when none is set.
func (r *Registry) Disconnect() {
	r.mu.Lock()
	previous := r.session
	r.session = nil
	r.mu.Unlock()

	if previous != nil {
		r.logger.Info().Str("address", previous.Address()).Msg("disconnected")
	}
}

// Current returns a snapshot of the session, if any.
func (r *Registry) Current() (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session, r.session != nil
}

// ListModels lists the models installed on the connected peer.
func (r *Registry) ListModels(ctx context.Context) ([]ollama.LocalModel, error) {
	session, ok := r.Current()
	if !ok {
		return nil, ErrNoConnection
	}

	models, err := session.Client().ListLocalModels(ctx)
	if err != nil {
		return nil, &PeerError{Op: "list models", Err: err}
	}
	return models, nil
}

func parseAddress(raw string) (*url.URL, error) {
	address := strings.TrimSpace(raw)
	if address == "" {
		return nil, &InvalidURLError{Address: raw, Err: errors.New("address is empty")}
	}

	parsed, err := url.Parse(address)
	if err != nil {
		return nil, &InvalidURLError{Address: raw, Err: err}
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	case "":
		return nil, &InvalidURLError{Address: raw, Err: errors.New("scheme is required")}
	default:
		return nil, &InvalidURLError{Address: raw, Err: fmt.Errorf("unsupported scheme %q", parsed.Scheme)}
	}
	if parsed.Host == "" || parsed.Hostname() == "" {
		return nil, &InvalidURLError{Address: raw, Err: errors.New("host is required")}
	}
	return parsed, nil
}
