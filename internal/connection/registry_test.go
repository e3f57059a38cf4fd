package connection

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/morph/internal/globaltime"
)

func TestConnect_CurrentReturnsExactAddress(t *testing.T) {
	t.Parallel()

	addresses := []string{
		"http://localhost:11434",
		"https://ollama.internal:8443/proxy",
		"http://127.0.0.1:11434/",
	}
	for _, address := range addresses {
		registry := NewRegistry(zerolog.Nop(), nil)
		if err := registry.Connect(address); err != nil {
			t.Fatalf("connect %q: %v", address, err)
		}
		session, ok := registry.Current()
		if !ok {
			t.Fatalf("expected a session after connecting to %q", address)
		}
		if session.Address() != address {
			t.Fatalf("unexpected address: got %q want %q", session.Address(), address)
		}
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(zerolog.Nop(), nil)
	for _, address := range []string{"", "   ", "localhost:11434", "ftp://host", "http://", "http://[::1", "not a url"} {
		err := registry.Connect(address)
		if !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("connect %q: expected ErrInvalidURL, got %v", address, err)
		}
		var invalid *InvalidURLError
		if !errors.As(err, &invalid) || invalid.Address != address {
			t.Fatalf("connect %q: expected InvalidURLError carrying the address, got %v", address, err)
		}
	}
	if _, ok := registry.Current(); ok {
		t.Fatalf("failed connects must not bind a session")
	}
}

func TestConnect_FailureKeepsPreviousSession(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(zerolog.Nop(), nil)
	if err := registry.Connect("http://localhost:11434"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := registry.Connect("::bad::"); err == nil {
		t.Fatalf("expected connect to fail")
	}
	session, ok := registry.Current()
	if !ok || session.Address() != "http://localhost:11434" {
		t.Fatalf("expected previous session to survive a failed connect")
	}
}

func TestConnect_ReplacesSessionButSnapshotsSurvive(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(zerolog.Nop(), nil)
	if err := registry.Connect("http://first:11434"); err != nil {
		t.Fatalf("connect first: %v", err)
	}
	snapshot, _ := registry.Current()

	if err := registry.Connect("http://second:11434"); err != nil {
		t.Fatalf("connect second: %v", err)
	}
	current, _ := registry.Current()

	if snapshot.Address() != "http://first:11434" {
		t.Fatalf("snapshot changed under reconnect: %q", snapshot.Address())
	}
	if current.Address() != "http://second:11434" {
		t.Fatalf("unexpected current address: %q", current.Address())
	}
	if snapshot == current {
		t.Fatalf("expected reconnect to create a new session")
	}
}

func TestConnect_StampsConnectedAt(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	globaltime.SetMockTime(fixed)
	t.Cleanup(globaltime.ResetTime)

	registry := NewRegistry(zerolog.Nop(), nil)
	if err := registry.Connect("http://localhost:11434"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	session, _ := registry.Current()
	if !session.ConnectedAt().Equal(fixed) {
		t.Fatalf("unexpected connected_at: %s", session.ConnectedAt())
	}
}

func TestDisconnect_ClearsAndIsIdempotent(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(zerolog.Nop(), nil)
	registry.Disconnect()

	if err := registry.Connect("http://localhost:11434"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	registry.Disconnect()
	registry.Disconnect()

	if _, ok := registry.Current(); ok {
		t.Fatalf("expected no session after disconnect")
	}
	if _, err := registry.ListModels(context.Background()); !errors.Is(err, ErrNoConnection) {
		t.Fatalf("expected ErrNoConnection, got %v", err)
	}
}

func TestListModels_DelegatesToPeer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"models":[{"name":"llama3"},{"name":"mistral"}]}`)
	}))
	defer srv.Close()

	registry := NewRegistry(zerolog.Nop(), srv.Client())
	if err := registry.Connect(srv.URL); err != nil {
		t.Fatalf("connect: %v", err)
	}

	models, err := registry.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama3" || models[1].Name != "mistral" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestListModels_WrapsPeerFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	registry := NewRegistry(zerolog.Nop(), srv.Client())
	if err := registry.Connect(srv.URL); err != nil {
		t.Fatalf("connect: %v", err)
	}

	_, err := registry.ListModels(context.Background())
	var peerErr *PeerError
	if !errors.As(err, &peerErr) {
		t.Fatalf("expected PeerError, got %v", err)
	}
	if _, ok := registry.Current(); !ok {
		t.Fatalf("a peer failure must not tear down the session")
	}
}

func TestRegistry_ConcurrentReadersAndWriters(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(zerolog.Nop(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if session, ok := registry.Current(); ok && session.Address() == "" {
					t.Errorf("observed a session without an address")
					return
				}
			}
		}()
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if (n+j)%3 == 0 {
					registry.Disconnect()
					continue
				}
				if err := registry.Connect("http://localhost:11434"); err != nil {
					t.Errorf("connect: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
