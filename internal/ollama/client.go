package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	tagsPath     = "/api/tags"
	generatePath = "/api/generate"
)

// StatusError reports a non-2xx answer from the peer.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ollama status %d", e.StatusCode)
	}
	return fmt.Sprintf("ollama status %d: %s", e.StatusCode, e.Message)
}

// Client talks to one Ollama peer. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	client  *http.Client
}

// NewClient builds a client for base. A nil httpClient uses a client with
// no overall timeout, so long generations are never cut off.
func NewClient(base *url.URL, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	copied := *base
	copied.Path = strings.TrimRight(copied.Path, "/")
	return &Client{
		baseURL: &copied,
		client:  httpClient,
	}
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = u.Path + path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// ListLocalModels returns the models installed on the peer.
func (c *Client) ListLocalModels(ctx context.Context) ([]LocalModel, error) {
	if c == nil {
		return nil, fmt.Errorf("ollama client is nil")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(tagsPath), nil)
	if err != nil {
		return nil, fmt.Errorf("build list models request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send list models request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read list models response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, respBody)
	}

	var parsed listModelsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode list models response: %w", err)
	}
	if parsed.Models == nil {
		parsed.Models = []LocalModel{}
	}
	return parsed.Models, nil
}

// GenerateStream opens a streamed generate call. The caller must Close the
// returned stream. Cancelling ctx aborts any read in progress.
func (c *Client) GenerateStream(ctx context.Context, req GenerationRequest) (*GenerationStream, error) {
	if c == nil {
		return nil, fmt.Errorf("ollama client is nil")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(generatePath), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send generate request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, statusError(resp.StatusCode, respBody)
	}

	return newGenerationStream(resp.Body), nil
}

func statusError(code int, body []byte) error {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return &StatusError{StatusCode: code, Message: msg}
		}
	}
	return &StatusError{StatusCode: code, Message: strings.TrimSpace(string(body))}
}
