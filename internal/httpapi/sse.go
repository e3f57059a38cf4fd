package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// eventStream writes server-sent events to a committed response.
type eventStream struct {
	mu  sync.Mutex
	res *echo.Response
}

func openEventStream(res *echo.Response) *eventStream {
	header := res.Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(res.Writer).SetWriteDeadline(time.Time{})

	stream := &eventStream{res: res}
	res.Flush()
	return stream
}

func (s *eventStream) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}
	s.res.Flush()
	return nil
}
