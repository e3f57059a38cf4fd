package httpapi

import (
	"errors"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"horse.fit/morph/internal/connection"
	"horse.fit/morph/internal/ollama"
	"horse.fit/morph/internal/payloadschema"
)

type connectionState struct {
	Connected   bool       `json:"connected"`
	Address     string     `json:"address,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

type modelItem struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

func (s *Server) currentConnection() connectionState {
	session, ok := s.registry.Current()
	if !ok {
		return connectionState{}
	}
	connectedAt := session.ConnectedAt()
	return connectionState{
		Connected:   true,
		Address:     session.Address(),
		ConnectedAt: &connectedAt,
	}
}

func (s *Server) handleGetConnection(c echo.Context) error {
	return success(c, s.currentConnection())
}

func (s *Server) handleConnect(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not be read"})
	}

	req, err := payloadschema.ValidateConnectRequest(body)
	if err != nil {
		var verr *payloadschema.ValidationError
		if errors.As(err, &verr) {
			return failValidation(c, verr.Fields)
		}
		s.logger.Error().Err(err).Msg("validate connect request failed")
		return internalError(c, "Failed to validate request")
	}

	if err := s.registry.Connect(req.Address); err != nil {
		if errors.Is(err, connection.ErrInvalidURL) {
			return failValidation(c, map[string]string{"address": err.Error()})
		}
		s.logger.Error().Err(err).Msg("connect failed")
		return internalError(c, "Failed to connect")
	}

	return success(c, s.currentConnection())
}

func (s *Server) handleDisconnect(c echo.Context) error {
	s.registry.Disconnect()
	return success(c, connectionState{})
}

func (s *Server) handleModels(c echo.Context) error {
	models, err := s.registry.ListModels(c.Request().Context())
	if err != nil {
		if errors.Is(err, connection.ErrNoConnection) {
			return failNoConnection(c)
		}
		s.logger.Warn().Err(err).Msg("list models failed")
		return upstreamError(c, peerMessage(err))
	}

	items := make([]modelItem, 0, len(models))
	for _, model := range models {
		items = append(items, modelItem{
			Name:       model.Name,
			ModifiedAt: model.ModifiedAt,
			Size:       model.Size,
		})
	}
	return success(c, map[string]any{
		"items": items,
	})
}

// peerMessage keeps the peer's own error text when it sent one.
func peerMessage(err error) string {
	var statusErr *ollama.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return "Ollama: " + statusErr.Message
	}
	return "Failed to reach the Ollama server"
}
