package httpapi

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/morph/internal/connection"
	"horse.fit/morph/internal/payloadschema"
	"horse.fit/morph/internal/translation"
)

const headerTranslationID = "X-Translation-Id"

type translationStarted struct {
	TranslationID    string `json:"translation_id"`
	Model            string `json:"model"`
	InputFormat      string `json:"input_format"`
	DetectedLanguage string `json:"detected_language,omitempty"`
}

type translationFailed struct {
	Message string `json:"message"`
}

func (s *Server) handleTranslate(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not be read"})
	}

	req, err := payloadschema.ValidateTranslateRequest(body)
	if err != nil {
		var verr *payloadschema.ValidationError
		if errors.As(err, &verr) {
			return failValidation(c, verr.Fields)
		}
		s.logger.Error().Err(err).Msg("validate translate request failed")
		return internalError(c, "Failed to validate request")
	}

	if _, ok := s.registry.Current(); !ok {
		return failNoConnection(c)
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.opts.DefaultModel
	}
	inputFormat := translation.ResolveInputFormat(req.InputFormat)

	id, stop, release := s.tracker.Begin(model)
	defer release()

	started := translationStarted{
		TranslationID: id,
		Model:         model,
		InputFormat:   inputFormat,
	}
	if inputFormat == translation.AutoFormat && s.opts.DetectLanguage && s.detect != nil {
		started.DetectedLanguage = s.detect(req.Input)
	}

	c.Response().Header().Set(headerTranslationID, id)
	stream := openEventStream(c.Response())
	logger := s.logger.With().Str("translation_id", id).Logger()

	if err := stream.send("start", started); err != nil {
		logger.Debug().Err(err).Msg("client left before translation started")
		return nil
	}

	err = s.translator.Translate(c.Request().Context(), translation.Request{
		Input:        req.Input,
		InputFormat:  inputFormat,
		OutputFormat: req.OutputFormat,
		Model:        model,
		Sink: translation.SinkFunc(func(chunk translation.Chunk) error {
			return stream.send("chunk", chunk)
		}),
	}, stop)
	if err == nil {
		return nil
	}

	var deliveryErr *translation.DeliveryError
	if errors.As(err, &deliveryErr) {
		logger.Debug().Err(err).Msg("client left during translation")
		return nil
	}

	logger.Warn().Err(err).Msg("translation failed")
	if sendErr := stream.send("error", translationFailed{Message: failureMessage(err)}); sendErr != nil {
		logger.Debug().Err(sendErr).Msg("could not report translation failure")
	}
	return nil
}

func failureMessage(err error) string {
	if errors.Is(err, connection.ErrNoConnection) {
		return "Not connected to an Ollama server"
	}
	return peerMessage(err)
}

func (s *Server) handleStopTranslation(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return failValidation(c, map[string]string{"id": "is required"})
	}
	if !s.tracker.Stop(id) {
		return failNotFound(c, "Translation not found")
	}
	return success(c, map[string]any{
		"translation_id": id,
		"stopping":       true,
	})
}

func (s *Server) handleStopAll(c echo.Context) error {
	return success(c, map[string]any{
		"stopped": s.tracker.StopAll(),
	})
}

func (s *Server) handleActiveTranslations(c echo.Context) error {
	return success(c, map[string]any{
		"items": s.tracker.Active(),
	})
}
