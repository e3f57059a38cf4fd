package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed connect_request.schema.json
var connectRequestSchemaJSON string

//go:embed translate_request.schema.json
var translateRequestSchemaJSON string

// ConnectRequest is the body of a connect command.
type ConnectRequest struct {
	Address string `json:"address"`
}

// TranslateRequest is the body of a translate command. Model may be empty,
// in which case the caller's default applies.
type TranslateRequest struct {
	Input        string `json:"input"`
	InputFormat  string `json:"input_format"`
	OutputFormat string `json:"output_format"`
	Model        string `json:"model"`
}

// ValidationError lists problems per JSON pointer ("body" for the
// document itself).
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Fields[key])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type compiledSchema struct {
	name   string
	source *string
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

var (
	connectSchema   = &compiledSchema{name: "connect_request.schema.json", source: &connectRequestSchemaJSON}
	translateSchema = &compiledSchema{name: "translate_request.schema.json", source: &translateRequestSchemaJSON}
)

func ValidateConnectRequest(payload []byte) (*ConnectRequest, error) {
	var req ConnectRequest
	if err := validateInto(connectSchema, payload, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Address) == "" {
		return nil, &ValidationError{Fields: map[string]string{"address": "must not be empty"}}
	}
	return &req, nil
}

func ValidateTranslateRequest(payload []byte) (*TranslateRequest, error) {
	var req TranslateRequest
	if err := validateInto(translateSchema, payload, &req); err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Input) == "" {
		fields["input"] = "must not be empty"
	}
	if strings.TrimSpace(req.OutputFormat) == "" {
		fields["output_format"] = "must not be empty"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return &req, nil
}

func validateInto(cs *compiledSchema, payload []byte, out any) error {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return &ValidationError{Fields: map[string]string{"body": err.Error()}}
	}

	schema, err := cs.load()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fieldErrors(verr)
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("normalize payload JSON: %w", err)
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func (cs *compiledSchema) load() (*jsonschema.Schema, error) {
	cs.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource(cs.name, strings.NewReader(*cs.source)); err != nil {
			cs.err = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(cs.name)
		if err != nil {
			cs.err = fmt.Errorf("compile schema: %w", err)
			return
		}
		cs.schema = schema
	})

	if cs.err != nil {
		return nil, cs.err
	}
	if cs.schema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return cs.schema, nil
}

func fieldErrors(verr *jsonschema.ValidationError) *ValidationError {
	fields := map[string]string{}
	for _, item := range verr.BasicOutput().Errors {
		msg := strings.TrimSpace(item.Error)
		if msg == "" || strings.HasPrefix(msg, "doesn't validate with") {
			continue
		}
		key := strings.TrimPrefix(item.InstanceLocation, "/")
		if key == "" {
			key = "body"
		}
		if _, exists := fields[key]; !exists {
			fields[key] = msg
		}
	}
	if len(fields) == 0 {
		fields["body"] = verr.Error()
	}
	return &ValidationError{Fields: fields}
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
