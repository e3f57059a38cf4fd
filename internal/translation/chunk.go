package translation

import (
	"encoding/json"
	"fmt"

	"horse.fit/morph/internal/ollama"
)

// ChunkKind tags a Chunk.
type ChunkKind string

const (
	ChunkResponse    ChunkKind = "response"
	ChunkEndOfStream ChunkKind = "endOfStream"
)

// Chunk is one item delivered to a Sink: a generation fragment, or the
// terminal end-of-stream marker.
type Chunk struct {
	Kind     ChunkKind
	Response ollama.GenerationResponse
}

func responseChunk(resp ollama.GenerationResponse) Chunk {
	return Chunk{Kind: ChunkResponse, Response: resp}
}

func endOfStreamChunk() Chunk {
	return Chunk{Kind: ChunkEndOfStream}
}

// IsEndOfStream reports whether c is the terminal marker.
func (c Chunk) IsEndOfStream() bool {
	return c.Kind == ChunkEndOfStream
}

type taggedResponse struct {
	Tag ChunkKind `json:"tag"`
	ollama.GenerationResponse
}

type taggedEnd struct {
	Tag ChunkKind `json:"tag"`
}

// MarshalJSON flattens the fragment next to a "tag" field, e.g.
// {"tag":"response","model":"llama3","response":"Hel",...} or
// {"tag":"endOfStream"}.
func (c Chunk) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ChunkResponse:
		return json.Marshal(taggedResponse{Tag: c.Kind, GenerationResponse: c.Response})
	case ChunkEndOfStream:
		return json.Marshal(taggedEnd{Tag: c.Kind})
	default:
		return nil, fmt.Errorf("unknown chunk kind %q", c.Kind)
	}
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (c *Chunk) UnmarshalJSON(data []byte) error {
	var tagged taggedResponse
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	switch tagged.Tag {
	case ChunkResponse:
		*c = responseChunk(tagged.GenerationResponse)
	case ChunkEndOfStream:
		*c = endOfStreamChunk()
	default:
		return fmt.Errorf("unknown chunk tag %q", tagged.Tag)
	}
	return nil
}
