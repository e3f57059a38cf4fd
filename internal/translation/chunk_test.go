package translation

import (
	"encoding/json"
	"testing"

	"horse.fit/morph/internal/ollama"
)

func TestChunkMarshalJSON_TagsResponseInline(t *testing.T) {
	t.Parallel()

	evalCount := int64(7)
	raw, err := json.Marshal(responseChunk(ollama.GenerationResponse{
		Model:     "llama3",
		CreatedAt: "2024-05-01T10:00:00Z",
		Response:  "Hel",
		Done:      true,
		EvalCount: &evalCount,
	}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["tag"] != "response" || decoded["response"] != "Hel" || decoded["model"] != "llama3" {
		t.Fatalf("unexpected json: %s", raw)
	}
	if decoded["done"] != true || decoded["eval_count"] != float64(7) {
		t.Fatalf("expected peer metadata inline: %s", raw)
	}
}

func TestChunkMarshalJSON_EndOfStreamHasOnlyTag(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(endOfStreamChunk())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"tag":"endOfStream"}` {
		t.Fatalf("unexpected json: %s", raw)
	}
}

func TestChunkUnmarshalJSON(t *testing.T) {
	t.Parallel()

	var chunk Chunk
	if err := json.Unmarshal([]byte(`{"tag":"response","response":"lo","done":false}`), &chunk); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if chunk.Kind != ChunkResponse || chunk.Response.Response != "lo" {
		t.Fatalf("unexpected chunk: %+v", chunk)
	}

	if err := json.Unmarshal([]byte(`{"tag":"endOfStream"}`), &chunk); err != nil {
		t.Fatalf("unmarshal end: %v", err)
	}
	if !chunk.IsEndOfStream() || chunk.Response.Response != "" {
		t.Fatalf("unexpected chunk: %+v", chunk)
	}

	if err := json.Unmarshal([]byte(`{"tag":"mystery"}`), &chunk); err == nil {
		t.Fatalf("expected unknown tags to be rejected")
	}
}

func TestChannelSink(t *testing.T) {
	t.Parallel()

	ch := make(chan Chunk, 1)
	done := make(chan struct{})
	sink := NewChannelSink(ch, done)

	if err := sink.Send(endOfStreamChunk()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := <-ch; !got.IsEndOfStream() {
		t.Fatalf("unexpected chunk: %+v", got)
	}

	close(done)
	if err := sink.Send(endOfStreamChunk()); err != ErrSinkClosed {
		t.Fatalf("expected ErrSinkClosed, got %v", err)
	}
}
