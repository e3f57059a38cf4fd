package ollama

import "time"

// LocalModel describes one model installed on the peer.
type LocalModel struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

// GenerationRequest describes one generate call.
type GenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

// GenerationResponse is one fragment of a streamed completion.
type GenerationResponse struct {
	// Model is the name of the model used for the completion.
	Model string `json:"model"`
	// CreatedAt is the creation time reported by the peer.
	CreatedAt string `json:"created_at"`
	// Response holds the generated text; a single token when streaming.
	Response string `json:"response"`
	// Done is false until the last fragment of a stream.
	Done bool `json:"done"`
	// Context encodes the conversation and may be sent back to keep memory.
	Context []int `json:"context,omitempty"`

	TotalDuration      *int64 `json:"total_duration,omitempty"`
	PromptEvalCount    *int64 `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration *int64 `json:"prompt_eval_duration,omitempty"`
	EvalCount          *int64 `json:"eval_count,omitempty"`
	EvalDuration       *int64 `json:"eval_duration,omitempty"`
}

type listModelsResponse struct {
	Models []LocalModel `json:"models"`
}

type errorResponse struct {
	Error string `json:"error"`
}
