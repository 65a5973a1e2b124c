package provider

import "context"

// Adapter is the boundary to one generative-AI backend. Send performs a
// single request/response exchange with the given API key. Failures are
// reported as *CallError so callers can tell credential problems from
// content problems.
type Adapter interface {
	Send(ctx context.Context, request Request, apiKey string) (*Response, error)

	// Name returns the adapter name ("gemini", "anthropic", "openai").
	Name() string
}

// Message is one prior conversation turn included in the request context.
// Context inclusion is caller policy; adapters send whatever they are given.
type Message struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// Request carries the outbound content for one exchange.
type Request struct {
	Model       string
	System      string
	Prior       []Message
	Prompt      string
	Schema      *Schema // output contract; nil means plain text
	Temperature float64
	MaxTokens   int
}

// Response is a successful exchange. Parsed is populated when the request
// carried an output schema and the payload validated against it.
type Response struct {
	Text   string
	Parsed map[string]interface{}
	Usage  *TokenUsage
}

// TokenUsage tracks token consumption for one exchange.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
