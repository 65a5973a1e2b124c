package provider

import "fmt"

// NewAdapter creates an adapter by provider name.
func NewAdapter(name string) (Adapter, error) {
	switch name {
	case "gemini":
		return NewGeminiAdapter(), nil
	case "anthropic":
		return NewAnthropicAdapter(), nil
	case "openai":
		return NewOpenAIAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
