package provider

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicAdapter implements Adapter for Anthropic Claude.
type AnthropicAdapter struct{}

// NewAnthropicAdapter creates a new Anthropic adapter.
func NewAnthropicAdapter() *AnthropicAdapter {
	return &AnthropicAdapter{}
}

// Name returns the adapter name.
func (a *AnthropicAdapter) Name() string {
	return "anthropic"
}

// Send makes a single messages exchange with the given key.
func (a *AnthropicAdapter) Send(ctx context.Context, request Request, apiKey string) (*Response, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	messages := []anthropic.MessageParam{}
	for _, msg := range request.Prior {
		switch msg.Role {
		case "user":
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Text),
			))
		case "model":
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Text),
				},
			})
		}
	}
	messages = append(messages, anthropic.NewUserMessage(
		anthropic.NewTextBlock(request.Prompt),
	))

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if request.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.System},
		}
	}
	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(request.Temperature)
	}

	message, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	text := ""
	for _, block := range message.Content {
		if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += textBlock.Text
		}
	}

	if text == "" {
		return nil, NewCallError(KindEmpty, "provider returned no text content")
	}

	response := &Response{
		Text: text,
		Usage: &TokenUsage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
	}

	if request.Schema != nil {
		parsed, err := request.Schema.ValidatePayload(text)
		if err != nil {
			return nil, err
		}
		response.Parsed = parsed
	}

	return response, nil
}

func classifyAnthropicError(err error) *CallError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		kind := classifyStatus(apiErr.StatusCode)
		if kind == KindUnknown {
			kind = KindAPIFailure
		}
		return WrapCallError(kind, err, "anthropic API error")
	}

	return WrapCallError(FallbackKind(err), err, "anthropic call failed")
}
