package provider

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter implements Adapter for OpenAI chat completions.
type OpenAIAdapter struct{}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter() *OpenAIAdapter {
	return &OpenAIAdapter{}
}

// Name returns the adapter name.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Send makes a single chat-completion exchange with the given key.
func (a *OpenAIAdapter) Send(ctx context.Context, request Request, apiKey string) (*Response, error) {
	client := openai.NewClient(option.WithAPIKey(apiKey))

	messages := []openai.ChatCompletionMessageParamUnion{}
	if request.System != "" {
		messages = append(messages, openai.SystemMessage(request.System))
	}
	for _, msg := range request.Prior {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Text))
		case "model":
			messages = append(messages, openai.AssistantMessage(msg.Text))
		}
	}
	messages = append(messages, openai.UserMessage(request.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(request.Model),
		Messages: messages,
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(completion.Choices) == 0 {
		return nil, NewCallError(KindEmpty, "provider returned no choices")
	}

	text := completion.Choices[0].Message.Content
	if text == "" {
		return nil, NewCallError(KindEmpty, "provider returned an empty choice")
	}

	response := &Response{
		Text: text,
		Usage: &TokenUsage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
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

func classifyOpenAIError(err error) *CallError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		kind := classifyStatus(apiErr.StatusCode)
		if kind == KindUnknown {
			kind = KindAPIFailure
		}
		return WrapCallError(kind, err, "openai API error")
	}

	return WrapCallError(FallbackKind(err), err, "openai call failed")
}
