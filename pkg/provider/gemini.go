package provider

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiAdapter implements Adapter for the Google Gemini API. The genai
// client is constructed per call because the API key changes between
// attempts as the pool rotates.
type GeminiAdapter struct{}

// NewGeminiAdapter creates a new Gemini adapter.
func NewGeminiAdapter() *GeminiAdapter {
	return &GeminiAdapter{}
}

// Name returns the adapter name.
func (a *GeminiAdapter) Name() string {
	return "gemini"
}

// Send makes a single generate-content exchange with the given key.
func (a *GeminiAdapter) Send(ctx context.Context, request Request, apiKey string) (*Response, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, WrapCallError(KindAPIFailure, err, "failed to create Gemini client")
	}

	config := &genai.GenerateContentConfig{}
	if request.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.System}},
		}
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if request.Temperature > 0 {
		temp := float32(request.Temperature)
		config.Temperature = &temp
	}

	if request.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = convertSchemaToGemini(request.Schema)
	} else {
		config.ResponseMIMEType = "text/plain"
	}

	contents := buildGeminiContents(request)

	result, err := client.Models.GenerateContent(ctx, request.Model, contents, config)
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, NewCallError(KindEmpty, "provider returned no candidate content")
	}

	text := result.Text()
	if text == "" {
		return nil, NewCallError(KindEmpty, "provider returned an empty candidate")
	}

	response := &Response{Text: text}
	if result.UsageMetadata != nil {
		response.Usage = &TokenUsage{
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
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

// buildGeminiContents assembles prior turns plus the current prompt.
// Gemini uses "model" for the assistant role, which matches the transcript
// role names directly.
func buildGeminiContents(request Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(request.Prior)+1)
	for _, msg := range request.Prior {
		role := msg.Role
		if role != "user" && role != "model" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Text}},
		})
	}

	contents = append(contents, &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: request.Prompt}},
	})

	return contents
}

func convertSchemaToGemini(schema *Schema) *genai.Schema {
	properties := make(map[string]*genai.Schema, len(schema.Properties))
	for name, prop := range schema.Properties {
		properties[name] = convertPropertyToGemini(prop)
	}

	return &genai.Schema{
		Type:       genai.TypeObject,
		Required:   schema.Required,
		Properties: properties,
	}
}

func convertPropertyToGemini(prop Property) *genai.Schema {
	out := &genai.Schema{Description: prop.Description}

	switch prop.Type {
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		if prop.Items != nil {
			out.Items = convertPropertyToGemini(*prop.Items)
		}
	default:
		out.Type = genai.TypeString
	}

	return out
}

// classifyGeminiError maps genai API errors onto the taxonomy by HTTP
// status. Errors that are not genai.APIError fall back to the keyword
// classifier.
func classifyGeminiError(err error) *CallError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		kind := classifyStatus(apiErr.Code)
		if kind == KindUnknown {
			kind = KindAPIFailure
		}
		return WrapCallError(kind, err, fmt.Sprintf("gemini API error %d (%s)", apiErr.Code, apiErr.Status))
	}

	return WrapCallError(FallbackKind(err), err, "gemini call failed")
}
