// Google Gemini provider on google.golang.org/genai.
//
// Information Hiding:
// - Client creation errors deferred to the first call
// - System instruction carried in the request config
// - Function calls and responses paired by id, with synthesized ids when
//   the API omits them
// - JSON schema translated to genai.Schema

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider for Gemini models.
type GeminiProvider struct {
	client      *genai.Client
	initErr     error
	model       string
	maxTokens   int32
	temperature float32
}

// NewGeminiProvider creates a traced Gemini provider. A client that cannot
// be created is reported as a non-retryable error on every call.
func NewGeminiProvider(apiKey, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	p := &GeminiProvider{model: model, maxTokens: int32(maxTokens), temperature: temperature}
	p.client, p.initErr = genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: tracedHTTPClient(),
	})
	return p
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

// Chat sends a request without tools.
func (p *GeminiProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	return p.ChatWithTools(ctx, messages, nil)
}

// ChatWithTools sends a request offering tools.
func (p *GeminiProvider) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error) {
	if p.initErr != nil {
		return LLMResponse{}, &ModelUnavailableError{Provider: p.Name(), Err: fmt.Errorf("client init: %w", p.initErr)}
	}

	contents, system := geminiContents(messages)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(tools) > 0 {
		config.Tools = geminiTools(tools)
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		}
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return LLMResponse{}, unavailable(p.Name(), fmt.Errorf("generate content failed: %w", err), geminiStatus(err))
	}
	return geminiReply(response), nil
}

// geminiReply maps the first candidate. Function calls without an id keep
// an empty ID; the caller numbers them across the whole turn.
func geminiReply(response *genai.GenerateContentResponse) LLMResponse {
	var resp LLMResponse
	if len(response.Candidates) > 0 && response.Candidates[0].Content != nil {
		var text strings.Builder
		for _, part := range response.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
			if fc := part.FunctionCall; fc != nil {
				args, err := json.Marshal(fc.Args)
				if err != nil {
					args = nil
				}
				resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: fc.ID, Name: fc.Name, Arguments: args})
			}
		}
		resp.Content = text.String()
	}

	if u := response.UsageMetadata; u != nil {
		resp.Usage = &TokenUsage{
			PromptTokens:     uint32(u.PromptTokenCount),
			CompletionTokens: uint32(u.CandidatesTokenCount),
			TotalTokens:      uint32(u.TotalTokenCount),
		}
	}
	return resp
}

// geminiStatus extracts the HTTP status from SDK errors, 0 if unknown.
func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// geminiContents converts messages, returning the system instruction
// separately. Tool results are sent as function responses under "output",
// or "error" when the call failed.
func geminiContents(messages []ChatMessage) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = msg.Content
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal(call.Arguments, &args); err != nil {
					args = map[string]any{}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: args},
				})
			}
			contents = append(contents, content)
		case RoleTool:
			key := "output"
			if msg.IsError {
				key = "error"
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     msg.ToolName,
						Response: map[string]any{key: msg.Content},
					},
				}},
			})
		}
	}
	return contents, system
}

func geminiTools(tools []ToolDefinition) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  geminiSchema(t.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// geminiSchema translates a JSON schema map. Objects default when no type
// is given, and arrays always get an items schema since Gemini requires one.
func geminiSchema(m map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}
	if t, ok := m["type"].(string); ok {
		schema.Type = geminiType(t)
	}
	if d, ok := m["description"].(string); ok {
		schema.Description = d
	}

	switch schema.Type {
	case genai.TypeObject:
		schema.Required = requiredFields(m)
		if props, ok := m["properties"].(map[string]any); ok {
			schema.Properties = make(map[string]*genai.Schema, len(props))
			for name, prop := range props {
				if pm, ok := prop.(map[string]any); ok {
					schema.Properties[name] = geminiSchema(pm)
				}
			}
		}
	case genai.TypeArray:
		schema.Items = &genai.Schema{Type: genai.TypeString}
		if items, ok := m["items"].(map[string]any); ok {
			schema.Items = geminiSchema(items)
		}
	}
	return schema
}

func geminiType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

var _ Provider = (*GeminiProvider)(nil)
