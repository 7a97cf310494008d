package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models used by GeminiEngine.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiEngine generates text with the Google Gemini API.
type GeminiEngine struct {
	models contentGenerator
	model  string
}

// NewGeminiEngine creates a Gemini-backed engine. An empty model selects the
// default flash model.
func NewGeminiEngine(ctx context.Context, apiKey, model string) (*GeminiEngine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	return &GeminiEngine{models: client.Models, model: model}, nil
}

func (g *GeminiEngine) Name() string { return "gemini/" + g.model }

// IsRunning reports whether a client was configured. The Gemini API has no
// cheap health endpoint, so reachability surfaces on the first Chat call.
func (g *GeminiEngine) IsRunning(context.Context) bool {
	return g != nil && g.models != nil
}

// Chat maps system messages to the system instruction and the rest to user
// and model turns. A schema switches the response MIME type to JSON and is
// appended to the system instruction.
func (g *GeminiEngine) Chat(ctx context.Context, messages []Message, jsonSchema *Schema) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini engine is not initialized")
	}

	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		switch m.Role {
		case "system":
			system = append(system, text)
		case "assistant":
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}})
		}
	}
	if len(contents) == 0 {
		return "", errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{}
	if jsonSchema != nil {
		raw, err := json.Marshal(jsonSchema)
		if err != nil {
			return "", fmt.Errorf("marshal response schema: %w", err)
		}
		cfg.ResponseMIMEType = "application/json"
		system = append(system, "Respond with a single JSON object matching this JSON Schema:\n"+string(raw))
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code >= http.StatusInternalServerError || apiErr.Code == http.StatusTooManyRequests) {
			return "", fmt.Errorf("%w: gemini: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}
