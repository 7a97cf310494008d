package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	openRouterTimeout = 60 * time.Second
	maxRetries        = 3
	initialBackoff    = 500 * time.Millisecond
)

// OpenRouterEngine calls the OpenRouter chat completions API.
type OpenRouterEngine struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenRouterEngine creates an engine for model using apiKey.
func NewOpenRouterEngine(apiKey, model string) *OpenRouterEngine {
	return &OpenRouterEngine{
		apiKey:     apiKey,
		model:      model,
		baseURL:    openRouterBaseURL,
		httpClient: &http.Client{Timeout: openRouterTimeout},
	}
}

// NewOpenRouterEngineWithBaseURL points the engine at a custom base URL (for testing).
func NewOpenRouterEngineWithBaseURL(apiKey, model, baseURL string) *OpenRouterEngine {
	e := NewOpenRouterEngine(apiKey, model)
	e.baseURL = strings.TrimRight(baseURL, "/")
	return e
}

func (e *OpenRouterEngine) Name() string { return "openrouter/" + e.model }

// IsRunning reports whether an API key is configured.
func (e *OpenRouterEngine) IsRunning(context.Context) bool {
	return e.apiKey != ""
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends a non-streaming completion. Rate-limited requests (HTTP 429)
// are retried with exponential backoff before giving up as unavailable.
func (e *OpenRouterEngine) Chat(ctx context.Context, messages []Message, jsonSchema *Schema) (string, error) {
	cr := completionRequest{Model: e.model, Messages: messages}
	if jsonSchema != nil {
		raw, err := json.Marshal(jsonSchema)
		if err != nil {
			return "", fmt.Errorf("marshaling schema: %w", err)
		}
		cr.ResponseFormat = &responseFormat{Type: "json_object"}
		cr.Messages = append([]Message{System("Reply with one JSON object matching this JSON Schema:\n" + string(raw))}, messages...)
	}
	body, err := json.Marshal(cr)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range maxRetries {
		out, err := e.doChat(ctx, body)
		if err == nil {
			return out, nil
		}
		var rl *rateLimitError
		if !errors.As(err, &rl) {
			return "", err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return "", fmt.Errorf("%w: rate limited after %d retries: %v", ErrUnavailable, maxRetries, lastErr)
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func (e *OpenRouterEngine) doChat(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/kalambet/jobpilot")
	req.Header.Set("X-Title", "jobpilot")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: executing request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &rateLimitError{status: resp.StatusCode}
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: openrouter status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("openrouter error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("openrouter returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}
