package engine

import (
	"context"
	"errors"
)

// Engine abstracts a text generation backend (Ollama, Gemini or OpenRouter).
// The model is fixed when the engine is constructed.
type Engine interface {
	// Chat sends messages and returns the assistant's reply. When jsonSchema
	// is non-nil the backend is asked for a JSON object matching it.
	Chat(ctx context.Context, messages []Message, jsonSchema *Schema) (string, error)

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool

	// Name identifies the backend and model, e.g. "ollama/llama3.1:8b".
	Name() string
}

// ErrUnavailable marks failures where the backend could not be reached or
// answered with a server-side error. Callers may retry later.
var ErrUnavailable = errors.New("engine unavailable")

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema is a JSON Schema fragment describing structured output. It is
// serialized as-is for backends that accept a schema and can also be used to
// validate a reply locally.
type Schema struct {
	Type                 string            `json:"type,omitempty"`
	Description          string            `json:"description,omitempty"`
	Properties           map[string]Schema `json:"properties,omitempty"`
	Items                *Schema           `json:"items,omitempty"`
	Required             []string          `json:"required,omitempty"`
	Enum                 []string          `json:"enum,omitempty"`
	Minimum              *float64          `json:"minimum,omitempty"`
	Maximum              *float64          `json:"maximum,omitempty"`
	AdditionalProperties *bool             `json:"additionalProperties,omitempty"`
}

// System and User build chat messages.
func System(content string) Message { return Message{Role: "system", Content: content} }
func User(content string) Message   { return Message{Role: "user", Content: content} }
