package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidOutput is returned when a reply does not match the requested
// schema after every attempt.
var ErrInvalidOutput = errors.New("model output does not match schema")

// structuredAttempts bounds how often ChatJSON asks the model again after
// a reply fails validation.
const structuredAttempts = 2

// ChatJSON asks e for a reply matching schema, validates it locally and
// decodes it into out. On a validation failure the model is asked once more
// with the validation errors appended to the conversation.
func ChatJSON(ctx context.Context, e Engine, messages []Message, schema *Schema, out any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)

	msgs := append([]Message(nil), messages...)
	var lastErr error
	for attempt := 0; attempt < structuredAttempts; attempt++ {
		raw, err := e.Chat(ctx, msgs, schema)
		if err != nil {
			return err
		}
		raw = stripFences(raw)

		problems, err := validateJSON(schemaLoader, raw)
		if err != nil {
			return fmt.Errorf("loading schema: %w", err)
		}
		if len(problems) == 0 {
			if err := json.Unmarshal([]byte(raw), out); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
			}
			return nil
		}

		lastErr = fmt.Errorf("%w: %s", ErrInvalidOutput, strings.Join(problems, "; "))
		slog.Debug("structured reply failed validation", "engine", e.Name(), "attempt", attempt+1, "problems", problems)
		msgs = append(msgs,
			Message{Role: "assistant", Content: raw},
			User("That reply was invalid: "+strings.Join(problems, "; ")+". Reply again with only the corrected JSON object."),
		)
	}
	return lastErr
}

// validateJSON returns one message per schema violation. Malformed JSON is
// reported as a violation rather than an error.
func validateJSON(schemaLoader gojsonschema.JSONLoader, raw string) ([]string, error) {
	if !json.Valid([]byte(raw)) {
		return []string{"(root): reply is not valid JSON"}, nil
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, field+": "+desc.Description())
	}
	return problems, nil
}

// stripFences removes a surrounding markdown code fence, which some models
// add even when asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
