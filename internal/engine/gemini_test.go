package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	var ps []*genai.Part
	for _, p := range parts {
		ps = append(ps, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: ps}}},
	}
}

func TestGeminiEngine_Chat(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse("first", " ", "second")}
	g := &GeminiEngine{models: fake, model: "gemini-2.5-flash"}

	out, err := g.Chat(context.Background(), []Message{System("be brief"), User("hello")}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "first\nsecond" {
		t.Errorf("out = %q", out)
	}
	if fake.model != "gemini-2.5-flash" {
		t.Errorf("model = %q", fake.model)
	}
	if len(fake.contents) != 1 {
		t.Fatalf("contents = %d, want 1 (system moved to instruction)", len(fake.contents))
	}
	if fake.config.SystemInstruction == nil || fake.config.SystemInstruction.Parts[0].Text != "be brief" {
		t.Errorf("system instruction = %+v", fake.config.SystemInstruction)
	}
	if fake.config.ResponseMIMEType != "" {
		t.Errorf("mime = %q, want empty", fake.config.ResponseMIMEType)
	}
}

func TestGeminiEngine_SchemaSetsJSON(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse(`{"a":"b"}`)}
	g := &GeminiEngine{models: fake, model: "m"}

	if _, err := g.Chat(context.Background(), []Message{User("x")}, &Schema{Type: "object"}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if fake.config.ResponseMIMEType != "application/json" {
		t.Errorf("mime = %q", fake.config.ResponseMIMEType)
	}
	if !strings.Contains(fake.config.SystemInstruction.Parts[0].Text, `"type":"object"`) {
		t.Error("schema should be included in the system instruction")
	}
}

func TestGeminiEngine_EmptyResponse(t *testing.T) {
	g := &GeminiEngine{models: &fakeGenerator{resp: &genai.GenerateContentResponse{}}, model: "m"}
	if _, err := g.Chat(context.Background(), []Message{User("x")}, nil); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeminiEngine_ServerErrorIsUnavailable(t *testing.T) {
	fake := &fakeGenerator{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}}
	g := &GeminiEngine{models: fake, model: "m"}

	_, err := g.Chat(context.Background(), []Message{User("x")}, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestNewGeminiEngine_RequiresKey(t *testing.T) {
	if _, err := NewGeminiEngine(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), Options{Provider: "bogus"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	e, err := New(context.Background(), Options{Provider: ProviderOllama, OllamaBaseURL: "http://localhost:11434", OllamaModel: "llama3.1"})
	if err != nil {
		t.Fatalf("New(ollama): %v", err)
	}
	if e.Name() != "ollama/llama3.1" {
		t.Errorf("Name = %q", e.Name())
	}
}
