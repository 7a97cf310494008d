package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/jobpilot/internal/intent"
)

// Researcher summarizes public information about a query. It returns an
// error wrapping ErrNotFound when nothing relevant exists.
type Researcher interface {
	Research(ctx context.Context, query string) (string, error)
}

// Research is the web research payload.
type Research struct {
	Topic   string `json:"topic"`
	Summary string `json:"summary"`
}

// WebResearcher looks up the message topic with a Researcher.
type WebResearcher struct {
	researcher Researcher
}

func NewWebResearcher(r Researcher) *WebResearcher {
	return &WebResearcher{researcher: r}
}

func (h *WebResearcher) Name() string { return NameWebResearcher }

func (h *WebResearcher) Handle(ctx context.Context, req Request) (any, error) {
	topic := strings.TrimSpace(req.Params[intent.ParamTopic])
	if topic == "" {
		topic = strings.TrimSpace(req.Query)
	}
	topic = strings.TrimRight(topic, "?!. ")
	if topic == "" {
		return nil, fmt.Errorf("%w: nothing to research", ErrInvalidParameters)
	}

	summary, err := h.researcher.Research(ctx, topic)
	if err != nil {
		return nil, providerError("research provider", err)
	}
	if strings.TrimSpace(summary) == "" {
		return nil, fmt.Errorf("%w: no information about %q", ErrNotFound, topic)
	}
	return &Research{Topic: topic, Summary: strings.TrimSpace(summary)}, nil
}
