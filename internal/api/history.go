package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/jobpilot/internal/intent"
	"github.com/kalambet/jobpilot/internal/storage"
	"github.com/kalambet/jobpilot/internal/supervisor"
)

// HistoryStore persists routed turns. Implemented by storage.Store.
type HistoryStore interface {
	SaveInteraction(i storage.Interaction) error
	TouchSession(id string) error
}

// History records every routed chat turn as an interaction row.
type History struct {
	store HistoryStore
}

func NewHistory(store HistoryStore) *History {
	return &History{store: store}
}

// Record implements supervisor.Recorder.
func (h *History) Record(_ context.Context, sessionID, message string, in intent.Intent, env supervisor.Envelope) error {
	ix := storage.Interaction{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		CreatedAt:  time.Now().UTC(),
		Message:    message,
		Intent:     string(in.Kind),
		Confidence: in.Confidence,
		Agent:      env.Agent,
		Response:   env.Response,
		Error:      env.Error,
	}
	if err := h.store.SaveInteraction(ix); err != nil {
		return fmt.Errorf("saving interaction: %w", err)
	}
	if err := h.store.TouchSession(sessionID); err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}
