package engine

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady checks that e is reachable. For Ollama it also pulls the
// configured model when missing and warms it up so the first resume
// analysis does not pay the cold-load penalty. Progress is written to w.
func EnsureReady(ctx context.Context, e Engine, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("%s is not reachable; check the llm settings", e.Name())
	}

	o, ok := e.(*OllamaEngine)
	if !ok {
		fmt.Fprintf(w, "engine %s: ready\n", e.Name())
		return nil
	}

	has, err := o.HasModel(ctx)
	if err != nil {
		return fmt.Errorf("checking model %s: %w", o.Model(), err)
	}
	if !has {
		fmt.Fprintf(w, "model %s: pulling...\n", o.Model())
		err := o.Pull(ctx, func(p PullProgress) {
			if p.Total > 0 {
				pct := float64(p.Completed) / float64(p.Total) * 100
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", o.Model(), err)
		}
	}
	fmt.Fprintf(w, "model %s: ready\n", o.Model())

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := o.Chat(warmCtx, []Message{User("ping")}, nil); err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", o.Model(), err)
	}
	return nil
}
