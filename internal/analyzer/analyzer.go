// Package analyzer turns raw resume text into resume.Insights with an LLM.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/jobpilot/internal/engine"
	"github.com/kalambet/jobpilot/internal/logger"
	"github.com/kalambet/jobpilot/internal/resume"
)

const analysisTimeout = 2 * time.Minute

// Analyzer asks an engine for a structured resume assessment.
type Analyzer struct {
	engine engine.Engine
	now    func() time.Time
}

// New creates an Analyzer using e.
func New(e engine.Engine) *Analyzer {
	return &Analyzer{engine: e, now: time.Now}
}

// Analyze returns finalized insights for rawText. analysis_quality is
// derived from which sections came back populated, never taken from the
// model.
func (a *Analyzer) Analyze(ctx context.Context, rawText string) (*resume.Insights, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, fmt.Errorf("resume text is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	slog.Debug("analyzing resume", "engine", a.engine.Name(), "chars", len(rawText),
		"preview", logger.TruncateForLog(rawText, 120))

	var in resume.Insights
	if err := engine.ChatJSON(ctx, a.engine, BuildPrompt(rawText), insightsSchema(), &in); err != nil {
		return nil, fmt.Errorf("analyzing resume: %w", err)
	}
	in.Metadata = resume.Metadata{}
	if err := in.Finalize(a.now()); err != nil {
		return nil, err
	}

	slog.Info("resume analyzed", "quality", in.Metadata.AnalysisQuality,
		"recommendations", len(in.CareerRecommendations), "skills", len(in.CurrentProfile.KeySkills))
	return &in, nil
}
