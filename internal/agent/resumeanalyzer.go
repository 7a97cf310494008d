package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/jobpilot/internal/intent"
	"github.com/kalambet/jobpilot/internal/resume"
)

// ResumeProvider turns raw resume text into structured insights.
type ResumeProvider interface {
	Analyze(ctx context.Context, rawText string) (*resume.Insights, error)
}

// ResumeView is the resume analysis payload. Insights is passed through
// unchanged for callers that render it themselves.
type ResumeView struct {
	Focus    string           `json:"focus,omitempty"`
	Insights *resume.Insights `json:"insights"`
}

// ResumeAnalyzer answers questions about the session's analysed resume. The
// provider runs once per upload through Analyze; chat turns only read the
// stored insights.
type ResumeAnalyzer struct {
	provider ResumeProvider
}

func NewResumeAnalyzer(provider ResumeProvider) *ResumeAnalyzer {
	return &ResumeAnalyzer{provider: provider}
}

func (h *ResumeAnalyzer) Name() string { return NameResumeAnalyzer }

func (h *ResumeAnalyzer) Handle(_ context.Context, req Request) (any, error) {
	if req.Resume == nil {
		return nil, fmt.Errorf("%w: no resume has been analysed for this session", ErrInvalidParameters)
	}
	return &ResumeView{Focus: req.Params[intent.ParamFocus], Insights: req.Resume.Clone()}, nil
}

// Analyze runs the resume provider on raw text and finalizes the result.
func (h *ResumeAnalyzer) Analyze(ctx context.Context, rawText string) (*resume.Insights, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("%w: resume text is empty", ErrInvalidParameters)
	}
	if h.provider == nil {
		return nil, fmt.Errorf("%w: no resume provider configured", ErrServiceUnavailable)
	}
	in, err := h.provider.Analyze(ctx, rawText)
	if err != nil {
		return nil, providerError("resume analysis provider", err)
	}
	return in, nil
}
