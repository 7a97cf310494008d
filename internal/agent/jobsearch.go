package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/jobpilot/internal/intent"
	"github.com/kalambet/jobpilot/internal/jobs"
)

const defaultTopN = 5

// JobMatches is the job search payload.
type JobMatches struct {
	Query    string       `json:"query"`
	Location string       `json:"location,omitempty"`
	Total    int          `json:"total"`
	Matches  []jobs.Match `json:"matches"`

	// FailedSources names job sources that could not be searched, so the
	// results may be incomplete.
	FailedSources []string `json:"failed_sources,omitempty"`
}

// JobSearch finds postings and ranks them against the resume's key skills.
type JobSearch struct {
	provider jobs.Provider
	topN     int
}

// NewJobSearch returns a handler keeping the topN best matches.
func NewJobSearch(provider jobs.Provider, topN int) *JobSearch {
	if topN <= 0 {
		topN = defaultTopN
	}
	return &JobSearch{provider: provider, topN: topN}
}

func (h *JobSearch) Name() string { return NameJobSearch }

func (h *JobSearch) Handle(ctx context.Context, req Request) (any, error) {
	query := searchQuery(req)
	if query == "" {
		return nil, fmt.Errorf("%w: empty job search query", ErrInvalidParameters)
	}

	skills := req.Resume.Skills()
	postings, err := h.provider.Search(ctx, query, skills)
	var partial *jobs.PartialError
	if errors.As(err, &partial) && len(postings) > 0 {
		err = nil
	}
	if err != nil {
		return nil, providerError("job search provider", err)
	}
	if len(postings) == 0 {
		return nil, fmt.Errorf("%w: no jobs matched %q", ErrNotFound, query)
	}

	ranked := jobs.Rank(postings, skills)
	top := ranked
	if len(top) > h.topN {
		top = top[:h.topN]
	}
	res := &JobMatches{
		Query:    query,
		Location: req.Params[intent.ParamLocation],
		Total:    len(ranked),
		Matches:  top,
	}
	if partial != nil {
		res.FailedSources = partial.Failed
	}
	return res, nil
}

// searchQuery prefers the extracted role and location over the raw text.
func searchQuery(req Request) string {
	var parts []string
	if role := req.Params[intent.ParamRole]; role != "" {
		parts = append(parts, role)
	}
	if loc := req.Params[intent.ParamLocation]; loc != "" {
		parts = append(parts, loc)
	}
	if len(parts) == 0 {
		return strings.TrimSpace(req.Query)
	}
	return strings.Join(parts, " ")
}
