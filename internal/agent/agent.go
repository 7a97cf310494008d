// Package agent defines the capability handler contract and the four
// handlers the supervisor routes to.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/jobpilot/internal/resume"
)

// Handler names reported in the response envelope.
const (
	NameJobSearch      = "job_search"
	NameResumeAnalyzer = "resume_analyzer"
	NameCoverLetter    = "cover_letter"
	NameWebResearcher  = "web_researcher"
)

// Typed handler failures. Handlers wrap one of these; they never return a
// partially valid result alongside a nil error.
var (
	ErrNotFound           = errors.New("not found")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInvalidParameters  = errors.New("invalid parameters")
)

// UpstreamError reports an unreachable external provider. It matches
// ErrServiceUnavailable under errors.Is.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

// providerError keeps typed failures as they are and reports anything else
// from an external provider as an UpstreamError.
func providerError(provider string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidParameters) || errors.Is(err, ErrServiceUnavailable) {
		return err
	}
	return &UpstreamError{Provider: provider, Err: err}
}

// Request is what a handler receives for one routed message. Resume is a
// read-only snapshot and may be nil.
type Request struct {
	Query  string
	Params map[string]string
	Resume *resume.Insights
}

// Handler is one capability the supervisor can dispatch to. Handle returns
// one of the payload types of this package (*JobMatches, *ResumeView,
// *Letter, *Research).
type Handler interface {
	Name() string
	Handle(ctx context.Context, req Request) (any, error)
}
