package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/jobpilot/internal/intent"
	"github.com/kalambet/jobpilot/internal/jobs"
	"github.com/kalambet/jobpilot/internal/resume"
)

func testInsights() *resume.Insights {
	return &resume.Insights{
		CurrentProfile: resume.CurrentProfile{KeySkills: []string{"Python", "SQL"}},
		Metadata:       resume.Metadata{AnalysisQuality: resume.QualityPartial, LastUpdated: time.Now()},
	}
}

type stubJobs struct {
	postings []jobs.Posting
	err      error

	gotQuery  string
	gotSkills []string
}

func (s *stubJobs) Search(_ context.Context, query string, skills []string) ([]jobs.Posting, error) {
	s.gotQuery = query
	s.gotSkills = skills
	return s.postings, s.err
}

func TestUpstreamError_IsServiceUnavailable(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("wrapped: %w", &UpstreamError{Provider: "x", Err: cause})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestJobSearch_RanksAndTrims(t *testing.T) {
	provider := &stubJobs{postings: []jobs.Posting{
		{Title: "Low", RequiredSkills: []string{"Java"}, URL: "1"},
		{Title: "High", RequiredSkills: []string{"Python", "SQL"}, URL: "2"},
		{Title: "Mid", RequiredSkills: []string{"Python", "Spark"}, URL: "3"},
	}}
	h := NewJobSearch(provider, 2)

	out, err := h.Handle(context.Background(), Request{
		Query:  "Find jobs in data science",
		Params: map[string]string{intent.ParamRole: "data science"},
		Resume: testInsights(),
	})
	require.NoError(t, err)

	res, ok := out.(*JobMatches)
	require.True(t, ok, "payload type %T", out)
	assert.Equal(t, "data science", provider.gotQuery)
	assert.Equal(t, []string{"Python", "SQL"}, provider.gotSkills)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "High", res.Matches[0].Title)
	assert.Equal(t, "Mid", res.Matches[1].Title)
}

func TestJobSearch_NoResume(t *testing.T) {
	provider := &stubJobs{postings: []jobs.Posting{{Title: "Any", RequiredSkills: []string{"Go"}}}}
	out, err := NewJobSearch(provider, 0).Handle(context.Background(), Request{Query: "golang jobs"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.(*JobMatches).Matches[0].MatchScore)
	assert.Equal(t, "golang jobs", provider.gotQuery)
}

func TestJobSearch_Empty(t *testing.T) {
	_, err := NewJobSearch(&stubJobs{}, 5).Handle(context.Background(), Request{Query: "jobs"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobSearch_ProviderDown(t *testing.T) {
	_, err := NewJobSearch(&stubJobs{err: errors.New("timeout")}, 5).Handle(context.Background(), Request{Query: "jobs"})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	var up *UpstreamError
	assert.ErrorAs(t, err, &up)
}

func TestJobSearch_PartialResultsNameFailedSources(t *testing.T) {
	provider := &stubJobs{
		postings: []jobs.Posting{{Title: "Backend", RequiredSkills: []string{"Python"}, URL: "1"}},
		err:      &jobs.PartialError{Failed: []string{"board-b"}, Err: errors.New("board-b: timeout")},
	}
	out, err := NewJobSearch(provider, 5).Handle(context.Background(), Request{Query: "backend jobs"})
	require.NoError(t, err)

	res := out.(*JobMatches)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, []string{"board-b"}, res.FailedSources)
}

func TestJobSearch_PartialWithoutPostingsIsUnavailable(t *testing.T) {
	provider := &stubJobs{err: &jobs.PartialError{Failed: []string{"board-b"}, Err: errors.New("board-b: timeout")}}
	_, err := NewJobSearch(provider, 5).Handle(context.Background(), Request{Query: "backend jobs"})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestResumeAnalyzer_Handle(t *testing.T) {
	in := testInsights()
	out, err := NewResumeAnalyzer(nil).Handle(context.Background(), Request{
		Params: map[string]string{intent.ParamFocus: resume.SectionDevelopment},
		Resume: in,
	})
	require.NoError(t, err)

	view := out.(*ResumeView)
	assert.Equal(t, resume.SectionDevelopment, view.Focus)
	assert.Equal(t, in.CurrentProfile.KeySkills, view.Insights.CurrentProfile.KeySkills)
	view.Insights.CurrentProfile.KeySkills[0] = "mutated"
	assert.Equal(t, "Python", in.CurrentProfile.KeySkills[0], "handler must not expose the session's insights")
}

func TestResumeAnalyzer_NoResume(t *testing.T) {
	_, err := NewResumeAnalyzer(nil).Handle(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

type stubResumeProvider struct {
	in  *resume.Insights
	err error
}

func (s stubResumeProvider) Analyze(context.Context, string) (*resume.Insights, error) {
	return s.in, s.err
}

func TestResumeAnalyzer_Analyze(t *testing.T) {
	h := NewResumeAnalyzer(stubResumeProvider{in: testInsights()})
	in, err := h.Analyze(context.Background(), "Jane Doe, Python developer")
	require.NoError(t, err)
	assert.NotNil(t, in)

	_, err = h.Analyze(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = NewResumeAnalyzer(stubResumeProvider{err: errors.New("llm down")}).Analyze(context.Background(), "text")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

type stubWriter struct {
	text string
	err  error

	gotDescription string
}

func (s *stubWriter) Write(_ context.Context, _ *resume.Insights, jd string) (string, error) {
	s.gotDescription = jd
	return s.text, s.err
}

func TestCoverLetter_Handle(t *testing.T) {
	w := &stubWriter{text: "Dear team,\n\nI bring Python.\n\nI admire Acme.\n\nSincerely"}
	out, err := NewCoverLetter(w).Handle(context.Background(), Request{
		Query:  "Write a cover letter for the data engineer position at Acme",
		Params: map[string]string{intent.ParamRole: "data engineer", intent.ParamCompany: "Acme"},
		Resume: testInsights(),
	})
	require.NoError(t, err)

	letter := out.(*Letter)
	assert.Len(t, letter.Paragraphs, 4)
	assert.Equal(t, "Acme", letter.Company)
	assert.Contains(t, w.gotDescription, "Role: data engineer")
	assert.Contains(t, w.gotDescription, "Company: Acme")
}

func TestCoverLetter_Failures(t *testing.T) {
	_, err := NewCoverLetter(&stubWriter{text: "x"}).Handle(context.Background(), Request{Query: "cover letter"})
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = NewCoverLetter(&stubWriter{text: "  "}).Handle(context.Background(), Request{Query: "cover letter", Resume: testInsights()})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

type stubResearcher struct {
	summary string
	err     error
	got     string
}

func (s *stubResearcher) Research(_ context.Context, q string) (string, error) {
	s.got = q
	return s.summary, s.err
}

func TestWebResearcher_Handle(t *testing.T) {
	r := &stubResearcher{summary: "Kubernetes is a container orchestrator."}
	out, err := NewWebResearcher(r).Handle(context.Background(), Request{
		Query:  "What is Kubernetes?",
		Params: map[string]string{intent.ParamTopic: "Kubernetes?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Kubernetes", r.got)
	assert.Equal(t, "Kubernetes is a container orchestrator.", out.(*Research).Summary)
}

func TestWebResearcher_NotFoundPassesThrough(t *testing.T) {
	r := &stubResearcher{err: fmt.Errorf("no article: %w", ErrNotFound)}
	_, err := NewWebResearcher(r).Handle(context.Background(), Request{Query: "zzzz"})
	assert.ErrorIs(t, err, ErrNotFound)
	var up *UpstreamError
	assert.False(t, errors.As(err, &up))
}
