package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/jobpilot/internal/agent"
	"github.com/kalambet/jobpilot/internal/resume"
	"github.com/kalambet/jobpilot/internal/session"
	"github.com/kalambet/jobpilot/internal/storage"
)

type mockAnalyzer struct {
	calls     atomic.Int32
	analyzeFn func(ctx context.Context, text string) (*resume.Insights, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, text string) (*resume.Insights, error) {
	m.calls.Add(1)
	return m.analyzeFn(ctx, text)
}

func okAnalyzer() *mockAnalyzer {
	return &mockAnalyzer{analyzeFn: func(_ context.Context, text string) (*resume.Insights, error) {
		in := &resume.Insights{
			CareerRecommendations: []resume.Recommendation{{JobTitle: "Data Engineer", MatchScore: 80}},
			CurrentProfile:        resume.CurrentProfile{KeySkills: []string{"Python"}, ExperienceSummary: text},
		}
		return in, in.Finalize(time.Now())
	}}
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fixture struct {
	store    *storage.Store
	sessions *session.Manager
	sess     *session.Session
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := openTestStore(t)
	mgr := session.NewManager(store)
	t.Cleanup(mgr.Shutdown)
	sess, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return fixture{store: store, sessions: mgr, sess: sess}
}

func (f fixture) submit(t *testing.T, text string) Submission {
	t.Helper()
	sub, err := Submit(f.store, f.sess.ID(), "resume.txt", text)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return sub
}

func jobStatus(t *testing.T, store *storage.Store, id string) storage.Job {
	t.Helper()
	j, err := store.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob(%s): %v", id, err)
	}
	return j
}

func TestRunOnce_Success(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t, "Jane Doe, data analyst")
	if sub.Status != "queued" {
		t.Errorf("Status = %q, want queued", sub.Status)
	}

	analyzer := okAnalyzer()
	w := NewWorker(f.store, analyzer, f.sessions, 10*time.Millisecond)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("expected a job to be processed")
	}

	if got := jobStatus(t, f.store, sub.JobID).Status; got != storage.JobCompleted {
		t.Errorf("job status = %q, want completed", got)
	}
	in := f.sess.ResumeInsights()
	if in == nil {
		t.Fatal("session has no insights after analysis")
	}
	if in.CurrentProfile.ExperienceSummary != "Jane Doe, data analyst" {
		t.Errorf("analyzer got wrong text: %q", in.CurrentProfile.ExperienceSummary)
	}
	if _, err := f.store.GetInsights(f.sess.ID()); err != nil {
		t.Errorf("insights not persisted: %v", err)
	}
}

func TestRunOnce_NoJobs(t *testing.T) {
	f := newFixture(t)
	w := NewWorker(f.store, okAnalyzer(), f.sessions, 0)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if done {
		t.Error("expected no job")
	}
}

func TestRunOnce_TransientFailureRetries(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t, "resume text")

	analyzer := &mockAnalyzer{analyzeFn: func(context.Context, string) (*resume.Insights, error) {
		return nil, &agent.UpstreamError{Provider: "llm", Err: errors.New("connection refused")}
	}}
	w := NewWorker(f.store, analyzer, f.sessions, 0)

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	j := jobStatus(t, f.store, sub.JobID)
	if j.Status != storage.JobPending || j.Attempts != 1 {
		t.Errorf("job = %s/%d, want pending/1", j.Status, j.Attempts)
	}
	if !strings.Contains(j.LastError, "connection refused") {
		t.Errorf("LastError = %q", j.LastError)
	}
	if f.sess.HasResume() {
		t.Error("failed analysis must not set insights")
	}
}

func TestRunOnce_InvalidInputIsPermanent(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t, "resume text")

	analyzer := &mockAnalyzer{analyzeFn: func(context.Context, string) (*resume.Insights, error) {
		return nil, fmt.Errorf("%w: unreadable", agent.ErrInvalidParameters)
	}}
	w := NewWorker(f.store, analyzer, f.sessions, 0)

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := jobStatus(t, f.store, sub.JobID).Status; got != storage.JobFailed {
		t.Errorf("job status = %q, want failed", got)
	}
}

func TestRunOnce_ClosedSessionIsPermanent(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t, "resume text")
	if err := f.sessions.Close(f.sess.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	analyzer := okAnalyzer()
	w := NewWorker(f.store, analyzer, f.sessions, 0)
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	// Closing the session deletes the resume, so the analyzer never runs.
	if analyzer.calls.Load() != 0 {
		t.Errorf("analyzer called %d times, want 0", analyzer.calls.Load())
	}
	if got := jobStatus(t, f.store, sub.JobID).Status; got != storage.JobFailed {
		t.Errorf("job status = %q, want failed", got)
	}
}

func TestRun_ProcessesUntilCancelled(t *testing.T) {
	f := newFixture(t)
	sub := f.submit(t, "resume text")

	w := NewWorker(f.store, okAnalyzer(), f.sessions, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	deadline := time.After(2 * time.Second)
	for jobStatus(t, f.store, sub.JobID).Status != storage.JobCompleted {
		select {
		case <-deadline:
			t.Fatal("job was not processed in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)

	if _, err := Submit(f.store, f.sess.ID(), "a.txt", "   "); !errors.Is(err, ErrEmptyResume) {
		t.Errorf("err = %v, want ErrEmptyResume", err)
	}
	if _, err := Submit(f.store, f.sess.ID(), "a.txt", strings.Repeat("x", MaxResumeChars+1)); err == nil {
		t.Error("expected error for oversized resume")
	}
}

// replayStore hands out one fixed job, as if its retry backoff had elapsed.
type replayStore struct {
	*storage.Store
	job *storage.Job
}

func (r *replayStore) ClaimNextJob([]string) (*storage.Job, error) {
	j := r.job
	r.job = nil
	return j, nil
}

func drain(t *testing.T, w *Worker) {
	t.Helper()
	for {
		done, err := w.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		if !done {
			return
		}
	}
}

func summary(s *session.Session) string {
	in := s.ResumeInsights()
	if in == nil {
		return ""
	}
	return in.CurrentProfile.ExperienceSummary
}

func TestRunOnce_RetriedOlderResumeKeepsNewerInsights(t *testing.T) {
	f := newFixture(t)
	older := f.submit(t, "OLD resume")
	newer := f.submit(t, "NEW resume")

	var failedOnce atomic.Bool
	ok := okAnalyzer()
	analyzer := &mockAnalyzer{analyzeFn: func(ctx context.Context, text string) (*resume.Insights, error) {
		if text == "OLD resume" && failedOnce.CompareAndSwap(false, true) {
			return nil, &agent.UpstreamError{Provider: "llm", Err: errors.New("timeout")}
		}
		return ok.analyzeFn(ctx, text)
	}}
	drain(t, NewWorker(f.store, analyzer, f.sessions, 0))

	if got := summary(f.sess); got != "NEW resume" {
		t.Fatalf("insights after first pass = %q, want NEW resume", got)
	}
	if got := jobStatus(t, f.store, newer.JobID).Status; got != storage.JobCompleted {
		t.Errorf("newer job status = %q, want completed", got)
	}

	oldJob := jobStatus(t, f.store, older.JobID)
	calls := analyzer.calls.Load()
	replay := NewWorker(&replayStore{Store: f.store, job: &oldJob}, analyzer, f.sessions, 0)
	if _, err := replay.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if got := summary(f.sess); got != "NEW resume" {
		t.Errorf("insights after retry = %q, want NEW resume", got)
	}
	if analyzer.calls.Load() != calls {
		t.Error("superseded resume was analysed again")
	}
	j := jobStatus(t, f.store, older.JobID)
	if j.Status != storage.JobFailed || !strings.Contains(j.LastError, "superseded") {
		t.Errorf("older job = %s (%q), want failed as superseded", j.Status, j.LastError)
	}
	stored, err := f.store.GetInsights(f.sess.ID())
	if err != nil {
		t.Fatalf("GetInsights: %v", err)
	}
	if stored.CurrentProfile.ExperienceSummary != "NEW resume" {
		t.Errorf("persisted insights = %q, want NEW resume", stored.CurrentProfile.ExperienceSummary)
	}
}

func TestRunOnce_UploadDuringAnalysisWins(t *testing.T) {
	f := newFixture(t)
	older := f.submit(t, "OLD resume")

	ok := okAnalyzer()
	analyzer := &mockAnalyzer{analyzeFn: func(ctx context.Context, text string) (*resume.Insights, error) {
		if text == "OLD resume" {
			f.submit(t, "NEW resume")
		}
		return ok.analyzeFn(ctx, text)
	}}
	w := NewWorker(f.store, analyzer, f.sessions, 0)

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if f.sess.HasResume() {
		t.Errorf("stale analysis was applied: %q", summary(f.sess))
	}
	if got := jobStatus(t, f.store, older.JobID).Status; got != storage.JobFailed {
		t.Errorf("older job status = %q, want failed", got)
	}

	drain(t, w)
	if got := summary(f.sess); got != "NEW resume" {
		t.Errorf("insights = %q, want NEW resume", got)
	}
}
