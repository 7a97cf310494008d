// Package ingest accepts uploaded resumes and analyses them in the
// background through the SQLite job queue.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/jobpilot/internal/agent"
	"github.com/kalambet/jobpilot/internal/resume"
	"github.com/kalambet/jobpilot/internal/session"
	"github.com/kalambet/jobpilot/internal/storage"
)

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	AbandonJob(id string, errMsg string) error
	GetResume(id string) (storage.Resume, error)
	LatestResume(sessionID string) (storage.Resume, error)
}

// Analyzer turns raw resume text into insights. Implemented by
// agent.ResumeAnalyzer.
type Analyzer interface {
	Analyze(ctx context.Context, rawText string) (*resume.Insights, error)
}

// InsightsSink receives a finished analysis. Implemented by session.Manager.
type InsightsSink interface {
	ReplaceInsights(sessionID, resumeID string, in *resume.Insights) error
}

// permanentError marks failures a retry cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return permanentError{err: err} }

// errSuperseded fails the analysis of a resume that is no longer the
// session's most recent upload.
var errSuperseded = errors.New("superseded by a newer upload")

// Worker processes resume_analyze jobs from the SQLite job queue.
type Worker struct {
	store    JobStore
	analyzer Analyzer
	sink     InsightsSink
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, analyzer Analyzer, sink InsightsSink, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		analyzer: analyzer,
		sink:     sink,
		poll:     pollInterval,
		logger:   slog.Default().With("component", "ingest"),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single resume_analyze job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{storage.JobTypeResumeAnalyze})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	start := time.Now()
	if err := w.processJob(ctx, job); err != nil {
		var perm permanentError
		mark := w.store.FailJob
		if errors.As(err, &perm) {
			mark = w.store.AbandonJob
		}
		w.logger.Warn("job failed", "job_id", job.ID, "attempt", job.Attempts+1, "permanent", errors.As(err, &perm), "error", err)
		if failErr := mark(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	w.logger.Info("resume analysis completed", "job_id", job.ID, "duration_ms", time.Since(start).Milliseconds())
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload storage.ResumeJobPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return permanent(fmt.Errorf("parsing payload: %w", err))
	}

	res, err := w.store.GetResume(payload.ResumeID)
	if errors.Is(err, storage.ErrNotFound) {
		return permanent(fmt.Errorf("resume %s no longer exists", payload.ResumeID))
	}
	if err != nil {
		return fmt.Errorf("loading resume %s: %w", payload.ResumeID, err)
	}

	if err := w.checkLatest(res); err != nil {
		return err
	}

	in, err := w.analyzer.Analyze(ctx, res.RawText)
	if errors.Is(err, agent.ErrInvalidParameters) {
		return permanent(err)
	}
	if err != nil {
		return fmt.Errorf("analyzing resume: %w", err)
	}

	// A newer upload may have arrived while the analysis ran.
	if err := w.checkLatest(res); err != nil {
		return err
	}

	err = w.sink.ReplaceInsights(payload.SessionID, res.ID, in)
	if errors.Is(err, session.ErrNotFound) {
		return permanent(fmt.Errorf("session %s was closed", payload.SessionID))
	}
	if err != nil {
		return fmt.Errorf("storing insights: %w", err)
	}
	return nil
}

// checkLatest returns a permanent error unless res is the newest resume
// uploaded to its session. Retried jobs can finish out of upload order.
func (w *Worker) checkLatest(res storage.Resume) error {
	latest, err := w.store.LatestResume(res.SessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return permanent(fmt.Errorf("session %s has no resumes", res.SessionID))
	}
	if err != nil {
		return fmt.Errorf("loading latest resume: %w", err)
	}
	if latest.ID != res.ID {
		return permanent(fmt.Errorf("resume %s: %w", res.ID, errSuperseded))
	}
	return nil
}
