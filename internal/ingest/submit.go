package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/jobpilot/internal/storage"
)

// MaxResumeChars bounds the extracted resume text accepted for analysis.
const MaxResumeChars = 100_000

// ErrEmptyResume is returned when an upload contains no usable text.
var ErrEmptyResume = errors.New("resume contains no text")

// Queue stores uploads and schedules their analysis.
// Implemented by storage.Store.
type Queue interface {
	SaveResume(r storage.Resume) error
	EnqueueJob(job storage.Job) error
}

// Submission identifies a stored resume and its analysis job.
type Submission struct {
	ResumeID string `json:"resume_id"`
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
}

// Submit stores the resume text for sessionID and enqueues its analysis.
func Submit(q Queue, sessionID, filename, text string) (Submission, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Submission{}, ErrEmptyResume
	}
	if len([]rune(text)) > MaxResumeChars {
		return Submission{}, fmt.Errorf("resume text exceeds %d characters", MaxResumeChars)
	}

	now := time.Now().UTC()
	res := storage.Resume{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Filename:  filename,
		RawText:   text,
		CreatedAt: now,
	}
	if err := q.SaveResume(res); err != nil {
		return Submission{}, fmt.Errorf("saving resume: %w", err)
	}

	payload, err := json.Marshal(storage.ResumeJobPayload{SessionID: sessionID, ResumeID: res.ID})
	if err != nil {
		return Submission{}, fmt.Errorf("encoding job payload: %w", err)
	}
	job := storage.Job{
		ID:          uuid.New().String(),
		Type:        storage.JobTypeResumeAnalyze,
		PayloadJSON: string(payload),
	}
	if err := q.EnqueueJob(job); err != nil {
		return Submission{}, fmt.Errorf("enqueueing analysis: %w", err)
	}
	return Submission{ResumeID: res.ID, JobID: job.ID, Status: "queued"}, nil
}
