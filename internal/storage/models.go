package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// JobTypeResumeAnalyze is the queue type for background resume analysis.
// The payload is a ResumeJobPayload.
const JobTypeResumeAnalyze = "resume_analyze"

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Resume struct {
	ID        string
	SessionID string
	Filename  string
	RawText   string
	CreatedAt time.Time
}

// Interaction is one routed chat message and the envelope it produced.
type Interaction struct {
	ID         string
	SessionID  string
	CreatedAt  time.Time
	Message    string
	Intent     string
	Confidence float64
	Agent      string
	Response   string
	Error      string
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

// ResumeJobPayload identifies the resume a resume_analyze job works on.
type ResumeJobPayload struct {
	SessionID string `json:"session_id"`
	ResumeID  string `json:"resume_id"`
}
