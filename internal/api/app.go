package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/jobpilot/internal/ingest"
	"github.com/kalambet/jobpilot/internal/session"
	"github.com/kalambet/jobpilot/internal/storage"
	"github.com/kalambet/jobpilot/internal/supervisor"
)

const (
	maxRequestBodySize = 1 << 20  // 1MB
	maxUploadSize      = 10 << 20 // 10MB
)

// Router routes one chat message. Implemented by supervisor.Supervisor.
type Router interface {
	Route(ctx context.Context, message string, sess supervisor.SessionContext) supervisor.Envelope
}

// Sessions is the session registry the API serves. Implemented by
// session.Manager.
type Sessions interface {
	Create() (*session.Session, error)
	Get(id string) (*session.Session, error)
	Close(id string) error
}

type AppDeps struct {
	Store    *storage.Store
	Sessions Sessions
	Router   Router
}

type chatRequest struct {
	Message string `json:"message"`
}

type resumeRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type jobView struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type interactionView struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Message    string    `json:"message"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Agent      string    `json:"agent,omitempty"`
	Response   string    `json:"response,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// NewHandler returns the HTTP API. It has no authentication and must only be
// bound to loopback.
func NewHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/sessions", handleCreateSession(deps))
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Delete("/", handleDeleteSession(deps))
		r.Post("/resume", handleUploadResume(deps))
		r.Get("/resume", handleGetResume(deps))
		r.Post("/chat", handleChat(deps))
		r.Get("/interactions", handleListInteractions(deps))
	})
	r.Get("/jobs/{id}", handleGetJob(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleCreateSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Create()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create session: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID()})
	}
}

func handleDeleteSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Sessions.Close(chi.URLParam(r, "id"))
		if errors.Is(err, session.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to close session: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleUploadResume(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}

		filename, text, err := readResume(w, r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		sub, err := ingest.Submit(deps.Store, sess.ID(), filename, text)
		if errors.Is(err, ingest.ErrEmptyResume) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to queue resume: %v", err)
			return
		}

		writeJSON(w, http.StatusAccepted, sub)
	}
}

// readResume accepts a multipart upload in the "resume" field or a JSON body
// of already extracted text.
func readResume(w http.ResponseWriter, r *http.Request) (filename, text string, err error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return "", "", fmt.Errorf("invalid upload: %v", err)
		}
		file, header, err := r.FormFile("resume")
		if err != nil {
			return "", "", fmt.Errorf("resume file is required")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", "", fmt.Errorf("reading upload: %v", err)
		}
		text, err := ingest.ExtractText(header.Filename, data)
		if err != nil {
			return "", "", err
		}
		return header.Filename, text, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", "", fmt.Errorf("invalid request body: %v", err)
	}
	if req.Filename == "" {
		req.Filename = "resume.txt"
	}
	return req.Filename, req.Text, nil
}

func handleGetResume(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}

		in := sess.ResumeInsights()
		if in == nil {
			httpError(w, http.StatusNotFound, "not_found", "no resume has been analysed for this session")
			return
		}

		writeJSON(w, http.StatusOK, in)
	}
}

func handleGetJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := deps.Store.GetJob(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get job: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, jobView{
			ID:        job.ID,
			Type:      job.Type,
			Status:    job.Status,
			Attempts:  job.Attempts,
			LastError: job.LastError,
			CreatedAt: job.CreatedAt,
			UpdatedAt: job.UpdatedAt,
		})
	}
}

func handleChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}

		var env supervisor.Envelope
		err := sess.Do(r.Context(), func(ctx context.Context) {
			env = deps.Router.Route(ctx, req.Message, sess)
		})
		if errors.Is(err, session.ErrClosed) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "request cancelled: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, env)
	}
}

func handleListInteractions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		rows, err := deps.Store.ListInteractions(sess.ID(), limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}

		out := make([]interactionView, 0, len(rows))
		for _, ix := range rows {
			out = append(out, interactionView{
				ID:         ix.ID,
				CreatedAt:  ix.CreatedAt,
				Message:    ix.Message,
				Intent:     ix.Intent,
				Confidence: ix.Confidence,
				Agent:      ix.Agent,
				Response:   ix.Response,
				Error:      ix.Error,
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func lookupSession(w http.ResponseWriter, r *http.Request, deps AppDeps) (*session.Session, bool) {
	sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "session not found")
		return nil, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to load session: %v", err)
		return nil, false
	}
	return sess, true
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
