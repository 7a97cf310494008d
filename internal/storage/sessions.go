package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kalambet/jobpilot/internal/resume"
)

// --- Sessions ---

func (s *Store) CreateSession(sess Session) error {
	created := formatTime(sess.CreatedAt)
	_, err := s.db.Exec(`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)`,
		sess.ID, created, created)
	return err
}

func (s *Store) GetSession(id string) (Session, error) {
	var sess Session
	var createdAt, updatedAt string
	err := s.db.QueryRow(`SELECT id, created_at, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if sess.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Session{}, err
	}
	if sess.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// TouchSession bumps updated_at.
func (s *Store) TouchSession(id string) error {
	res, err := s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, formatTime(time.Time{}), id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// DeleteSession removes the session together with its resumes, insights and
// interaction history. Queued jobs are left to fail on their own.
func (s *Store) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := expectRow(res); err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM resumes WHERE session_id = ?`,
		`DELETE FROM resume_insights WHERE session_id = ?`,
		`DELETE FROM interactions WHERE session_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) CountSessions() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

// --- Resumes ---

func (s *Store) SaveResume(r Resume) error {
	_, err := s.db.Exec(`
		INSERT INTO resumes (id, session_id, filename, raw_text, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Filename, r.RawText, formatTime(r.CreatedAt),
	)
	return err
}

func (s *Store) GetResume(id string) (Resume, error) {
	return s.scanResume(s.db.QueryRow(`
		SELECT id, session_id, filename, raw_text, created_at FROM resumes WHERE id = ?`, id))
}

// LatestResume returns the most recently uploaded resume for a session.
func (s *Store) LatestResume(sessionID string) (Resume, error) {
	return s.scanResume(s.db.QueryRow(`
		SELECT id, session_id, filename, raw_text, created_at FROM resumes
		WHERE session_id = ? ORDER BY rowid DESC LIMIT 1`, sessionID))
}

func (s *Store) scanResume(row *sql.Row) (Resume, error) {
	var r Resume
	var createdAt string
	err := row.Scan(&r.ID, &r.SessionID, &r.Filename, &r.RawText, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, ErrNotFound
	}
	if err != nil {
		return Resume{}, err
	}
	if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Resume{}, err
	}
	return r, nil
}

// --- Resume insights ---

// SaveInsights replaces the stored analysis for a session.
func (s *Store) SaveInsights(sessionID, resumeID string, in *resume.Insights) error {
	if in == nil {
		return fmt.Errorf("nil insights")
	}
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding insights: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO resume_insights (session_id, resume_id, insights_json, analysis_quality, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			resume_id = excluded.resume_id,
			insights_json = excluded.insights_json,
			analysis_quality = excluded.analysis_quality,
			updated_at = excluded.updated_at`,
		sessionID, resumeID, string(data), string(in.Metadata.AnalysisQuality), formatTime(in.Metadata.LastUpdated),
	)
	return err
}

// GetInsights returns the stored analysis for a session.
func (s *Store) GetInsights(sessionID string) (*resume.Insights, error) {
	var data string
	err := s.db.QueryRow(`SELECT insights_json FROM resume_insights WHERE session_id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var in resume.Insights
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return nil, fmt.Errorf("decoding insights for session %s: %w", sessionID, err)
	}
	return &in, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
