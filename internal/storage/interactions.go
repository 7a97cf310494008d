package storage

import (
	"database/sql"
	"errors"
)

// --- Interactions ---

func (s *Store) SaveInteraction(i Interaction) error {
	_, err := s.db.Exec(`
		INSERT INTO interactions (id, session_id, created_at, message, intent, confidence, agent, response, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.SessionID, formatTime(i.CreatedAt), i.Message, i.Intent, i.Confidence,
		i.Agent, i.Response, i.Error,
	)
	return err
}

func (s *Store) GetInteraction(id string) (Interaction, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, created_at, message, intent, confidence, agent, response, error
		FROM interactions WHERE id = ?`, id)
	if err != nil {
		return Interaction{}, err
	}
	list, err := scanInteractions(rows)
	if err != nil {
		return Interaction{}, err
	}
	if len(list) == 0 {
		return Interaction{}, ErrNotFound
	}
	return list[0], nil
}

// ListInteractions returns a session's history oldest first.
func (s *Store) ListInteractions(sessionID string, limit, offset int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(`
		SELECT id, session_id, created_at, message, intent, confidence, agent, response, error
		FROM interactions WHERE session_id = ?
		ORDER BY seq ASC LIMIT ? OFFSET ?`, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanInteractions(rows)
}

func scanInteractions(rows *sql.Rows) ([]Interaction, error) {
	defer rows.Close()

	var results []Interaction
	for rows.Next() {
		var i Interaction
		var createdAt string
		if err := rows.Scan(&i.ID, &i.SessionID, &createdAt, &i.Message, &i.Intent, &i.Confidence,
			&i.Agent, &i.Response, &i.Error); err != nil {
			return nil, err
		}
		t, err := parseTime("created_at", createdAt)
		if err != nil {
			return nil, err
		}
		i.CreatedAt = t
		results = append(results, i)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return results, nil
}
