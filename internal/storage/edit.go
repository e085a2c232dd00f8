package storage

import (
	"encoding/json"
	"fmt"

	"worksheet/internal/domain"
)

// EditStore persists the edit history. Rows are only ever inserted.
type EditStore struct {
	db *DB
}

func NewEditStore(db *DB) *EditStore {
	return &EditStore{db: db}
}

func (s *EditStore) AppendEdit(e domain.WorksheetEdit) error {
	changes, err := encodeChanges(e.Changes)
	if err != nil {
		return fmt.Errorf("append edit: %w", err)
	}
	success := 0
	if e.Success {
		success = 1
	}
	_, err = s.db.exec(
		`INSERT INTO edits (id, session_id, selection_key, instruction, changes_json, success, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.SelectionKey, e.Instruction, changes, success, e.Error, e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append edit: %w", err)
	}
	return nil
}

// ListEdits returns a session's records in append order.
func (s *EditStore) ListEdits(sessionID string) ([]domain.WorksheetEdit, error) {
	rows, err := s.db.query(
		`SELECT id, session_id, selection_key, instruction, changes_json, success, error, created_at
		 FROM edits WHERE session_id = ? ORDER BY seq ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	defer rows.Close()

	var edits []domain.WorksheetEdit
	for rows.Next() {
		var (
			e       domain.WorksheetEdit
			changes string
			success int
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.SelectionKey, &e.Instruction, &changes, &success, &e.Error, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		e.Success = success != 0
		if err := json.Unmarshal([]byte(changes), &e.Changes); err != nil {
			return nil, fmt.Errorf("edit %s changes: %w", e.ID, err)
		}
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

func encodeChanges(changes []domain.WorksheetEditChange) (string, error) {
	if changes == nil {
		changes = []domain.WorksheetEditChange{}
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
