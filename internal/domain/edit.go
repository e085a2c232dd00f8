package domain

import "time"

// WorksheetEditContext is passed through to the edit gateway untouched.
type WorksheetEditContext struct {
	Topic      string `json:"topic,omitempty" yaml:"topic,omitempty"`
	AgeGroup   string `json:"ageGroup,omitempty" yaml:"ageGroup,omitempty"`
	Difficulty string `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Language   string `json:"language,omitempty" yaml:"language,omitempty"`
}

// WorksheetEditChange summarizes one field touched by a gateway patch.
// Field is a dot-path into the property bag.
type WorksheetEditChange struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// WorksheetEdit is one immutable history record.
type WorksheetEdit struct {
	ID           string                `json:"id"`
	SessionID    string                `json:"sessionId,omitempty"`
	SelectionKey string                `json:"selectionKey,omitempty"`
	Instruction  string                `json:"instruction"`
	Changes      []WorksheetEditChange `json:"changes"`
	Timestamp    time.Time             `json:"timestamp"`
	Success      bool                  `json:"success"`
	Error        string                `json:"error,omitempty"`
}

// Clone returns a copy with its own Changes slice.
func (e WorksheetEdit) Clone() WorksheetEdit {
	if e.Changes != nil {
		e.Changes = append([]WorksheetEditChange(nil), e.Changes...)
	}
	return e
}

// EditStore persists history records. Records are only ever appended.
type EditStore interface {
	AppendEdit(e WorksheetEdit) error
	ListEdits(sessionID string) ([]WorksheetEdit, error)
}
