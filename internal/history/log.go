// Package history keeps the ordered, append-only edit log of one session.
package history

import (
	"sync"

	"worksheet/internal/domain"
	"worksheet/internal/logger"
)

// Sink receives every appended record, e.g. for persistence.
type Sink interface {
	AppendEdit(e domain.WorksheetEdit) error
}

// Log is ordered by completion. Records are copied in and out so callers
// cannot mutate stored entries.
type Log struct {
	mu        sync.RWMutex
	sessionID string
	records   []domain.WorksheetEdit
	sink      Sink
	log       *logger.Logger
}

// New creates an empty log. sink may be nil.
func New(sessionID string, sink Sink, log *logger.Logger) *Log {
	if log == nil {
		log = logger.Nop()
	}
	return &Log{sessionID: sessionID, sink: sink, log: log}
}

// Restore seeds the log with records loaded from storage.
func (l *Log) Restore(records []domain.WorksheetEdit) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		l.records = append(l.records, r.Clone())
	}
}

// Append adds a record and forwards it to the sink. A sink failure is logged
// and never drops the in-memory record.
func (l *Log) Append(e domain.WorksheetEdit) domain.WorksheetEdit {
	if e.SessionID == "" {
		e.SessionID = l.sessionID
	}
	e = e.Clone()

	l.mu.Lock()
	l.records = append(l.records, e)
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.AppendEdit(e); err != nil {
			l.log.Error("history sink append failed", "edit_id", e.ID, "error", err)
		}
	}
	return e.Clone()
}

// List returns a copy of all records, oldest first.
func (l *Log) List() []domain.WorksheetEdit {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.WorksheetEdit, len(l.records))
	for i, r := range l.records {
		out[i] = r.Clone()
	}
	return out
}

// ForSelection returns the records made against one selection key, oldest
// first.
func (l *Log) ForSelection(key string) []domain.WorksheetEdit {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []domain.WorksheetEdit{}
	for _, r := range l.records {
		if r.SelectionKey == key {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func (l *Log) SessionID() string { return l.sessionID }
