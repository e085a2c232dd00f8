package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter — the subscription point for the rendering layer
// ─────────────────────────────────────────────────────────────

const (
	EventHistoryChanged    = "edit:history-changed"
	EventEditingChanged    = "edit:editing-changed"
	EventErrorChanged      = "edit:error-changed"
	EventPropertiesChanged = "properties:changed"
	EventPageImported      = "page:imported"
)

// EventEmitter is how services notify whoever renders them. Services receive
// this interface instead of a UI handle, which keeps them testable with a
// mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(ctx context.Context, event string, data any)

func (f EmitterFunc) Emit(ctx context.Context, event string, data any) { f(ctx, event, data) }

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded emissions of one event, in order.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
