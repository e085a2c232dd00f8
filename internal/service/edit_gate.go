package service

import (
	"context"
	"sync"
)

// EditStatus is the state of the global edit state machine.
type EditStatus string

const (
	EditIdle       EditStatus = "idle"
	EditSubmitting EditStatus = "submitting"
	EditApplied    EditStatus = "applied"
	EditFailed     EditStatus = "failed"
)

// ─────────────────────────────────────────────────────────────
// editGate — at most one edit in flight, across all selections
// ─────────────────────────────────────────────────────────────

// editGate runs Idle → Submitting → (Applied | Failed) → Idle. The terminal
// states are recorded as the last outcome while the gate itself returns to
// Idle immediately.
type editGate struct {
	mu      sync.Mutex
	status  EditStatus
	key     string
	outcome EditStatus
	wg      sync.WaitGroup
}

// TryBegin moves the gate to Submitting for key. Returns false if another
// edit is already in flight.
func (g *editGate) TryBegin(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == EditSubmitting {
		return false
	}
	g.status = EditSubmitting
	g.key = key
	g.wg.Add(1)
	return true
}

// Finish records the outcome and returns the gate to Idle. Must be called
// after TryBegin returns true.
func (g *editGate) Finish(applied bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if applied {
		g.outcome = EditApplied
	} else {
		g.outcome = EditFailed
	}
	g.status = EditIdle
	g.key = ""
	g.wg.Done()
}

// Status returns the current state and, while submitting, its selection key.
func (g *editGate) Status() (EditStatus, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == "" {
		return EditIdle, ""
	}
	return g.status, g.key
}

// Outcome returns Applied or Failed for the last finished edit, or Idle if
// none has finished yet.
func (g *editGate) Outcome() EditStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.outcome == "" {
		return EditIdle
	}
	return g.outcome
}

// Wait blocks until the in-flight edit completes or ctx is cancelled.
func (g *editGate) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
