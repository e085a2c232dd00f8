// Package scripted is a deterministic gateway that replays queued results.
// It backs tests and offline sessions.
package scripted

import (
	"context"
	"errors"
	"sync"

	"worksheet/internal/gateway"
)

// ErrExhausted is returned when no scripted result is left.
var ErrExhausted = errors.New("scripted gateway: no responses queued")

// Step is one queued outcome. Wait, when set, is received from before the
// step resolves so tests can hold a request in flight.
type Step struct {
	Result gateway.Result
	Err    error
	Wait   <-chan struct{}
}

type Gateway struct {
	mu       sync.Mutex
	steps    []Step
	requests []gateway.Request
	fallback *Step
}

func New(steps ...Step) *Gateway {
	return &Gateway{steps: steps}
}

// Push queues more outcomes.
func (g *Gateway) Push(steps ...Step) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.steps = append(g.steps, steps...)
}

// Always makes every call without a queued step resolve to s.
func (g *Gateway) Always(s Step) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fallback = &s
}

func (g *Gateway) Submit(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	var step Step
	switch {
	case len(g.steps) > 0:
		step = g.steps[0]
		g.steps = g.steps[1:]
	case g.fallback != nil:
		step = *g.fallback
	default:
		g.mu.Unlock()
		return gateway.Result{}, ErrExhausted
	}
	g.mu.Unlock()

	if step.Wait != nil {
		select {
		case <-step.Wait:
		case <-ctx.Done():
			return gateway.Result{}, ctx.Err()
		}
	}
	return step.Result, step.Err
}

// Requests returns every request received so far.
func (g *Gateway) Requests() []gateway.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.Request(nil), g.requests...)
}

// Calls returns the number of Submit calls.
func (g *Gateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}
