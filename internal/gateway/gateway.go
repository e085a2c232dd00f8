// Package gateway defines the boundary to the natural-language-to-patch
// inference service.
package gateway

import (
	"context"
	"errors"

	"worksheet/internal/domain"
)

// ErrInvalidRequest is returned by adapters for requests they refuse to send.
var ErrInvalidRequest = errors.New("invalid gateway request")

// Request is captured by value when an edit is submitted. Adapters must not
// assume it reflects live state.
type Request struct {
	ComponentType string                          `json:"componentType"`
	Element       domain.CanvasElement            `json:"element"`
	Schema        *domain.ComponentPropertySchema `json:"schema,omitempty"`
	Instruction   string                          `json:"instruction"`
	Context       domain.WorksheetEditContext     `json:"context"`
}

// Patch is a partial update to a property bag.
type Patch struct {
	Properties domain.PropertyBag `json:"properties"`
}

// Result is either a success carrying a patch and its change summary, or a
// failure carrying a message.
type Result struct {
	Success bool                         `json:"success"`
	Patch   Patch                        `json:"patch"`
	Changes []domain.WorksheetEditChange `json:"changes,omitempty"`
	Error   string                       `json:"error,omitempty"`
}

// Gateway submits one edit request. A returned error is treated exactly like
// a failure Result by callers.
type Gateway interface {
	Submit(ctx context.Context, req Request) (Result, error)
}

// Func adapts a plain function to Gateway.
type Func func(ctx context.Context, req Request) (Result, error)

func (f Func) Submit(ctx context.Context, req Request) (Result, error) { return f(ctx, req) }

func Succeeded(props domain.PropertyBag, changes ...domain.WorksheetEditChange) Result {
	return Result{Success: true, Patch: Patch{Properties: props}, Changes: changes}
}

func Failed(msg string) Result {
	return Result{Success: false, Error: msg}
}
