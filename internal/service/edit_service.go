package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"worksheet/internal/domain"
	"worksheet/internal/draft"
	"worksheet/internal/editor"
	"worksheet/internal/gateway"
	"worksheet/internal/history"
	"worksheet/internal/logger"
	"worksheet/internal/selection"
)

// PatchPolicy decides what happens to gateway patches that reach outside the
// component schema.
type PatchPolicy string

const (
	// PatchPolicyPermissive merges unknown keys verbatim. Known keys must
	// still conform to their definitions.
	PatchPolicyPermissive PatchPolicy = "permissive"
	// PatchPolicyStrict also turns any unknown key into a failed edit.
	PatchPolicyStrict PatchPolicy = "strict"
)

// ParsePatchPolicy maps a config string to a policy. Empty means permissive.
func ParsePatchPolicy(s string) (PatchPolicy, error) {
	switch PatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PatchPolicyPermissive:
		return PatchPolicyPermissive, nil
	case PatchPolicyStrict:
		return PatchPolicyStrict, nil
	}
	return "", fmt.Errorf("unknown patch policy %q", s)
}

// EditState is the snapshot the rendering layer needs to draw the editor.
type EditState struct {
	Status      EditStatus `json:"status"`
	Editing     bool       `json:"editing"`
	InFlightKey string     `json:"inFlightKey,omitempty"`
	LastOutcome EditStatus `json:"lastOutcome"`
	Error       string     `json:"error,omitempty"`
}

// ─────────────────────────────────────────────────────────────
// Edit Service — gateway edits, history, global edit gate
// ─────────────────────────────────────────────────────────────

type EditService struct {
	props   *PropertyService
	gw      gateway.Gateway
	history *history.Log
	drafts  *draft.Cache
	emitter EventEmitter
	log     *logger.Logger
	tracer  trace.Tracer
	policy  PatchPolicy

	gate editGate

	errMu   sync.Mutex
	lastErr string

	now   func() time.Time
	newID func() string
}

// NewEditService creates an EditService. drafts may be nil when no draft
// cache is attached.
func NewEditService(
	props *PropertyService,
	gw gateway.Gateway,
	hist *history.Log,
	drafts *draft.Cache,
	policy PatchPolicy,
	emitter EventEmitter,
	log *logger.Logger,
) *EditService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if policy == "" {
		policy = PatchPolicyPermissive
	}
	return &EditService{
		props:   props,
		gw:      gw,
		history: hist,
		drafts:  drafts,
		emitter: emitter,
		log:     log.With("component", "edit_service", "policy", string(policy)),
		tracer:  otel.Tracer("worksheet/service"),
		policy:  policy,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Submit sends instruction for the selected target through the gateway.
//
// Local rejections (empty instruction, nothing selected, no schema, an edit
// already in flight) return an error and leave no trace. Once the gateway is
// reached, the outcome is always a history record: success merges the patch
// and clears the submitted selection's draft; failure leaves properties and
// draft untouched and sets the error banner.
func (s *EditService) Submit(ctx context.Context, sel selection.Selection, instruction string, ectx domain.WorksheetEditContext) (domain.WorksheetEdit, error) {
	if strings.TrimSpace(instruction) == "" {
		return domain.WorksheetEdit{}, ErrEmptyInstruction
	}
	key := selection.Key(sel)
	if key == "" {
		return domain.WorksheetEdit{}, ErrNothingSelected
	}

	ctx, span := s.tracer.Start(ctx, "EditService.Submit", trace.WithAttributes(
		attribute.String("worksheet.selection", key),
	))
	defer span.End()

	target, err := s.props.Resolve(sel)
	if err != nil {
		span.RecordError(err)
		return domain.WorksheetEdit{}, err
	}
	cs := s.props.Registry().Get(target.ComponentType)
	if cs == nil {
		return domain.WorksheetEdit{}, fmt.Errorf("%s: %w", target.ComponentType, editor.ErrNoSchema)
	}
	span.SetAttributes(attribute.String("worksheet.component_type", target.ComponentType))

	if !s.gate.TryBegin(key) {
		s.log.Debug("edit rejected, another edit in flight", "selection", key)
		return domain.WorksheetEdit{}, ErrEditInFlight
	}
	applied := false
	s.emitter.Emit(ctx, EventEditingChanged, true)
	defer func() {
		s.gate.Finish(applied)
		s.emitter.Emit(ctx, EventEditingChanged, false)
	}()

	// Everything the gateway sees is captured here, by value.
	req := gateway.Request{
		ComponentType: target.ComponentType,
		Element:       target.Element(),
		Schema:        cs,
		Instruction:   strings.TrimSpace(instruction),
		Context:       ectx,
	}

	res, callErr := s.call(ctx, req)
	record := domain.WorksheetEdit{
		ID:           s.newID(),
		SelectionKey: key,
		Instruction:  instruction,
	}

	failure := ""
	var patch domain.PropertyBag
	switch {
	case callErr != nil:
		failure = callErr.Error()
	case !res.Success:
		failure = res.Error
		if failure == "" {
			failure = "edit failed"
		}
	default:
		patch, failure = s.checkPatch(cs, target.ComponentType, res.Patch.Properties)
	}

	if failure == "" {
		if _, err := s.props.Merge(ctx, target, patch); err != nil {
			failure = err.Error()
		}
	}

	record.Timestamp = s.now()
	if failure == "" {
		applied = true
		record.Success = true
		record.Changes = res.Changes
		if record.Changes == nil {
			record.Changes = []domain.WorksheetEditChange{}
		}
	} else {
		record.Error = failure
		record.Changes = []domain.WorksheetEditChange{}
		span.SetStatus(codes.Error, failure)
	}

	record = s.history.Append(record)
	s.emitter.Emit(ctx, EventHistoryChanged, record)

	if applied {
		if s.drafts != nil {
			s.drafts.OnSubmit(key)
		}
		s.log.Info("edit applied", "selection", key, "edit_id", record.ID, "changes", len(record.Changes))
	} else {
		s.setError(ctx, failure)
		s.log.Warn("edit failed", "selection", key, "edit_id", record.ID, "error", failure)
	}
	return record, nil
}

// SubmitQuickAction runs a pre-canned instruction for the selected
// component type through the same gate as free-text edits.
func (s *EditService) SubmitQuickAction(ctx context.Context, sel selection.Selection, actionID string, ectx domain.WorksheetEditContext) (domain.WorksheetEdit, error) {
	if selection.Key(sel) == "" {
		return domain.WorksheetEdit{}, ErrNothingSelected
	}
	qa, ok := s.props.Registry().QuickAction(sel.ComponentType(), actionID)
	if !ok {
		return domain.WorksheetEdit{}, fmt.Errorf("%w: %s/%s", ErrUnknownQuickAction, sel.ComponentType(), actionID)
	}
	return s.Submit(ctx, sel, qa.Instruction, ectx)
}

// call invokes the gateway and converts a panic into an error.
func (s *EditService) call(ctx context.Context, req gateway.Request) (res gateway.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gateway panic: %v", r)
		}
	}()
	return s.gw.Submit(ctx, req)
}

// checkPatch validates known keys against their definitions under every
// policy and returns the normalized patch. The strict policy also rejects
// keys the schema does not describe.
func (s *EditService) checkPatch(cs *domain.ComponentPropertySchema, componentType string, patch domain.PropertyBag) (domain.PropertyBag, string) {
	checked, err := editor.ValidatePatch(cs, patch)
	if err != nil {
		return nil, err.Error()
	}
	if s.policy != PatchPolicyStrict {
		return checked, ""
	}
	v, err := s.props.Registry().PatchValidator(componentType)
	if err != nil {
		return nil, err.Error()
	}
	if err := v.Validate(patch); err != nil {
		return nil, err.Error()
	}
	return checked, ""
}

func (s *EditService) setError(ctx context.Context, msg string) {
	s.errMu.Lock()
	s.lastErr = msg
	s.errMu.Unlock()
	s.emitter.Emit(ctx, EventErrorChanged, msg)
}

// DismissError clears the error banner.
func (s *EditService) DismissError(ctx context.Context) {
	s.errMu.Lock()
	had := s.lastErr != ""
	s.lastErr = ""
	s.errMu.Unlock()
	if had {
		s.emitter.Emit(ctx, EventErrorChanged, "")
	}
}

// State reports the gate status, last outcome and current error.
func (s *EditService) State() EditState {
	status, key := s.gate.Status()
	s.errMu.Lock()
	msg := s.lastErr
	s.errMu.Unlock()
	return EditState{
		Status:      status,
		Editing:     status == EditSubmitting,
		InFlightKey: key,
		LastOutcome: s.gate.Outcome(),
		Error:       msg,
	}
}

// History returns every record of this session, oldest first.
func (s *EditService) History() []domain.WorksheetEdit {
	return s.history.List()
}

// HistoryFor returns the records made against one selection key.
func (s *EditService) HistoryFor(key string) []domain.WorksheetEdit {
	return s.history.ForSelection(key)
}

// Policy returns the configured patch policy.
func (s *EditService) Policy() PatchPolicy { return s.policy }

// Wait blocks until the in-flight edit, if any, completes or ctx ends.
func (s *EditService) Wait(ctx context.Context) { s.gate.Wait(ctx) }
