// Package usage records and queries the durable accounting trail: one event
// per completed inference, priced from the catalog snapshot at record time.
package usage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/morel-ai/morel/internal/catalog"
)

// Validation errors returned by the Recorder before any write happens.
var (
	ErrUserRequired    = errors.New("user_id is required")
	ErrNegativeTokens  = errors.New("token counts must be >= 0")
	ErrNegativeLatency = errors.New("latency_ms must be >= 0")
	ErrDuplicateEvent  = errors.New("event already recorded")
)

// EventInserter is the interface used by Recorder to persist events. It
// exists to allow testing without a real database.
type EventInserter interface {
	Insert(ctx context.Context, e Event) error
}

// RecordInput holds the caller-supplied fields for one inference.
// RequestID, when set, becomes the event ID so that a retried recording of
// the same inference is deduplicated at the storage layer.
type RecordInput struct {
	RequestID    string `json:"request_id,omitempty"`
	UserID       string `json:"user_id"`
	ModelID      string `json:"model_id"`
	Module       string `json:"module,omitempty"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	Cached       bool   `json:"cached"`
	LatencyMs    int64  `json:"latency_ms"`
}

// Recorder prices and persists usage events. One durable write per call;
// storage errors propagate to the caller, who owns the retry policy.
type Recorder struct {
	catalog    *catalog.Catalog
	store      EventInserter
	cachedFree bool
	now        func() time.Time // injectable clock for testing
}

// NewRecorder creates a Recorder. When cachedFree is true, events flagged as
// cache hits are recorded at zero cost.
func NewRecorder(c *catalog.Catalog, store EventInserter, cachedFree bool) *Recorder {
	return &Recorder{
		catalog:    c,
		store:      store,
		cachedFree: cachedFree,
		now:        time.Now,
	}
}

// Record validates the input, resolves the model's current pricing, computes
// the cost, and persists exactly one event. An unknown model fails with
// catalog.ErrModelNotFound before anything is written, so no event with a
// dangling model reference ever reaches storage.
func (r *Recorder) Record(ctx context.Context, in RecordInput) (*Event, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, ErrUserRequired
	}
	if in.InputTokens < 0 || in.OutputTokens < 0 {
		return nil, ErrNegativeTokens
	}
	if in.LatencyMs < 0 {
		return nil, ErrNegativeLatency
	}

	model, err := r.catalog.Get(in.ModelID)
	if err != nil {
		return nil, err
	}

	eventID := in.RequestID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	e := Event{
		EventID:      eventID,
		UserID:       in.UserID,
		ModelID:      model.ModelID,
		Module:       in.Module,
		InputTokens:  in.InputTokens,
		OutputTokens: in.OutputTokens,
		Cost:         r.cost(model, in),
		Cached:       in.Cached,
		LatencyMs:    in.LatencyMs,
		Timestamp:    r.now().UTC(),
	}

	if err := r.store.Insert(ctx, e); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			return nil, fmt.Errorf("event %q: %w", eventID, ErrDuplicateEvent)
		}
		return nil, fmt.Errorf("persisting usage event: %w", err)
	}
	return &e, nil
}

// cost applies the pricing snapshot: tokens/1e6 times the per-million rate,
// zero for cache hits when the cached-free policy is on.
func (r *Recorder) cost(m catalog.ModelDescriptor, in RecordInput) float64 {
	if in.Cached && r.cachedFree {
		return 0
	}
	return float64(in.InputTokens)/1e6*m.InputCostPerMTok +
		float64(in.OutputTokens)/1e6*m.OutputCostPerMTok
}
