// Package catalog holds the model registry: the set of inference backends the
// router may recommend, with their capabilities, context windows, and
// per-token pricing.
//
// The catalog is immutable per generation. Readers get a consistent snapshot
// without locking; a refresh replaces the whole snapshot atomically so no
// reader ever observes a half-updated set.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// Validation errors returned when building a catalog snapshot.
var (
	ErrModelNotFound     = errors.New("model not found")
	ErrModelIDRequired   = errors.New("model_id is required")
	ErrDuplicateModelID  = errors.New("model_id is not unique")
	ErrNegativeCost      = errors.New("token costs must be >= 0")
	ErrContextWindowZero = errors.New("context_window must be > 0")
)

// snapshot is one immutable generation of the catalog.
type snapshot struct {
	models []ModelDescriptor // insertion order
	byID   map[string]int    // model_id -> index into models
}

// Catalog provides lock-free reads over an atomically replaceable model set.
type Catalog struct {
	current atomic.Pointer[snapshot]
}

// New builds a Catalog from the given descriptors. The slice order defines
// the registry insertion order used for deterministic tie-breaking.
func New(models []ModelDescriptor) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(models); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace validates the new model set and swaps it in atomically. On
// validation failure the previous generation stays in place.
func (c *Catalog) Replace(models []ModelDescriptor) error {
	snap, err := buildSnapshot(models)
	if err != nil {
		return err
	}
	c.current.Store(snap)
	return nil
}

// List returns all models in insertion order. The returned slice is a copy;
// callers may not mutate catalog state through it.
func (c *Catalog) List() []ModelDescriptor {
	snap := c.current.Load()
	out := make([]ModelDescriptor, len(snap.models))
	copy(out, snap.models)
	return out
}

// Get returns the descriptor for modelID or ErrModelNotFound.
func (c *Catalog) Get(modelID string) (ModelDescriptor, error) {
	snap := c.current.Load()
	i, ok := snap.byID[modelID]
	if !ok {
		return ModelDescriptor{}, fmt.Errorf("model %q: %w", modelID, ErrModelNotFound)
	}
	return snap.models[i], nil
}

// Len returns the number of models in the current generation.
func (c *Catalog) Len() int {
	return len(c.current.Load().models)
}

func buildSnapshot(models []ModelDescriptor) (*snapshot, error) {
	snap := &snapshot{
		models: make([]ModelDescriptor, len(models)),
		byID:   make(map[string]int, len(models)),
	}
	copy(snap.models, models)

	for i, m := range snap.models {
		if err := validateDescriptor(m); err != nil {
			return nil, err
		}
		if _, dup := snap.byID[m.ModelID]; dup {
			return nil, fmt.Errorf("model %q: %w", m.ModelID, ErrDuplicateModelID)
		}
		snap.byID[m.ModelID] = i
	}
	return snap, nil
}

// validateDescriptor checks the invariants every catalog entry must hold.
func validateDescriptor(m ModelDescriptor) error {
	if strings.TrimSpace(m.ModelID) == "" {
		return ErrModelIDRequired
	}
	if m.InputCostPerMTok < 0 || m.OutputCostPerMTok < 0 {
		return fmt.Errorf("model %q: %w", m.ModelID, ErrNegativeCost)
	}
	if m.ContextWindow <= 0 {
		return fmt.Errorf("model %q: %w", m.ModelID, ErrContextWindowZero)
	}
	return nil
}
