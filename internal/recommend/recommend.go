// Package recommend ranks catalog models for a prompt by combining capability
// match, complexity fit, and a per-request cost term. The scorer is pure and
// stateless: safe to call concurrently, idempotent for identical input.
package recommend

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/morel-ai/morel/internal/analysis"
	"github.com/morel-ai/morel/internal/catalog"
	"github.com/morel-ai/morel/internal/classify"
)

// DefaultTopN is used when the caller does not specify a result count.
const DefaultTopN = 3

// DefaultCostSensitivity balances the cost term against capability fit when
// the caller expresses no preference.
const DefaultCostSensitivity = 0.5

// ErrInvalidTopN rejects non-positive result counts.
var ErrInvalidTopN = errors.New("top_n must be a positive integer")

// Preferences are caller-supplied routing constraints and weights.
// RequiredCapabilities and MinContextWindow are hard filters: a model that
// misses them is excluded entirely, never merely penalized.
type Preferences struct {
	CostSensitivity      *float64 `json:"cost_sensitivity,omitempty"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
	MinContextWindow     int      `json:"min_context_window,omitempty"`
}

// costWeight resolves the effective cost sensitivity, clamped to [0,1].
func (p Preferences) costWeight() float64 {
	w := DefaultCostSensitivity
	if p.CostSensitivity != nil {
		w = *p.CostSensitivity
	}
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// Recommendation is one scored, explained candidate. Scores are comparable
// only across recommendations produced for the same request.
type Recommendation struct {
	ModelID   string  `json:"model_id"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// taskCapabilities maps each task type to the capability tags that indicate a
// good fit for it.
var taskCapabilities = map[classify.TaskType][]string{
	classify.TaskCodeGeneration:  {"code"},
	classify.TaskDataAnalysis:    {"reasoning"},
	classify.TaskSummarization:   {"chat", "long-context"},
	classify.TaskCreativeWriting: {"chat"},
	classify.TaskQuestionAnswer:  {"chat"},
	classify.TaskOther:           {"chat"},
}

// Scorer ranks models from a catalog generation.
type Scorer struct {
	catalog *catalog.Catalog
}

// NewScorer creates a Scorer reading from the given catalog.
func NewScorer(c *catalog.Catalog) *Scorer {
	return &Scorer{catalog: c}
}

// Recommend returns up to topN models ranked for the assessed prompt,
// strictly descending by score with deterministic tie-breaking (lower input
// cost, then registry insertion order). Zero eligible models yields an empty
// slice, not an error.
func (s *Scorer) Recommend(assessment analysis.Assessment, task classify.TaskType, prefs Preferences, topN int) ([]Recommendation, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("top_n %d: %w", topN, ErrInvalidTopN)
	}

	// Hard filter: required capabilities and minimum context window.
	type candidate struct {
		model catalog.ModelDescriptor
		index int // registry insertion order
	}
	var candidates []candidate
	for i, m := range s.catalog.List() {
		if m.ContextWindow < prefs.MinContextWindow {
			continue
		}
		if !hasAllCapabilities(m, prefs.RequiredCapabilities) {
			continue
		}
		candidates = append(candidates, candidate{model: m, index: i})
	}
	if len(candidates) == 0 {
		return []Recommendation{}, nil
	}

	// Cost normalization is relative to the surviving set only.
	minCost, maxCost := blendedCost(candidates[0].model), blendedCost(candidates[0].model)
	maxCtx := candidates[0].model.ContextWindow
	for _, c := range candidates[1:] {
		cost := blendedCost(c.model)
		if cost < minCost {
			minCost = cost
		}
		if cost > maxCost {
			maxCost = cost
		}
		if c.model.ContextWindow > maxCtx {
			maxCtx = c.model.ContextWindow
		}
	}

	w := prefs.costWeight()
	desired := taskCapabilities[task]

	recs := make([]Recommendation, 0, len(candidates))
	indexOf := make(map[string]int, len(candidates))
	inputCostOf := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		capFit, matched := capabilityFit(c.model, desired)
		cFit := complexityFit(c.model, assessment.Bucket, maxCtx)
		fit := (capFit + cFit) / 2

		costNorm := 1.0
		if maxCost > minCost {
			costNorm = (maxCost - blendedCost(c.model)) / (maxCost - minCost)
		}

		score := (1-w)*fit + w*costNorm

		recs = append(recs, Recommendation{
			ModelID:   c.model.ModelID,
			Score:     score,
			Reasoning: buildReasoning(c.model, task, assessment.Bucket, matched, w, fit, costNorm),
		})
		indexOf[c.model.ModelID] = c.index
		inputCostOf[c.model.ModelID] = c.model.InputCostPerMTok
	}

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if inputCostOf[a.ModelID] != inputCostOf[b.ModelID] {
			return inputCostOf[a.ModelID] < inputCostOf[b.ModelID]
		}
		return indexOf[a.ModelID] < indexOf[b.ModelID]
	})

	if len(recs) > topN {
		recs = recs[:topN]
	}
	return recs, nil
}

// blendedCost is the combined per-million-token price used for the cost term.
func blendedCost(m catalog.ModelDescriptor) float64 {
	return m.InputCostPerMTok + m.OutputCostPerMTok
}

func hasAllCapabilities(m catalog.ModelDescriptor, required []string) bool {
	for _, tag := range required {
		if !m.HasCapability(tag) {
			return false
		}
	}
	return true
}

// capabilityFit returns the fraction of task-relevant tags the model carries
// and the list of tags it matched. No task-relevant tags yields a neutral 0.5.
func capabilityFit(m catalog.ModelDescriptor, desired []string) (float64, []string) {
	if len(desired) == 0 {
		return 0.5, nil
	}
	var matched []string
	for _, tag := range desired {
		if m.HasCapability(tag) {
			matched = append(matched, tag)
		}
	}
	return float64(len(matched)) / float64(len(desired)), matched
}

// complexityFit favors reasoning-tagged and large-context models as prompt
// difficulty grows. Bounded to [0,1] and monotone in context window.
func complexityFit(m catalog.ModelDescriptor, bucket analysis.Bucket, maxCtx int) float64 {
	switch bucket {
	case analysis.BucketComplex:
		if m.HasCapability("reasoning") {
			return 1
		}
		return 0.6 * float64(m.ContextWindow) / float64(maxCtx)
	case analysis.BucketModerate:
		if m.HasCapability("reasoning") || m.ContextWindow == maxCtx {
			return 0.8
		}
		return 0.6
	default:
		return 0.5
	}
}

// buildReasoning names the dominant contributing factors: at minimum which
// capabilities matched and whether cost or fit drove the ranking.
func buildReasoning(m catalog.ModelDescriptor, task classify.TaskType, bucket analysis.Bucket, matched []string, w, fit, costNorm float64) string {
	var parts []string

	if len(matched) > 0 {
		parts = append(parts, fmt.Sprintf("matches %s capability for %s", strings.Join(matched, ", "), task))
	} else {
		parts = append(parts, fmt.Sprintf("no task-specific capability match for %s", task))
	}

	if bucket == analysis.BucketComplex && m.HasCapability("reasoning") {
		parts = append(parts, "reasoning model suits a complex prompt")
	}

	if w*costNorm > (1-w)*fit {
		if costNorm == 1 {
			parts = append(parts, "cheapest eligible model")
		} else {
			parts = append(parts, fmt.Sprintf("low cost ($%.2f/M input tokens)", m.InputCostPerMTok))
		}
	} else {
		parts = append(parts, "ranked on capability fit over cost")
	}

	return strings.Join(parts, "; ")
}
