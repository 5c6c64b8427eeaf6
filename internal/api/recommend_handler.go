package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/morel-ai/morel/internal/analysis"
	"github.com/morel-ai/morel/internal/catalog"
	"github.com/morel-ai/morel/internal/classify"
	"github.com/morel-ai/morel/internal/recommend"
)

// maxPromptSize caps prompt length for analysis (64 KB of text).
const maxPromptSize = 64 << 10

// recommendHandler serves model routing suggestions.
type recommendHandler struct {
	catalog     *catalog.Catalog
	scorer      *recommend.Scorer
	metrics     recommendMetrics
	defaultTopN int
}

// recommendMetrics is the subset of the metrics surface this handler touches.
type recommendMetrics interface {
	IncRecommendation(taskType, complexity string)
	ObserveRecommendationDuration(seconds float64)
}

func newRecommendHandler(c *catalog.Catalog, scorer *recommend.Scorer, m recommendMetrics, defaultTopN int) *recommendHandler {
	if defaultTopN <= 0 {
		defaultTopN = recommend.DefaultTopN
	}
	return &recommendHandler{catalog: c, scorer: scorer, metrics: m, defaultTopN: defaultTopN}
}

type recommendRequest struct {
	Prompt      string                `json:"prompt"`
	TopN        int                   `json:"top_n"`
	Preferences recommend.Preferences `json:"preferences"`
}

type recommendationView struct {
	ModelID   string      `json:"model_id"`
	Score     float64     `json:"score"`
	Reasoning string      `json:"reasoning"`
	Pricing   pricingView `json:"pricing"`
}

type pricingView struct {
	InputCostPerMTok  float64 `json:"input_cost_per_mtok"`
	OutputCostPerMTok float64 `json:"output_cost_per_mtok"`
}

type recommendResponse struct {
	Complexity      analysis.Assessment  `json:"complexity"`
	TaskType        classify.TaskType    `json:"task_type"`
	Recommendations []recommendationView `json:"recommendations"`
}

// Recommend handles POST /api/v1/recommend.
func (h *recommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "prompt is required")
		return
	}
	if len(req.Prompt) > maxPromptSize {
		writeError(w, http.StatusRequestEntityTooLarge, "prompt_too_large", "prompt exceeds maximum size")
		return
	}

	topN := req.TopN
	if topN == 0 {
		topN = h.defaultTopN
	}

	start := time.Now()
	assessment := analysis.Assess(req.Prompt)
	task := classify.Classify(req.Prompt)

	recs, err := h.scorer.Recommend(assessment, task, req.Preferences, topN)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidTopN) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to score models")
		return
	}

	if h.metrics != nil {
		h.metrics.IncRecommendation(string(task), string(assessment.Bucket))
		h.metrics.ObserveRecommendationDuration(time.Since(start).Seconds())
	}

	views := make([]recommendationView, 0, len(recs))
	for _, rec := range recs {
		view := recommendationView{
			ModelID:   rec.ModelID,
			Score:     rec.Score,
			Reasoning: rec.Reasoning,
		}
		if m, err := h.catalog.Get(rec.ModelID); err == nil {
			view.Pricing = pricingView{
				InputCostPerMTok:  m.InputCostPerMTok,
				OutputCostPerMTok: m.OutputCostPerMTok,
			}
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, recommendResponse{
		Complexity:      assessment,
		TaskType:        task,
		Recommendations: views,
	})
}
