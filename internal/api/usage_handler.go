package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/morel-ai/morel/internal/catalog"
	"github.com/morel-ai/morel/internal/report"
	"github.com/morel-ai/morel/internal/usage"
)

// eventRecorder is the subset of the usage recorder this handler needs.
type eventRecorder interface {
	Record(ctx context.Context, in usage.RecordInput) (*usage.Event, error)
}

// usageMetrics is the subset of the metrics surface this handler touches.
type usageMetrics interface {
	IncEventRecorded(modelID, module string, cost float64)
	IncDuplicateEvent()
	IncExport(format string)
}

// usageHandler groups usage accounting and reporting HTTP handlers.
type usageHandler struct {
	recorder   eventRecorder
	aggregator *report.Aggregator
	metrics    usageMetrics
}

func newUsageHandler(recorder eventRecorder, agg *report.Aggregator, m usageMetrics) *usageHandler {
	return &usageHandler{recorder: recorder, aggregator: agg, metrics: m}
}

// RecordEvent handles POST /api/v1/usage.
func (h *usageHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var in usage.RecordInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	event, err := h.recorder.Record(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, usage.ErrDuplicateEvent):
			if h.metrics != nil {
				h.metrics.IncDuplicateEvent()
			}
			writeError(w, http.StatusConflict, "duplicate_event", "an event with this request id already exists")
		case errors.Is(err, catalog.ErrModelNotFound):
			writeError(w, http.StatusUnprocessableEntity, "unknown_model", "model id is not in the catalog")
		case errors.Is(err, usage.ErrUserRequired),
			errors.Is(err, usage.ErrNegativeTokens),
			errors.Is(err, usage.ErrNegativeLatency):
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to record usage event")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.IncEventRecorded(event.ModelID, event.Module, event.Cost)
	}

	writeJSON(w, http.StatusCreated, event)
}

// parseReportWindow reads from/to day params, defaulting to the last 30 days.
func parseReportWindow(r *http.Request, now time.Time) (report.Range, error) {
	today := now.UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -29)
	to := today

	if s := r.URL.Query().Get("from"); s != "" {
		d, err := report.ParseDay(s)
		if err != nil {
			return report.Range{}, err
		}
		from = d
	}
	if s := r.URL.Query().Get("to"); s != "" {
		d, err := report.ParseDay(s)
		if err != nil {
			return report.Range{}, err
		}
		to = d
	}

	return report.NewRange(from, to)
}

func reportFilter(r *http.Request) report.Filter {
	return report.Filter{
		UserID:  r.URL.Query().Get("user_id"),
		ModelID: r.URL.Query().Get("model_id"),
		Module:  r.URL.Query().Get("module"),
	}
}

func writeReportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, report.ErrBadDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, report.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", "end date must not be before start date")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build usage report")
	}
}

// GetSummary handles GET /api/v1/usage/summary.
func (h *usageHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	window, err := parseReportWindow(r, time.Now())
	if err != nil {
		writeReportError(w, err)
		return
	}

	summary, err := h.aggregator.Summarize(r.Context(), window, reportFilter(r))
	if err != nil {
		writeReportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":    window.From.Format("2006-01-02"),
		"to":      window.To.Format("2006-01-02"),
		"summary": summary,
	})
}

// GetModuleBreakdown handles GET /api/v1/usage/modules.
func (h *usageHandler) GetModuleBreakdown(w http.ResponseWriter, r *http.Request) {
	window, err := parseReportWindow(r, time.Now())
	if err != nil {
		writeReportError(w, err)
		return
	}

	rows, err := h.aggregator.ModuleBreakdown(r.Context(), window, reportFilter(r))
	if err != nil {
		writeReportError(w, err)
		return
	}
	if rows == nil {
		rows = []usage.ModuleCost{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":    window.From.Format("2006-01-02"),
		"to":      window.To.Format("2006-01-02"),
		"modules": rows,
	})
}

// GetResearcherBreakdown handles GET /api/v1/usage/researchers.
func (h *usageHandler) GetResearcherBreakdown(w http.ResponseWriter, r *http.Request) {
	window, err := parseReportWindow(r, time.Now())
	if err != nil {
		writeReportError(w, err)
		return
	}

	rows, err := h.aggregator.ResearcherBreakdown(r.Context(), window, reportFilter(r))
	if err != nil {
		writeReportError(w, err)
		return
	}
	if rows == nil {
		rows = []usage.ResearcherCost{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":        window.From.Format("2006-01-02"),
		"to":          window.To.Format("2006-01-02"),
		"researchers": rows,
	})
}

// Export handles GET /api/v1/usage/export. The format query param selects
// csv (default) or json; the response carries a download filename.
func (h *usageHandler) Export(w http.ResponseWriter, r *http.Request) {
	window, err := parseReportWindow(r, time.Now())
	if err != nil {
		writeReportError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = report.FormatCSV
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case report.FormatCSV:
		data, err = h.aggregator.ExportCSV(r.Context(), window, reportFilter(r))
		contentType = "text/csv"
	case report.FormatJSON:
		data, err = h.aggregator.ExportJSON(r.Context(), window, reportFilter(r))
		contentType = "application/json"
	default:
		writeError(w, http.StatusBadRequest, "invalid_format", "format must be csv or json")
		return
	}
	if err != nil {
		writeReportError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.IncExport(format)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(window, format)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
