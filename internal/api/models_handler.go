package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/morel-ai/morel/internal/catalog"
)

// modelSource is the persistent side of the catalog.
type modelSource interface {
	List(ctx context.Context) ([]catalog.ModelDescriptor, error)
	Upsert(ctx context.Context, input catalog.UpsertModelInput) (*catalog.ModelDescriptor, error)
}

// catalogMetrics is the subset of the metrics surface this handler touches.
type catalogMetrics interface {
	SetCatalogModels(n int)
	IncCatalogRefresh(status string)
}

// modelsHandler serves the model catalog and its admin operations.
type modelsHandler struct {
	catalog *catalog.Catalog
	store   modelSource
	metrics catalogMetrics
}

func newModelsHandler(c *catalog.Catalog, store modelSource, m catalogMetrics) *modelsHandler {
	return &modelsHandler{catalog: c, store: store, metrics: m}
}

// ListModels handles GET /api/v1/models. Models come from the in-memory
// snapshot, so this never touches the database.
func (h *modelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": h.catalog.List(),
	})
}

// GetModel handles GET /api/v1/models/{id}. Model IDs contain slashes
// (provider/name), so callers percent-encode them in the path.
func (h *modelsHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "model id is required")
		return
	}

	m, err := h.catalog.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "model not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpsertModel handles POST /api/v1/admin/models. The model is persisted and
// the in-memory snapshot rebuilt from storage so readers see a consistent set.
func (h *modelsHandler) UpsertModel(w http.ResponseWriter, r *http.Request) {
	var input catalog.UpsertModelInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	m, err := h.store.Upsert(r.Context(), input)
	if err != nil {
		if isCatalogValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to save model")
		return
	}

	if err := h.reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "model saved but catalog reload failed")
		return
	}

	auditLog(r, "upsert", "model", m.ModelID, "provider", m.Provider)

	writeJSON(w, http.StatusCreated, m)
}

// RefreshCatalog handles POST /api/v1/admin/catalog/refresh. It rebuilds the
// live snapshot from storage; on failure the previous snapshot stays active.
func (h *modelsHandler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.reload(r.Context()); err != nil {
		if h.metrics != nil {
			h.metrics.IncCatalogRefresh("error")
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "catalog refresh failed")
		return
	}

	if h.metrics != nil {
		h.metrics.IncCatalogRefresh("ok")
	}

	auditLog(r, "refresh", "catalog", "")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"models": h.catalog.Len(),
	})
}

func (h *modelsHandler) reload(ctx context.Context) error {
	models, err := h.store.List(ctx)
	if err != nil {
		return err
	}
	if err := h.catalog.Replace(models); err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.SetCatalogModels(h.catalog.Len())
	}
	return nil
}

// isCatalogValidationError checks whether the error is a known validation
// error from the catalog.
func isCatalogValidationError(err error) bool {
	return errors.Is(err, catalog.ErrModelIDRequired) ||
		errors.Is(err, catalog.ErrNegativeCost) ||
		errors.Is(err, catalog.ErrContextWindowZero)
}
