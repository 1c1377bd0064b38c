package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"productshot/internal/domain"
	"productshot/internal/middleware"
)

// CreateRender validates the render spec and queues a job for the worker.
func (a *App) CreateRender(w http.ResponseWriter, r *http.Request) {
	var spec domain.RenderSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	spec.Normalize(middleware.LocaleFromContext(r.Context()))
	if err := spec.Validate(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if spec.StylePreset != "" && a.Presets != nil {
		if _, ok := a.Presets.Get(spec.StylePreset); !ok {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown style preset")
			return
		}
	}

	source, err := a.Assets.Get(r.Context(), spec.SourceAssetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "source asset not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load source asset")
		return
	}
	if source.Kind != domain.AssetKindSource {
		a.error(w, http.StatusBadRequest, "bad_request", "asset is not an uploaded source image")
		return
	}

	specJSON, err := json.Marshal(spec)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to encode spec")
		return
	}
	jobID, err := a.Jobs.Enqueue(r.Context(), domain.NormalizeMode(spec.Mode), specJSON)
	if err != nil {
		a.Log.Error().Err(err).Msg("renders: enqueue failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": string(domain.JobStatusQueued),
		"mode":   spec.Mode,
	})
}

// GetRender returns the job's lifecycle state and, once finished, its spec
// and error message.
func (a *App) GetRender(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	job, err := a.Jobs.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":         job.ID,
		"status":     string(job.Status),
		"mode":       string(job.Mode),
		"spec":       json.RawMessage(job.SpecJSON),
		"error":      job.ErrorMessage,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	})
}
