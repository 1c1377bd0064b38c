package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"productshot/internal/domain"
	"productshot/pkg/zip"
)

// ListRenderAssets returns metadata for every asset a job produced.
func (a *App) ListRenderAssets(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	if _, err := a.Jobs.Get(r.Context(), jobID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	assets, err := a.Assets.ListByJob(r.Context(), jobID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load assets")
		return
	}

	items := make([]map[string]any, 0, len(assets))
	for _, asset := range assets {
		item := map[string]any{
			"id":          asset.ID,
			"kind":        string(asset.Kind),
			"storage_key": asset.StorageKey,
			"mime":        asset.MIME,
			"bytes":       asset.Bytes,
			"width":       asset.Width,
			"height":      asset.Height,
			"properties":  json.RawMessage(asset.Properties),
			"created_at":  asset.CreatedAt,
		}
		if url, err := a.Store.DownloadURL(r.Context(), asset.StorageKey); err == nil && url != "" {
			item["download_url"] = url
		}
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// DownloadAsset streams the asset bytes. Backends with presigned URLs get
// a redirect instead of a proxy copy.
func (a *App) DownloadAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")
	if assetID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	asset, err := a.Assets.Get(r.Context(), assetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "asset not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load asset")
		return
	}

	if url, err := a.Store.DownloadURL(r.Context(), asset.StorageKey); err == nil && url != "" {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}

	data, err := a.Store.Read(r.Context(), asset.StorageKey)
	if err != nil {
		a.Log.Error().Err(err).Str("key", asset.StorageKey).Msg("assets: read failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read asset")
		return
	}
	w.Header().Set("Content-Type", asset.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", path.Base(asset.StorageKey)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ArchiveRender bundles the deliverable assets of a job into a zip.
func (a *App) ArchiveRender(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	if _, err := a.Jobs.Get(r.Context(), jobID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	assets, err := a.Assets.ListResultsByJob(r.Context(), jobID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load assets")
		return
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no results to archive")
		return
	}

	entries := make([]zip.Asset, 0, len(assets))
	for _, asset := range assets {
		data, err := a.Store.Read(r.Context(), asset.StorageKey)
		if err != nil {
			a.Log.Warn().Err(err).Str("key", asset.StorageKey).Msg("archive: skipping unreadable asset")
			continue
		}
		entries = append(entries, zip.Asset{
			Filename: path.Base(asset.StorageKey),
			MIME:     asset.MIME,
			Data:     data,
		})
	}
	archive := zip.ArchiveAssets(entries)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=render-%s.zip", jobID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
