// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"productshot/internal/adapter/repo"
	"productshot/internal/infra"
	"productshot/internal/prompt"
	"productshot/internal/storage"
)

// App bundles the dependencies every handler needs.
type App struct {
	SQL     infra.SQLExecutor
	Jobs    *repo.RenderRepo
	Assets  *repo.AssetRepo
	Store   storage.Store
	Presets *prompt.PresetLibrary
	Log     infra.Logger
	Config  *infra.Config
}

// NewApp wires the repositories over the shared SQL executor.
func NewApp(sql infra.SQLExecutor, store storage.Store, presets *prompt.PresetLibrary, log infra.Logger, cfg *infra.Config) *App {
	return &App{
		SQL:     sql,
		Jobs:    repo.NewRenderRepo(sql),
		Assets:  repo.NewAssetRepo(sql),
		Store:   store,
		Presets: presets,
		Log:     log,
		Config:  cfg,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{
		"error":   kind,
		"message": message,
	})
}
