package handlers

import "net/http"

// ListPresets returns the style presets available for render specs.
func (a *App) ListPresets(w http.ResponseWriter, r *http.Request) {
	if a.Presets == nil {
		a.json(w, http.StatusOK, map[string]any{"items": []any{}})
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": a.Presets.List()})
}
