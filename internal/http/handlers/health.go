package handlers

import "net/http"

// Health reports service liveness plus the queue depth per status. Queue
// counts are best effort; a database hiccup does not fail the probe.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if counts, err := a.Jobs.CountByStatus(r.Context()); err == nil {
		queue := make(map[string]int, len(counts))
		for status, n := range counts {
			queue[string(status)] = n
		}
		body["queue"] = queue
	}
	a.json(w, http.StatusOK, body)
}
