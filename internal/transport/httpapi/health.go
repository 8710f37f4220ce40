package httpapi

import (
	"context"
	"net/http"
	"time"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// RegisterHealth mounts /healthz, which always answers 200, and /readyz,
// which answers 503 with the failing checks when any dependency is down.
func RegisterHealth(mux *http.ServeMux, checks ...ReadyCheck) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				failed[c.Name] = err.Error()
			}
		}
		if len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}
