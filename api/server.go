/*
Package api exposes a local, single-user control and snapshot surface
over the timer engine, gamification ledger and plan validator. It is
explicitly not the out-of-scope multi-device HTTP sync backend: no auth,
no per-request user resolution, one engine instance bound at startup.

Router and middleware follow the teacher's api/server.go: chi, with
Logger/Recoverer/RequestID and a permissive local CORS policy for a
same-machine frontend, plus the same static-file-serving fallback for a
built frontend bundle.
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured. reg may be
// nil to skip mounting /metrics (e.g. in tests).
func NewRouter(h *Handler, reg *prometheus.Registry) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", h.GetSnapshot)
		r.Get("/preview", h.GetPreview)
		r.Get("/warnings", h.GetWarnings)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", h.AddTask)
			r.Put("/{id}", h.UpdateTask)
			r.Delete("/{id}", h.RemoveTask)
			r.Post("/{id}/activate", h.ActivateTask)
			r.Post("/{id}/complete", h.CompleteTask)
			r.Post("/{id}/skip", h.SkipTask)
			r.Post("/{id}/carry-over", h.CarryOverTask)
		})
		r.Post("/deactivate", h.Deactivate)

		r.Get("/balance", h.GetBalance)
		r.Get("/rewards/{id}", h.GetReward)
		r.Post("/rewards/{id}/purchase", h.PurchaseReward)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
	})

	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	// Serve static files (a built frontend), falling back to a plain
	// landing page when none is present.
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Day Clock</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Day Clock API</h1>
<p>The frontend is not built yet.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/snapshot">/api/snapshot</a> - Current day snapshot</li>
<li><a href="/api/preview">/api/preview</a> - Day coin preview</li>
<li><a href="/api/balance">/api/balance</a> - Coin balance</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
