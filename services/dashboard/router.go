package dashboard

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentdash/infra/assets"
	"agentdash/pkg/telemetry"
)

// requestTimeout bounds every route except the event stream.
const requestTimeout = 60 * time.Second

// Router builds the HTTP router with pages, actions, the agent stream, static
// assets, health checks and Prometheus metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(telemetry.Middleware(ServiceName, s.log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Method(http.MethodGet, "/internal/metrics", promhttp.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(assets.Files))))

	// The stream lives as long as the browser keeps the page open.
	r.Get("/agents/stream", s.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/agents", http.StatusMovedPermanently)
		})
		r.Get("/agents", s.handleAgents)
		r.Get("/agents/{id}", s.handleAgent)
		r.Get("/tasks", s.handleTasks)
		r.Get("/tasks/{id}", s.handleTask)
		r.Get("/metrics", s.handleMetrics)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
			r.Post("/agents/refresh", s.handleAgentsRefresh)
			r.Post("/agents/{id}/delete", s.handleAgentDelete)
			r.Post("/tasks", s.handleCreateTask)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "Page not found", "Nothing lives at "+r.URL.Path+".")
	})

	return r
}
