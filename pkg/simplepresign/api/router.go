package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// RouterConfig wires the HTTP surface of the service
type RouterConfig struct {
	Service        simplepresign.Service
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set
	Metrics http.Handler
	// RequestTimeout bounds each request; zero means 30s
	RequestTimeout time.Duration
}

// NewRouter builds the chi router serving /presign and the health endpoints.
func NewRouter(cfg RouterConfig) chi.Router {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	r.MethodNotAllowed(MethodNotAllowed)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not Found")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Get("/healthz/ready", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Service == nil || cfg.Service.Backend() == nil {
			writeError(w, r, http.StatusServiceUnavailable, "not ready")
			return
		}
		render.JSON(w, r, map[string]string{
			"status":  "ready",
			"backend": cfg.Service.Backend().Name(),
		})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Mount("/presign", NewPresignHandler(cfg.Service).Routes())

	return r
}
