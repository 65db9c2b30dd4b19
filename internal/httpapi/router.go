// Package httpapi wires the two external endpoints spec.md §6 describes
// onto a chi.Router, the teacher's routing library (cmd/chrc/main.go). Per
// spec.md this layer is a thin pass-through: handlers decode the wire
// format, call into internal/submit or internal/store, and map domain
// errors onto status codes — no business logic lives here.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/dms-submission/internal/auth"
	"github.com/hazyhaar/dms-submission/internal/store"
	"github.com/hazyhaar/dms-submission/internal/submit"
)

// Config wires the router's collaborators.
type Config struct {
	Pipeline       *submit.Pipeline
	Store          *store.Store
	AuthToken      string
	AuthOwner      string
	Logger         *slog.Logger
	MaxRequestBody int64
	RequestTimeout time.Duration
}

const defaultMaxRequestBody = 64 << 20 // 64MiB, well above any one PDF submission.
const defaultRequestTimeout = 30 * time.Second

// NewRouter builds the chi.Router serving the submit and SDES-callback
// endpoints, matching cmd/chrc/main.go's chi.NewRouter + r.Use(...) shape.
func NewRouter(cfg Config) chi.Router {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	maxBody := cfg.MaxRequestBody
	if maxBody <= 0 {
		maxBody = defaultMaxRequestBody
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(timeout))

	h := &handlers{
		pipeline: cfg.Pipeline,
		store:    cfg.Store,
		logger:   log,
		maxBody:  maxBody,
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.AuthToken, cfg.AuthOwner))
		r.Post("/dms-submission/submit", h.submit)
	})

	// The SDES callback is an inbound notification from SDES itself, not
	// from the submitting client, so it sits outside the bearer-token
	// check guarding the submit endpoint.
	r.Post("/sdes-callback", h.sdesCallback)

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
