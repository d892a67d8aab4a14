package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
)

// StateSource reports the lifecycle of the serving process.
type StateSource interface {
	StateName() string
	InFlight() int64
}

// Config holds the handler dependencies. Every field is optional.
type Config struct {
	Mapper  *domain.Mapper
	Metrics http.Handler
	State   StateSource
}

// Handler is the example route table.
type Handler struct {
	mapper  *domain.Mapper
	metrics http.Handler
	state   StateSource
	mux     *http.ServeMux
}

// New creates a Handler with its routes registered.
func New(cfg Config) *Handler {
	h := &Handler{
		mapper:  cfg.Mapper,
		metrics: cfg.Metrics,
		state:   cfg.State,
		mux:     http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /{$}", h.handleRoot)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.HandleFunc("GET /version", h.handleVersion)
	h.mux.HandleFunc("GET /time", h.handleTime)
	h.mux.HandleFunc("GET /error", h.handleError)
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics)
	}
	h.mux.HandleFunc("/", h.handleNotFound)
}

// writeJSON writes a JSON response with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	response := NewResponse(logger.RequestIDFromContext(r.Context()), data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.L(r.Context()).Error("failed to encode response", "error", err)
	}
}

// writeError writes the mapped error body for err.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := h.mapper.Map(err)
	if resp.Status >= http.StatusInternalServerError {
		logger.L(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}

	body := resp.JSON()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("X-Error-Kind", resp.Kind.String())
	w.WriteHeader(resp.Status)
	w.Write(body)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, domain.New(domain.KindNotFound, "no route for "+r.Method+" "+r.URL.Path))
}
