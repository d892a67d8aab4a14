package localserver

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/srvboot-go/internal/infra/buildinfo"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
)

// StateResponse is returned by GET /state.
type StateResponse struct {
	State     string         `json:"state" yaml:"state"`
	InFlight  int64          `json:"in_flight" yaml:"in_flight"`
	Addr      string         `json:"addr" yaml:"addr"`
	PID       int            `json:"pid" yaml:"pid"`
	Uptime    string         `json:"uptime" yaml:"uptime"`
	LogLevel  string         `json:"log_level" yaml:"log_level"`
	BuildInfo buildinfo.Info `json:"build" yaml:"build"`
}

// ShutdownResponse is returned by POST /shutdown.
type ShutdownResponse struct {
	Accepted bool   `json:"accepted" yaml:"accepted"`
	Grace    string `json:"grace,omitempty" yaml:"grace,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /shutdown", s.handleShutdown)
	mux.HandleFunc("PUT /log-level", s.handleLogLevel)
	return mux
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	resp := StateResponse{
		PID:       os.Getpid(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		LogLevel:  logger.GetLevel(),
		BuildInfo: buildinfo.Get(),
	}
	if s.ctrl != nil {
		resp.State = s.ctrl.StateName()
		resp.InFlight = s.ctrl.InFlight()
		if addr := s.ctrl.Addr(); addr != nil {
			resp.Addr = addr.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleShutdown accepts an optional grace query parameter, e.g.
// POST /shutdown?grace=5s.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	var grace time.Duration
	if v := r.URL.Query().Get("grace"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid grace duration"})
			return
		}
		grace = d
	}
	if s.shutdown == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "shutdown not available"})
		return
	}

	if !s.shutdown(grace) {
		writeJSON(w, http.StatusConflict, ShutdownResponse{Message: "shutdown already in progress"})
		return
	}
	s.logger.Info("shutdown requested over local socket", "grace", grace.String())
	resp := ShutdownResponse{Accepted: true}
	if grace > 0 {
		resp.Grace = grace.String()
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// handleLogLevel changes the process log level, e.g.
// PUT /log-level?level=debug.
func (s *Server) handleLogLevel(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	if !logger.ValidLevel(level) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid level"})
		return
	}
	logger.SetLevel(level)
	s.logger.Info("log level changed", "level", logger.GetLevel())
	writeJSON(w, http.StatusOK, map[string]string{"level": logger.GetLevel()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
