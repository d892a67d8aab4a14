package handler

import (
	"net/http"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/infra/buildinfo"
)

// HealthBody is the exact /health response.
const HealthBody = `{"status":"ok"}`

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(HealthBody))
}

// handleReady handles GET /ready. It fails once the server stops
// running so load balancers stop routing before the listener closes.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Status: "ready"}
	if h.state != nil {
		resp.State = h.state.StateName()
		resp.InFlight = h.state.InFlight()
		if resp.State != "running" {
			h.writeError(w, r, domain.New(domain.KindUnavailable, "server is "+resp.State))
			return
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// handleVersion handles GET /version.
func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, buildinfo.Get())
}
