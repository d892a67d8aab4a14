package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/yndnr/srvboot-go/internal/core/domain"
)

const (
	defaultSlowDuration = 20 * time.Second
	maxSlowDuration     = 5 * time.Minute
)

// handleRoot handles GET /.
func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

// handleTime handles GET /time. It sleeps for ?d= (default 20s) before
// answering, which keeps a request in flight while a drain is observed.
func (h *Handler) handleTime(w http.ResponseWriter, r *http.Request) {
	d := defaultSlowDuration
	if v := r.URL.Query().Get("d"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 || parsed > maxSlowDuration {
			h.writeError(w, r, domain.New(domain.KindBadRequest,
				fmt.Sprintf("d must be a duration between 0 and %s", maxSlowDuration)))
			return
		}
		d = parsed
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-r.Context().Done():
		return
	}

	h.writeJSON(w, r, http.StatusOK, TimeResponse{Slept: d.String(), Now: time.Now().UTC()})
}

// handleError handles GET /error. ?kind= picks the failure to map; the
// default is an unclassified error, which maps to Internal.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("kind")
	if name == "" {
		h.writeError(w, r, fmt.Errorf("example failure with internal detail"))
		return
	}
	kind, ok := domain.ParseKind(name)
	if !ok {
		h.writeError(w, r, domain.New(domain.KindBadRequest, "unknown kind "+name))
		return
	}
	h.writeError(w, r, domain.New(kind, "example "+name))
}
