package httpserver

import (
	"net/http"
	"strconv"

	"github.com/yndnr/srvboot-go/internal/core/domain"
)

// WriteError maps err and writes the JSON error body. A nil mapper maps
// with the built-in kinds only.
func WriteError(w http.ResponseWriter, m *domain.Mapper, err error) {
	resp := m.Map(err)
	body := resp.JSON()

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("X-Error-Kind", resp.Kind.String())
	h.Del("Content-Encoding")
	w.WriteHeader(resp.Status)
	w.Write(body)
}
