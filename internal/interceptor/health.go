package interceptor

import (
	"context"
	"net/http"

	"github.com/yndnr/srvboot-go/internal/server/httpserver"
)

const (
	// DefaultHealthPath is answered by Health when no path is given.
	DefaultHealthPath = "/health"
	// DefaultHealthBody is the exact JSON written by Health.
	DefaultHealthBody = `{"status":"ok"}`
)

// Health answers GET and HEAD on path with 200 and body before any
// other interceptor or handler sees the request.
func Health(path, body string) httpserver.Interceptor {
	if path == "" {
		path = DefaultHealthPath
	}
	if body == "" {
		body = DefaultHealthBody
	}
	payload := []byte(body)

	return httpserver.InterceptorFunc(func(_ context.Context, req *httpserver.RequestInfo) (httpserver.Result, error) {
		if req.Path != path || (req.Method != http.MethodGet && req.Method != http.MethodHead) {
			return httpserver.Continue(), nil
		}
		h := http.Header{"Content-Type": {"application/json"}}
		if req.Method == http.MethodHead {
			return httpserver.Respond(http.StatusOK, h, nil), nil
		}
		return httpserver.Respond(http.StatusOK, h, payload), nil
	})
}
