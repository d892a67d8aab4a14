package interceptor

import (
	"context"
	"errors"
	"strings"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/server/httpserver"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
	"github.com/yndnr/srvboot-go/pkg/token"
)

// APIKey requires "Authorization: Bearer <key_id>:<secret>" on every
// request outside SkipPaths. Secrets are checked against Argon2id hashes.
type APIKey struct {
	hashes    map[string]string
	skipPaths []string
	mapper    *domain.Mapper
}

// NewAPIKey creates the interceptor from key ID to hash pairs. Paths
// ending in "/" skip everything below them.
func NewAPIKey(keys map[string]string, skipPaths []string, m *domain.Mapper) (*APIKey, error) {
	if len(keys) == 0 {
		return nil, errors.New("api key interceptor needs at least one key")
	}
	hashes := make(map[string]string, len(keys))
	for id, hash := range keys {
		if !token.IsKeyID(id) {
			return nil, errors.New("invalid api key id " + id)
		}
		if err := token.CheckHash(hash); err != nil {
			return nil, err
		}
		hashes[id] = hash
	}
	return &APIKey{hashes: hashes, skipPaths: skipPaths, mapper: m}, nil
}

// Intercept implements httpserver.Interceptor.
func (a *APIKey) Intercept(ctx context.Context, req *httpserver.RequestInfo) (httpserver.Result, error) {
	if matchPath(req.Path, a.skipPaths) {
		return httpserver.Continue(), nil
	}

	id, secret, ok := credentials(req.Header.Get("Authorization"))
	if !ok {
		return a.unauthorized("authentication required"), nil
	}
	hash, known := a.hashes[id]
	if !known {
		logger.L(ctx).Warn("unknown api key", "key_id", id, "peer", req.Peer)
		return a.unauthorized("invalid api key"), nil
	}

	valid, err := token.Verify(secret, hash)
	if err != nil {
		return httpserver.Result{}, err
	}
	if !valid {
		logger.L(ctx).Warn("api key secret mismatch", "key_id", id, "peer", req.Peer)
		return a.unauthorized("invalid api key"), nil
	}
	return httpserver.Continue(), nil
}

func (a *APIKey) unauthorized(msg string) httpserver.Result {
	return reject(a.mapper, domain.New(domain.KindUnauthorized, msg), map[string][]string{
		"Www-Authenticate": {`Bearer realm="srvboot"`},
	})
}

// credentials parses "Bearer <key_id>:<secret>".
func credentials(header string) (id, secret string, ok bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	id, secret, ok = strings.Cut(strings.TrimSpace(header[len(prefix):]), ":")
	if !ok || id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}
