// Package tlsroots builds and rotates server TLS contexts.
//
//   - context.go: Build validates a certificate chain and key and returns
//     an immutable Context (TLS 1.2+, ECDHE AEAD suites, ALPN h2 and
//     http/1.1, optional client certificates). Holder publishes the
//     current Context atomically.
//   - roots.go: certificate pools for client CA bundles and CLI trust.
//   - watcher.go: fsnotify and interval driven rebuilds into a Holder.
//
// Load failures are domain.KindTLSLoad errors and surface at startup.
package tlsroots
