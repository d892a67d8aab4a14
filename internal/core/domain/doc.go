// Package domain defines the error model shared by every srvboot component.
//
// Failures are *Error values tagged with a Kind from a closed set. Each
// Kind has a wire name and an HTTP status:
//
//   - Bootstrap kinds: BindError, TlsLoadError, AcceptError, HandshakeError,
//     IdleTimeoutError, InterceptorError, ForcedDrainClosure
//   - Application kinds: BadRequest, Unauthorized, Forbidden, NotFound,
//     Conflict, RateLimited, Unavailable, Internal
//
// The Mapper converts any error into a status and the JSON body
// {"error":{"kind":"...","message":"..."}}. The body carries only the
// public message; causes are left for the logger.
package domain
