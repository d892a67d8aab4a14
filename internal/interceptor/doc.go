// Package interceptor provides request interceptors for the HTTP engine:
//
//   - Health answers a fixed path with a fixed body
//   - RateLimiter applies per-peer token buckets
//   - ACL admits only listed networks
//   - GeoFilter rejects peers from denied countries (MaxMind database)
//   - APIKey requires a Bearer <id>:<secret> credential
//
// All of them answer rejected requests with the mapped error body, so
// clients see the same shape as any other failure.
package interceptor
