// Package gateway guards outbound marketplace calls.
//
// Every call passes, in order, through the response cache, the circuit
// breaker of its (marketplace, endpoint), the marketplace's fixed-window rate
// limiter and a timeout, and is returned to the caller as an Envelope.
// Limiter, breaker and cache state are per process; the cache may be shared
// through Redis.
package gateway
