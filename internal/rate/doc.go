// Package rate provides the Redis-backed fixed-window counters behind login
// throttling.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Key prefixes:
//   - tal:  login failures per identifier
//   - tali: login failures per client IP
//
// # What this package must NOT do
//
//   - Decide verdicts. The Engine maps ErrRateLimited to its own response.
//   - Be imported outside the tenantAuth module.
package rate
