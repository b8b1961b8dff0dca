// Package internal contains helpers that are private to tenantAuth, chiefly
// session handle generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - rate: Redis-backed fixed-window login throttling
//
// # What this package must NOT do
//
//   - Export types that appear in the public tenantAuth API.
//   - Be imported by any package outside the tenantAuth module.
package internal
