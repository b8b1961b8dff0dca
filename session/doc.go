// Package session provides live session storage for tenantAuth: a
// Redis-backed [Store], a process-local [MemoryStore], and the compact
// binary encoding both Redis and the durable audit trail rely on.
//
// # Binary encoding
//
// Sessions are stored as a versioned binary blob (see [Encode]). Unknown
// versions and truncated blobs decode to [ErrCorrupt].
//
// # Expiry
//
// Both stores enforce Session.ExpiresAt on read. Redis TTL is a cleanup
// mechanism only; a session past its absolute expiry is never returned.
//
// # What this package must NOT do
//
//   - Import tenantAuth (no upward imports).
//   - Make authorization decisions.
//   - Store passwords or hashes in [Session].
package session
