// Package audit relays security events (logins, logouts, denials,
// provisioning) from the Engine to a caller-supplied sink without blocking
// the request path.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered async relay, drop-if-full or block-if-full.
//   - [Event]: one audit record.
//
// # What this package must NOT do
//
//   - Decide which events to emit. The Engine does that.
//   - Import tenantAuth or any sibling internal package.
package audit
