// Package tenantAuth is a multi-tenant, session-based authentication and
// authorization engine. It verifies credentials, issues opaque server-side
// session handles, attaches a tenant snapshot to each session, and answers
// entity-type authorization checks without touching the credential store.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tenantAuth is the public surface. It exposes [Engine], [Builder], [Config]
// and the value types returned by Engine methods. Persistence is injected:
// [AccountStore], [TenantGraph] and [SessionRecorder] are implemented by
// store/sqlstore, and [SessionStore] by the session package. Rate limiting and
// audit dispatch live under internal/ and are never exported.
//
// # Outcomes
//
// Login, ValidateSession, Logout and RequireRole report domain outcomes as a
// [LoginResult] or [Verdict] carrying an HTTP status, a fixed message and a
// sentinel error. A non-nil Go error from these methods always means a
// backing store could not be reached.
package tenantAuth
