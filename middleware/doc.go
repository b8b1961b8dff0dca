// Package middleware adapts tenantAuth.Engine to net/http.
//
// # Guards
//
//   - [RequireSession]: any valid session.
//   - [RequireRole], [RequireSuperAdmin], [RequireEmployee],
//     [RequireOrganizationAdmin]: a valid session with an exact entity type.
//
// Guards read the session handle from the session cookie (or an
// "Authorization: Session <handle>" header), ask the engine for a verdict,
// and store the resulting tenantAuth.SessionContext on the request context.
// Rejections are written as JSON with the verdict's status and message.
//
// # Transport helpers
//
//   - [RequestID] and [ClientIP] attach correlation data used by audit events.
//   - [NewIPRateLimiter] is a per-IP token bucket for the login route.
//   - [SetSessionCookie] and [ClearSessionCookie] manage the session cookie.
//
// This package makes no authentication decisions of its own; every verdict
// comes from the engine.
package middleware
