package tenantAuth

import "context"

type clientIPContextKey struct{}
type requestIDContextKey struct{}
type sessionContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithRequestID attaches a request correlation id to ctx. Audit events
// emitted under ctx carry it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// WithSessionContext stores an authorized session on ctx. Middleware calls
// it after a successful check so handlers can read the caller identity.
func WithSessionContext(ctx context.Context, sc *SessionContext) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sc)
}

// SessionFromContext returns the session stored by WithSessionContext.
func SessionFromContext(ctx context.Context) (*SessionContext, bool) {
	if ctx == nil {
		return nil, false
	}
	sc, ok := ctx.Value(sessionContextKey{}).(*SessionContext)
	return sc, ok && sc != nil
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
