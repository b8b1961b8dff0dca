package middleware

import (
	"context"
	"net/http"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

// SessionValidator is the part of *tenantAuth.Engine the guards use.
type SessionValidator interface {
	ValidateSession(ctx context.Context, handle string) (*tenantAuth.Verdict, error)
	RequireRole(ctx context.Context, handle string, required tenantAuth.EntityType) (*tenantAuth.Verdict, error)
}

// RequireSession admits requests carrying any valid session.
func RequireSession(v SessionValidator, cookieName string) func(http.Handler) http.Handler {
	return guard(v, cookieName, func(ctx context.Context, handle string) (*tenantAuth.Verdict, error) {
		return v.ValidateSession(ctx, handle)
	})
}

// RequireRole admits requests whose session has exactly the required
// entity type.
func RequireRole(v SessionValidator, cookieName string, required tenantAuth.EntityType) func(http.Handler) http.Handler {
	return guard(v, cookieName, func(ctx context.Context, handle string) (*tenantAuth.Verdict, error) {
		return v.RequireRole(ctx, handle, required)
	})
}

func guard(v SessionValidator, cookieName string, check func(context.Context, string) (*tenantAuth.Verdict, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				WriteError(w, tenantAuth.ErrEngineNotReady)
				return
			}

			verdict, err := check(r.Context(), SessionHandle(r, cookieName))
			if err != nil {
				WriteError(w, err)
				return
			}
			if !verdict.Allowed() {
				WriteVerdict(w, verdict)
				return
			}

			ctx := tenantAuth.WithSessionContext(r.Context(), verdict.Session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
