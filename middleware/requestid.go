package middleware

import (
	"net/http"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// RequestID assigns a request id to each request. A well-formed inbound
// X-Request-ID is reused; otherwise a new UUID is generated. The id is
// echoed on the response and stored with tenantAuth.WithRequestID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := tenantAuth.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// ClientIP stores the caller address on the request context for audit
// events. See tenantAuth.RequestMetadata.ClientIP for the resolution order.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := Metadata(r).ClientIP()
		if ip == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenantAuth.WithClientIP(r.Context(), ip)))
	})
}

// Metadata collects the transport details the engine records at login.
func Metadata(r *http.Request) tenantAuth.RequestMetadata {
	return tenantAuth.RequestMetadata{
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RemoteAddr:   r.RemoteAddr,
		UserAgent:    r.UserAgent(),
		RequestID:    tenantAuth.RequestIDFromContext(r.Context()),
	}
}
