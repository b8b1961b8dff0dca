package middleware

import (
	"net/http"
	"strings"
	"time"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

const sessionScheme = "Session "

// SetSessionCookie writes the session cookie:
// <name>=<handle>; Path=/; HttpOnly; Secure; SameSite=Strict.
func SetSessionCookie(w http.ResponseWriter, cfg tenantAuth.SessionConfig, handle string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    handle,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(w http.ResponseWriter, cfg tenantAuth.SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// SessionHandle returns the handle carried by r: the session cookie first,
// then an "Authorization: Session <handle>" header.
func SessionHandle(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	handle, _ := sessionToken(r.Header.Get("Authorization"))
	return handle
}

func sessionToken(value string) (string, bool) {
	if !strings.HasPrefix(value, sessionScheme) {
		return "", false
	}

	token := strings.TrimSpace(value[len(sessionScheme):])
	if token == "" {
		return "", false
	}

	return token, true
}
