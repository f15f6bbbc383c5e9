package auth

import (
	"net/http"
	"time"
)

// SessionCookieName carries the session token for browser clients
const SessionCookieName = "session_token"

type CookieConfig struct {
	Domain string // Empty string = current host only
	Secure bool
}

// SetSessionCookie issues the cross-site session cookie
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// GetSessionCookie returns the session cookie value or ""
func GetSessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
