package http

import (
	"net/http"
	"time"
)

const (
	sessionCookieName = "shopcore_session"
	csrfCookieName    = "shopcore_csrf"
	csrfHeaderName    = "X-CSRF-Token"
)

// CookieConfig controls the attributes of the session and CSRF cookies.
type CookieConfig struct {
	// Secure marks cookies HTTPS-only. On in production.
	Secure bool
	// TTL is the cookie lifetime, matched to the session TTL.
	TTL time.Duration
}

// setSessionCookies writes both auth cookies: the opaque session id
// (httpOnly, invisible to scripts) and the CSRF token (readable by the
// frontend so it can echo it in the X-CSRF-Token header).
func setSessionCookies(w http.ResponseWriter, cfg CookieConfig, sessionID, csrfToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    csrfToken,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: false,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookies expires both auth cookies.
func clearSessionCookies(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
