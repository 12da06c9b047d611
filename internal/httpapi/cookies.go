package httpapi

import (
	"net/http"
	"time"

	"staffly.org/internal/auth"
)

// Cookie names are part of the external contract; any compatible client
// must use the same set.
const (
	AccessCookieName      = "accessToken"
	RefreshCookieName     = "refreshToken"
	CSRFCookieName        = "csrfToken"
	SessionHintCookieName = "staffly_session_hint"
)

// CookieConfig carries the attributes shared by every cookie the API sets.
type CookieConfig struct {
	Domain string
	Secure bool
}

func (c CookieConfig) cookie(name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// setSessionCookies installs the three login cookies: HttpOnly access and
// refresh tokens, plus a readable hint that mirrors the refresh lifetime so
// client code can skip pointless verification calls.
func (c CookieConfig) setSessionCookies(w http.ResponseWriter, pair auth.TokenPair, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, c.cookie(AccessCookieName, pair.AccessToken, int(accessTTL.Seconds()), true))
	http.SetCookie(w, c.cookie(RefreshCookieName, pair.RefreshToken, int(refreshTTL.Seconds()), true))
	http.SetCookie(w, c.cookie(SessionHintCookieName, "true", int(refreshTTL.Seconds()), false))
}

func (c CookieConfig) replaceAccessCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(AccessCookieName, token, int(ttl.Seconds()), true))
}

func (c CookieConfig) setCSRFCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(CSRFCookieName, token, int(ttl.Seconds()), false))
}

// clearSessionCookies expires all session cookies. Logout must succeed even
// when no session exists, so this is unconditional.
func (c CookieConfig) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookieName, "", -1, true))
	http.SetCookie(w, c.cookie(RefreshCookieName, "", -1, true))
	http.SetCookie(w, c.cookie(SessionHintCookieName, "", -1, false))
}
