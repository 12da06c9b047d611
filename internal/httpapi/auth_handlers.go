package httpapi

import (
	"errors"
	"net/http"

	"staffly.org/internal/audit"
	"staffly.org/internal/auth"
)

const csrfHeader = "X-Csrf-Token"

// loginFailureMessage is deliberately uniform: wrong password, unknown email
// and unapproved accounts must be indistinguishable to the caller.
const loginFailureMessage = "invalid credentials or account not approved"

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	CSRFToken string `json:"csrfToken"`
}

type loginResponse struct {
	Success bool             `json:"success"`
	User    auth.UserProfile `json:"user"`
}

type verifyResponse struct {
	IsValid bool              `json:"isValid"`
	User    *auth.UserProfile `json:"user,omitempty"`
}

// handleCSRFToken issues a fresh anti-forgery token. The token is returned
// in the body and mirrored into a readable cookie so the login form can echo
// it back (double-submit pattern).
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	token, err := a.csrf.Issue()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "csrf token generation failed")
		return
	}
	a.cookies.setCSRFCookie(w, token, a.csrf.TTL())
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	csrfToken := req.CSRFToken
	if csrfToken == "" {
		csrfToken = r.Header.Get(csrfHeader)
	}
	if !a.csrf.Verify(csrfToken) {
		writeError(w, r, http.StatusForbidden, "invalid csrf token")
		return
	}

	user, err := a.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "auth.login.denied", map[string]any{
			"email": req.Email,
		})
		writeError(w, r, http.StatusUnauthorized, loginFailureMessage)
		return
	}

	pair, err := a.auth.IssueOnLogin(user)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}

	a.cookies.setSessionCookies(w, pair, a.auth.AccessTTL(), a.auth.RefreshTTL())

	ctx := auth.ContextWithProfile(r.Context(), *user)
	_ = audit.LogEvent(ctx, "auth.login", map[string]any{
		"email": user.Email,
		"role":  string(user.Role),
	})

	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: user.Public()})
}

// handleLogout clears all session cookies. It always answers 200: clients
// reset local state regardless, and a second logout must be harmless.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	a.cookies.clearSessionCookies(w)
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	cookie, err := r.Cookie(AccessCookieName)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, verifyResponse{IsValid: false})
		return
	}

	user, err := a.auth.VerifyAccess(r.Context(), cookie.Value)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, verifyResponse{IsValid: false})
		return
	}

	public := user.Public()
	writeJSON(w, http.StatusOK, verifyResponse{IsValid: true, User: &public})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "missing refresh token")
		return
	}

	accessToken, _, user, err := a.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound),
			errors.Is(err, auth.ErrUnauthorized),
			errors.Is(err, auth.ErrInvalidToken):
			writeError(w, r, http.StatusUnauthorized, "invalid or expired refresh token")
		default:
			writeError(w, r, http.StatusInternalServerError, "refresh failed")
		}
		return
	}

	a.cookies.replaceAccessCookie(w, accessToken, a.auth.AccessTTL())

	ctx := auth.ContextWithProfile(r.Context(), *user)
	_ = audit.LogEvent(ctx, "auth.refresh", nil)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
