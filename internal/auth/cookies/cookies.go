// Package cookies owns the browser-side credential contract. One canonical
// credential cookie name is used everywhere; earlier revisions of the system
// mixed "token" and "auth_token" across endpoints.
package cookies

import (
	"net/http"
	"time"
)

const (
	// CredentialName carries the signed credential. HTTP-only, never
	// readable by client script.
	CredentialName = "auth_token"
	// MirrorName mirrors "is logged in" for client-side-only checks. It
	// must never carry claims.
	MirrorName = "auth_session"
	// LogoutNoticeName is a one-shot flag set at logout so the guard can
	// suppress the "please log in" notice on the very next redirect.
	LogoutNoticeName = "just_logged_out"
)

// Manager writes and clears the credential cookies. Secure is enabled in
// production so the credential only travels over TLS.
type Manager struct {
	secure bool
	maxAge time.Duration
}

func NewManager(secure bool, maxAge time.Duration) *Manager {
	return &Manager{secure: secure, maxAge: maxAge}
}

// SetCredential stores the credential and its mirror flag on the client.
func (m *Manager) SetCredential(w http.ResponseWriter, credential string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CredentialName,
		Value:    credential,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     MirrorName,
		Value:    "true",
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: false,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCredential discards the credential and mirror cookies.
func (m *Manager) ClearCredential(w http.ResponseWriter) {
	m.expire(w, CredentialName, true)
	m.expire(w, MirrorName, false)
}

// Credential reads the raw credential from the request, if present.
func Credential(r *http.Request) (string, bool) {
	c, err := r.Cookie(CredentialName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// SetLogoutNotice marks that the next anonymous redirect follows a
// user-initiated logout. Short-lived: it only needs to survive one redirect.
func (m *Manager) SetLogoutNotice(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     LogoutNoticeName,
		Value:    "1",
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ConsumeLogoutNotice reports whether the logout flag is set and clears it so
// the suppression fires exactly once.
func (m *Manager) ConsumeLogoutNotice(w http.ResponseWriter, r *http.Request) bool {
	if c, err := r.Cookie(LogoutNoticeName); err != nil || c.Value == "" {
		return false
	}
	m.expire(w, LogoutNoticeName, true)
	return true
}

func (m *Manager) expire(w http.ResponseWriter, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
