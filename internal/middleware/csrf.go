package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	CSRFCookieName = "gnet_csrftoken"
	CSRFHeaderName = "X-CSRFToken"
)

// NewCSRFToken returns a fresh random token for the double-submit cookie.
func NewCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// SetCSRFCookie issues the double-submit cookie. It is intentionally not
// HttpOnly: the browser client reads it and echoes it back in the header.
func SetCSRFCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int((14 * 24 * 3600)),
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// VerifyCSRF enforces the double-submit check on state-changing methods.
// Paths in exempt skip the check (webhooks authenticate with signatures).
func VerifyCSRF(exempt map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(CSRFCookieName)
			if err != nil || cookie.Value == "" {
				errorJSON(w, http.StatusForbidden, "CSRF token missing")
				return
			}
			header := r.Header.Get(CSRFHeaderName)
			if header == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
				errorJSON(w, http.StatusForbidden, "CSRF token mismatch")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
