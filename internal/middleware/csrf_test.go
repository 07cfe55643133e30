package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func csrfHandler() http.Handler {
	return VerifyCSRF(map[string]bool{"/api/finance/stripe/webhook/": true})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)
}

func TestVerifyCSRFMatch(t *testing.T) {
	token, err := NewCSRFToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/projects/ideas/", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
	req.Header.Set(CSRFHeaderName, token)
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestVerifyCSRFMismatch(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/projects/ideas/", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "aaaa"})
	req.Header.Set(CSRFHeaderName, "bbbb")
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestVerifyCSRFMissing(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/projects/ideas/", nil)
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestVerifyCSRFSkipsSafeMethods(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/projects/ideas/", nil)
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestVerifyCSRFExemptPath(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/finance/stripe/webhook/", nil)
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
