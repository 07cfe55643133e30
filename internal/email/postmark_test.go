package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendPasswordReset(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", WithAPIURL(server.URL))

	err := client.SendPasswordReset("jane@example.com", "https://gnet.test/reset/abc/xyz/")
	if err != nil {
		t.Fatalf("send password reset: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "jane@example.com" {
		t.Errorf("To = %q", received.To)
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q", received.From)
	}
	if !strings.Contains(received.TextBody, "https://gnet.test/reset/abc/xyz/") {
		t.Error("text body should contain the reset link")
	}
}

func TestSendWelcome(t *testing.T) {
	var received postmarkEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", WithAPIURL(server.URL))

	if err := client.SendWelcome("jane@example.com", "Jane Njeri"); err != nil {
		t.Fatalf("send welcome: %v", err)
	}
	if !strings.Contains(received.TextBody, "Jane Njeri") {
		t.Error("text body should greet the member by name")
	}
}

func TestSendWithoutToken(t *testing.T) {
	client := NewClient("", "noreply@example.com")
	if err := client.SendPasswordChanged("jane@example.com"); err == nil {
		t.Error("expected error when server token is missing")
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", WithAPIURL(server.URL))
	if err := client.SendPasswordChanged("jane@example.com"); err == nil {
		t.Error("expected error on API failure status")
	}
}
