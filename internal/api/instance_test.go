package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStreamingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/instance" {
			t.Errorf("path = %q, want /api/v1/instance", r.URL.Path)
		}
		w.Write([]byte(`{
			"uri": "example.social",
			"title": "Example",
			"version": "2.7.2 (compatible; Pleroma 2.5.0)",
			"urls": {"streaming_api": "wss://example.social/"}
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	got, err := c.StreamingURL(context.Background())
	if err != nil {
		t.Fatalf("StreamingURL failed: %v", err)
	}
	if got != "wss://example.social/api/v1/streaming" {
		t.Errorf("StreamingURL() = %q", got)
	}
}

func TestStreamingURL_NotAdvertised(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uri": "example.social", "urls": {}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	if _, err := c.StreamingURL(context.Background()); !errors.Is(err, ErrNoStreamingURL) {
		t.Errorf("error = %v, want ErrNoStreamingURL", err)
	}
}

func TestGetInstance_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithRetries(0, time.Millisecond))
	if _, err := c.GetInstance(context.Background()); err == nil {
		t.Error("expected unmarshal error")
	}
}

func TestVerifyCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/verify_credentials" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"The access token is invalid"}`))
			return
		}
		w.Write([]byte(`{"id":"9xYz","username":"alice","acct":"alice"}`))
	}))
	defer server.Close()

	acct, err := NewClient(server.URL, "tok").VerifyCredentials(context.Background())
	if err != nil {
		t.Fatalf("VerifyCredentials failed: %v", err)
	}
	if acct.ID != "9xYz" || acct.Acct != "alice" {
		t.Errorf("account = %+v", acct)
	}

	_, err = NewClient(server.URL, "wrong").VerifyCredentials(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("error = %v, want 401 APIError", err)
	}
}

func TestStreamingHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"ok", http.StatusOK, "OK", false},
		{"unexpected body", http.StatusOK, "nope", true},
		{"missing endpoint", http.StatusNotFound, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/streaming/health" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(server.URL, "").StreamingHealth(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("StreamingHealth() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
