package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_SendPhoto(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken-1/sendPhoto") {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		var body struct {
			ChatID  string `json:"chat_id"`
			Photo   string `json:"photo"`
			Caption string `json:"caption"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		if body.ChatID != "@channel" {
			t.Errorf("Expected chat_id '@channel', got %q", body.ChatID)
		}
		if body.Photo != "https://cdn.example.com/a.jpg" {
			t.Errorf("Expected photo url, got %q", body.Photo)
		}
		if body.Caption != "New post from example.com/p/asset-1" {
			t.Errorf("Unexpected caption %q", body.Caption)
		}

		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient("token-1", "@channel", nil)
	client.apiBaseURL = server.URL

	err := client.SendPhoto(context.Background(), "https://cdn.example.com/a.jpg", "New post from example.com/p/asset-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestClient_SendPhotoErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "api rejects request",
			status:  http.StatusBadRequest,
			body:    `{"ok":false,"description":"Bad Request: chat not found"}`,
			wantErr: "telegram returned status 400",
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"ok":false,"description":"Too Many Requests: retry after 30"}`,
			wantErr: "telegram returned status 429",
		},
		{
			name:    "ok false with 200",
			status:  http.StatusOK,
			body:    `{"ok":false,"description":"something odd"}`,
			wantErr: "telegram returned status 200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if _, err := w.Write([]byte(tt.body)); err != nil {
					t.Errorf("Failed to write response: %v", err)
				}
			}))
			defer server.Close()

			client := NewClient("token-1", "@channel", nil)
			client.apiBaseURL = server.URL

			err := client.SendPhoto(context.Background(), "https://cdn.example.com/a.jpg", "caption")
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.HasPrefix(err.Error(), tt.wantErr) {
				t.Errorf("Expected error starting with %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	t.Parallel()

	client := NewClient("", "", nil)
	if client.Enabled() {
		t.Error("Expected client without credentials to be disabled")
	}
	if err := client.SendPhoto(context.Background(), "https://cdn.example.com/a.jpg", "caption"); err == nil {
		t.Error("Expected error from unconfigured client")
	}
}
