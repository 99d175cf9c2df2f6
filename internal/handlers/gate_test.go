package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/vavebg/ops-console/internal/gate"
)

func newGateRouter(t *testing.T) (*mux.Router, *gate.Gate) {
	t.Helper()

	g := gate.New("sesame", "test-secret", 6*time.Hour)
	handler := NewGateHandler(g, nil)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router, g
}

func TestGateHandler_UnlockSuccess(t *testing.T) {
	t.Parallel()

	router, g := newGateRouter(t)

	req := httptest.NewRequest("POST", "/unlock", strings.NewReader(`{"code":"sesame"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	env := decodeEnvelope(t, w)
	var resp UnlockResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("Expected a token")
	}
	if err := g.Verify(resp.Token); err != nil {
		t.Errorf("Expected issued token to verify, got %v", err)
	}
	if until := time.Until(resp.ExpiresAt); until < 5*time.Hour {
		t.Errorf("Expected roughly 6h validity, got %v", until)
	}
}

func TestGateHandler_UnlockRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "wrong code", body: `{"code":"guess"}`, wantStatus: http.StatusUnauthorized},
		{name: "empty code", body: `{"code":""}`, wantStatus: http.StatusUnauthorized},
		{name: "invalid json", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router, _ := newGateRouter(t)

			req := httptest.NewRequest("POST", "/unlock", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
