package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestRequestIDEchoed(t *testing.T) {
	e := testServer(t)

	w := e.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("generated request ID not returned")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if got := w.Header().Get(middleware.RequestIDHeader); got != "req-42" {
		t.Errorf("request ID = %q, want req-42", got)
	}
}

func TestCORS(t *testing.T) {
	e := testServer(t)
	e.srv.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}
	router := e.srv.buildRouter()

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{"allowed", "http://panel.local", "http://panel.local"},
		{"denied", "http://evil.example", ""},
		{"no origin", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/channels/properties/p-power/state", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Errorf("preflight status = %d, want 204", w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" && w.Header().Get("Access-Control-Allow-Headers") != defaultCORSHeaders {
				t.Errorf("Allow-Headers = %q", w.Header().Get("Access-Control-Allow-Headers"))
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	e := testServer(t)
	h := e.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler bug")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
