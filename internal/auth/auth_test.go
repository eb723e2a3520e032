package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		cfg    Config
		method string
		path   string
		header string
		want   int
		reason string
	}{
		{"disabled", Config{}, "POST", "/api/v1/input", "", http.StatusNoContent, ""},
		{"read is public", Config{Enabled: true, Token: "s3cret"}, "GET", "/api/v1/scene", "", http.StatusNoContent, ""},
		{"head is public", Config{Enabled: true, Token: "s3cret"}, "HEAD", "/api/v1/scene", "", http.StatusNoContent, ""},
		{"probe is public", Config{Enabled: true, Token: "s3cret"}, "POST", "/healthz", "", http.StatusNoContent, ""},
		{"missing token", Config{Enabled: true, Token: "s3cret"}, "POST", "/api/v1/input", "", http.StatusUnauthorized, "missing_token"},
		{"wrong scheme", Config{Enabled: true, Token: "s3cret"}, "POST", "/api/v1/input", "Basic s3cret", http.StatusUnauthorized, "missing_token"},
		{"wrong token", Config{Enabled: true, Token: "s3cret"}, "POST", "/api/v1/input", "Bearer nope", http.StatusUnauthorized, "invalid_token"},
		{"good token", Config{Enabled: true, Token: "s3cret"}, "POST", "/api/v1/catalog/refresh", "Bearer s3cret", http.StatusNoContent, ""},
		{"empty bearer", Config{Enabled: true, Token: "s3cret"}, "POST", "/api/v1/input", "Bearer ", http.StatusUnauthorized, "missing_token"},
		{"empty configured token", Config{Enabled: true}, "POST", "/api/v1/input", "Bearer x", http.StatusUnauthorized, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			Middleware(tt.cfg)(ok).ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if w.Code != http.StatusUnauthorized {
				return
			}
			if w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["reason"] != tt.reason {
				t.Errorf("reason = %q, want %q", body["reason"], tt.reason)
			}
		})
	}
}
