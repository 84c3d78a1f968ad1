package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/listcutter/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.RemoteAddr))
	})
}

// ----------------------------------------------------------------------------
// APIKeyAuth
// ----------------------------------------------------------------------------

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SecurityConfig
		header   string
		value    string
		want     int
		wantCode string
	}{
		{"disabled passes", config.SecurityConfig{}, "", "", http.StatusOK, ""},
		{"missing key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, "", "", http.StatusUnauthorized, "AUTH001"},
		{"wrong key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, "X-API-Key", "nope", http.StatusForbidden, "AUTH002"},
		{"header key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}, "X-API-Key", "k2", http.StatusOK, ""},
		{"bearer key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, "Authorization", "Bearer k1", http.StatusOK, ""},
		{"no keys configured", config.SecurityConfig{RequireAPIKey: true}, "X-API-Key", "k1", http.StatusForbidden, "AUTH002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := APIKeyAuth(&tt.cfg)(okHandler())
			req := httptest.NewRequest(http.MethodPost, "/api/columns", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.wantCode == "" {
				return
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// TrustedRealIP
// ----------------------------------------------------------------------------

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted ignores header", []string{"10.0.0.0/8"}, "192.0.2.1:1234",
			map[string]string{"X-Real-IP": "203.0.113.9"}, "192.0.2.1:1234"},
		{"trusted uses X-Real-IP", []string{"10.0.0.0/8"}, "10.1.2.3:1234",
			map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"trusted uses first forwarded", []string{"10.0.0.1"}, "10.0.0.1:80",
			map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "203.0.113.9"},
		{"invalid header kept out", []string{"10.0.0.0/8"}, "10.1.2.3:1234",
			map[string]string{"X-Real-IP": "not-an-ip"}, "10.1.2.3:1234"},
		{"mapped ipv4 matches", []string{"10.0.0.0/8"}, "[::ffff:10.0.0.5]:80",
			map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"bad cidr skipped", []string{"bogus", ""}, "10.1.2.3:1234",
			map[string]string{"X-Real-IP": "203.0.113.9"}, "10.1.2.3:1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := TrustedRealIP(tt.trusted)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Body.String(); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Logger
// ----------------------------------------------------------------------------

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("hello"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log entry %q: %v", buf.String(), err)
	}
	if entry["msg"] != "request" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v, want 418", entry["status"])
	}
	if entry["bytes"] != float64(5) {
		t.Errorf("bytes = %v, want 5", entry["bytes"])
	}
	if !strings.HasPrefix(entry["path"].(string), "/healthz") {
		t.Errorf("path = %v", entry["path"])
	}
}
