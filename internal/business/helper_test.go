package business

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/oko-market/oko-client/internal/cmdutils"
	"github.com/oko-market/oko-client/internal/config"
)

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()

	prev := osFs
	osFs = afero.NewMemMapFs()
	t.Cleanup(func() { osFs = prev })

	return osFs
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.API{BaseURL: baseURL, Timeout: time.Second},
		Storage: config.Storage{
			Type: config.StorageTypeFile,
			Key:  "oko-auth",
			File: config.FileStorage{Dir: "/home/test/.oko"},
		},
		Navigation: config.Navigation{
			CurrentPath:     "/dashboard",
			AdminPrefix:     "/oko-admin",
			AdminLoginRoute: "/oko-admin",
			LoginRoute:      "/login",
		},
		Watch: config.Watch{Interval: 10 * time.Millisecond},
	}
}

func invocation(stdin string) (cmdutils.Invocation, *strings.Builder) {
	out := &strings.Builder{}
	return cmdutils.Invocation{In: strings.NewReader(stdin), Out: out}, out
}

// marketBackend serves the auth endpoint and a few resources.
type marketBackend struct {
	expired    atomic.Bool
	userAgents atomic.Value
}

func (b *marketBackend) reply(w http.ResponseWriter, status int, message any, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"statusCode": status, "message": message, "data": data})
}

func (b *marketBackend) start(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth", func(w http.ResponseWriter, r *http.Request) {
		b.userAgents.Store(r.Header.Get("User-Agent"))

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch body["action"] {
		case "login":
			if body["password"] != "secret" {
				b.reply(w, http.StatusUnauthorized, "Invalid credentials", nil)
				return
			}
			b.reply(w, http.StatusOK, "Login successful", map[string]any{
				"accessToken":  "access-1",
				"refreshToken": "refresh-1",
				"user":         map[string]any{"id": "u-1", "name": "Ada", "role": "farmer"},
			})
		case "refresh":
			b.reply(w, http.StatusUnauthorized, "Refresh token expired", nil)
		case "logout":
			b.reply(w, http.StatusOK, "Logged out", nil)
		default:
			b.reply(w, http.StatusBadRequest, "unknown action", nil)
		}
	})
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		if b.expired.Load() || r.Header.Get("Authorization") != "Bearer access-1" {
			b.reply(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		switch r.Method {
		case http.MethodGet:
			b.reply(w, http.StatusOK, "ok", []any{map[string]any{"id": "p-1", "name": "Maize", "price": 12.5}})
		case http.MethodPost:
			var in map[string]any
			_ = json.NewDecoder(r.Body).Decode(&in)
			in["id"] = "p-2"
			b.reply(w, http.StatusCreated, "Created", in)
		case http.MethodDelete:
			b.reply(w, http.StatusOK, "Product deleted", nil)
		}
	})
	mux.HandleFunc("GET /api/notifications", func(w http.ResponseWriter, r *http.Request) {
		b.reply(w, http.StatusOK, "ok", []any{
			map[string]any{"id": "n-1", "title": "New request", "body": "Bo wants 5kg", "read": false, "createdAt": "2026-10-01T10:00:00Z"},
			map[string]any{"id": "n-2", "title": "Old", "body": "seen", "read": true, "createdAt": "2026-09-01T10:00:00Z"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func sessionPath(cfg *config.Config) string {
	return filepath.Join(cfg.Storage.File.Dir, cfg.Storage.Key+".json")
}
