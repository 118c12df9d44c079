package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oko-market/oko-client/pkg/apiclient"
	"github.com/oko-market/oko-client/pkg/session"
	sessionmock "github.com/oko-market/oko-client/pkg/session/mock"
)

const (
	oldAccessToken = "access-old"
	newAccessToken = "access-new"
	testRefresh    = "refresh-token"
)

type fakeBackend struct {
	mu         sync.Mutex
	validToken string

	refreshStatus      int
	refreshDelay       time.Duration
	alwaysUnauthorized bool

	refreshCalls   atomic.Int32
	protectedCalls atomic.Int32
	lastAuthHeader atomic.Value
	lastRequestID  atomic.Value
}

func writeEnvelope(w http.ResponseWriter, status int, message any, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := map[string]any{"statusCode": status, "message": message}
	if data != nil {
		env["data"] = data
	}
	_ = json.NewEncoder(w).Encode(env)
}

func startBackend(t *testing.T, b *fakeBackend) *httptest.Server {
	t.Helper()

	if b.validToken == "" {
		b.validToken = newAccessToken
	}
	if b.refreshStatus == 0 {
		b.refreshStatus = http.StatusOK
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeEnvelope(w, http.StatusBadRequest, "bad body", nil)
			return
		}

		switch body["action"] {
		case "refresh":
			b.refreshCalls.Add(1)
			time.Sleep(b.refreshDelay)
			if b.refreshStatus != http.StatusOK {
				writeEnvelope(w, b.refreshStatus, "refresh rejected", nil)
				return
			}
			if body["refreshToken"] != testRefresh {
				writeEnvelope(w, http.StatusUnauthorized, "invalid refresh token", nil)
				return
			}
			writeEnvelope(w, http.StatusOK, "Token refreshed", map[string]string{"accessToken": newAccessToken})
		case "login":
			writeEnvelope(w, http.StatusUnauthorized, "Invalid credentials", nil)
		default:
			writeEnvelope(w, http.StatusBadRequest, []string{"unknown action"}, nil)
		}
	})
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		b.protectedCalls.Add(1)
		b.lastAuthHeader.Store(r.Header.Get("Authorization"))
		b.lastRequestID.Store(r.Header.Get("X-Request-ID"))

		b.mu.Lock()
		valid := r.Header.Get("Authorization") == "Bearer "+b.validToken
		b.mu.Unlock()

		if b.alwaysUnauthorized || !valid {
			writeEnvelope(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, "Products fetched", []map[string]any{{"id": "p-1", "name": "Maize"}})
	})
	mux.HandleFunc("POST /api/validation", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, []string{"name is required", "price must be positive"}, nil)
	})
	mux.HandleFunc("/api/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

type recordingNavigator struct {
	path string

	mu     sync.Mutex
	routes []string
}

func (n *recordingNavigator) CurrentPath() string { return n.path }

func (n *recordingNavigator) Navigate(_ context.Context, route string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
	return nil
}

func (n *recordingNavigator) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

func loggedInSession() session.Session {
	return session.Session{
		Tokens: session.Tokens{AccessToken: oldAccessToken, RefreshToken: testRefresh},
		User:   &session.User{ID: "u-1", Name: "Ada", Role: session.RoleFarmer},
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, repo session.Repository, nav apiclient.Navigator) *apiclient.Client {
	t.Helper()

	if repo == nil {
		repo = sessionmock.NewInMemRepository()
	}
	if nav == nil {
		nav = &recordingNavigator{path: "/dashboard"}
	}

	c, err := apiclient.New(apiclient.Options{
		BaseURL: srv.URL + "/api",
		Timeout: 5 * time.Second,
	}, repo, nav)
	require.NoError(t, err)

	return c
}
