package business

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oko-market/oko-client/internal/config"
	"github.com/oko-market/oko-client/internal/serviceerr"
	"github.com/oko-market/oko-client/pkg/apiclient"
	"github.com/oko-market/oko-client/pkg/session"
)

func TestInitSessionRepository(t *testing.T) {
	tests := []struct {
		name      string
		storage   config.Storage
		errAssert assert.ErrorAssertionFunc
		errIs     error
	}{
		{
			name:      "File",
			storage:   config.Storage{Type: config.StorageTypeFile, Key: "oko-auth", File: config.FileStorage{Dir: "/tmp/oko"}},
			errAssert: assert.NoError,
		},
		{
			name:      "File with cache",
			storage:   config.Storage{Type: config.StorageTypeFile, Key: "oko-auth", CacheTTL: time.Second, File: config.FileStorage{Dir: "/tmp/oko"}},
			errAssert: assert.NoError,
		},
		{
			name: "Bolt",
			storage: config.Storage{Type: config.StorageTypeBolt, Key: "oko-auth", Bolt: config.BoltStorage{
				Path:   filepath.Join(t.TempDir(), "session.db"),
				Bucket: "oko",
			}},
			errAssert: assert.NoError,
		},
		{
			name:      "Unsupported",
			storage:   config.Storage{Type: "cookie"},
			errAssert: assert.Error,
			errIs:     serviceerr.ErrUnsupportedStorage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useMemFs(t)

			cfg := &config.Config{Storage: tt.storage}
			repo, closeFn, err := initSessionRepository(t.Context(), cfg)
			tt.errAssert(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
			if err != nil {
				return
			}
			defer closeFn()

			if tt.storage.CacheTTL > 0 {
				assert.IsType(t, &session.CachedRepository{}, repo)
			}

			s := session.Session{Tokens: session.Tokens{AccessToken: "a", RefreshToken: "r"}, User: &session.User{ID: "u-1"}}
			require.NoError(t, repo.Save(t.Context(), s))
			got, err := repo.Load(t.Context())
			require.NoError(t, err)
			assert.Equal(t, s.Tokens, got.Tokens)

			require.NoError(t, repo.Clear(t.Context()))
			_, err = repo.Load(t.Context())
			assert.ErrorIs(t, err, serviceerr.ErrNotFound)
		})
	}
}

func TestLoginListLogout(t *testing.T) {
	fsys := useMemFs(t)
	backend := &marketBackend{}
	srv := backend.start(t)
	cfg := testConfig(srv.URL + "/api")
	cfg.Application.Name = "oko"

	inv, out := invocation("secret\n")
	require.NoError(t, LoginMain(t.Context(), cfg, inv, LoginInput{Email: "ada@example.com"}))
	assert.Contains(t, out.String(), "Signed in as Ada (farmer)")
	assert.Equal(t, "oko-cli", backend.userAgents.Load())

	exists, err := afero.Exists(fsys, sessionPath(cfg))
	require.NoError(t, err)
	assert.True(t, exists)

	inv, out = invocation("")
	require.NoError(t, ListMain(t.Context(), cfg, inv, "products", OutputYAML))
	assert.Contains(t, out.String(), "name: Maize")

	inv, out = invocation("")
	require.NoError(t, CallMain(t.Context(), cfg, inv, CallInput{Method: "post", Path: "products", Data: `{"name":"Yam"}`}))
	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.String()), &created))
	assert.Equal(t, "p-2", created["id"])

	inv, out = invocation("")
	require.NoError(t, CallMain(t.Context(), cfg, inv, CallInput{Method: "DELETE", Path: "products", Query: map[string]string{"id": "p-2"}}))
	assert.Equal(t, "Product deleted\n", out.String())

	inv, out = invocation("")
	require.NoError(t, WhoAmIMain(t.Context(), cfg, inv, OutputJSON))
	assert.Contains(t, out.String(), `"name": "Ada"`)

	inv, out = invocation("")
	require.NoError(t, LogoutMain(t.Context(), cfg, inv))
	assert.Contains(t, out.String(), "Signed out")

	exists, err = afero.Exists(fsys, sessionPath(cfg))
	require.NoError(t, err)
	assert.False(t, exists)

	inv, out = invocation("")
	require.NoError(t, WhoAmIMain(t.Context(), cfg, inv, OutputJSON))
	assert.Contains(t, out.String(), "Not signed in")
}

func TestLoginWrongPassword(t *testing.T) {
	useMemFs(t)
	srv := (&marketBackend{}).start(t)
	cfg := testConfig(srv.URL + "/api")

	inv, out := invocation("")
	err := LoginMain(t.Context(), cfg, inv, LoginInput{Email: "ada@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, apiclient.KindCredential, apiclient.Classify(err))
	assert.Equal(t, "Invalid credentials\n", out.String())
}

func TestExpiredSessionPromptsLogin(t *testing.T) {
	fsys := useMemFs(t)
	backend := &marketBackend{}
	srv := backend.start(t)
	cfg := testConfig(srv.URL + "/api")

	inv, _ := invocation("")
	require.NoError(t, LoginMain(t.Context(), cfg, inv, LoginInput{Email: "ada@example.com", Password: "secret"}))

	backend.expired.Store(true)

	tests := []struct {
		path    string
		command string
	}{
		{path: "/dashboard", command: "oko login"},
		{path: "/oko-admin/users", command: "oko admin-login"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			inv, _ := invocation("")
			require.NoError(t, LoginMain(t.Context(), cfg, inv, LoginInput{Email: "ada@example.com", Password: "secret"}))

			cfg.Navigation.CurrentPath = tt.path
			inv, out := invocation("")
			err := ListMain(t.Context(), cfg, inv, "products", OutputJSON)
			require.ErrorIs(t, err, apiclient.ErrSessionTerminated)

			assert.Equal(t, 1, strings.Count(out.String(), tt.command))
			assert.Contains(t, out.String(), "Your session has expired. Please log in again.")

			exists, err := afero.Exists(fsys, sessionPath(cfg))
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestListMain_UnknownResource(t *testing.T) {
	inv, _ := invocation("")
	err := ListMain(t.Context(), testConfig("http://localhost/api"), inv, "tractors", OutputJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products")
}

func TestCallMain_Validation(t *testing.T) {
	inv, _ := invocation("")
	cfg := testConfig("http://localhost/api")

	err := CallMain(t.Context(), cfg, inv, CallInput{Method: "TRACE", Path: "products"})
	assert.ErrorContains(t, err, "unsupported method")

	err = CallMain(t.Context(), cfg, inv, CallInput{Method: "POST", Path: "products", Data: "{nope"})
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestRequestBody(t *testing.T) {
	raw, err := requestBody("-", strings.NewReader(`{"name":"Yam"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Yam"}`, string(raw))

	_, err = requestBody("-", nil)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	v := json.RawMessage(`{"id":"p-1","tags":["grain"]}`)

	tests := []struct {
		format    string
		want      string
		errAssert assert.ErrorAssertionFunc
	}{
		{format: OutputJSON, want: "{\n  \"id\": \"p-1\",\n  \"tags\": [\n    \"grain\"\n  ]\n}\n", errAssert: assert.NoError},
		{format: OutputYAML, want: "id: p-1\ntags:\n- grain\n", errAssert: assert.NoError},
		{format: "xml", errAssert: assert.Error},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := render(&buf, tt.format, v)
			tt.errAssert(t, err)
			if err == nil {
				assert.Equal(t, tt.want, buf.String())
			}
		})
	}
}

func TestSecret(t *testing.T) {
	got, err := secret("flag", strings.NewReader("stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "flag", got)

	got, err = secret("", strings.NewReader("from-stdin\r\nrest"))
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", got)

	_, err = secret("", strings.NewReader(""))
	assert.Error(t, err)
}

func TestExplain(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, explain(&buf, nil))

	err := errors.New("plain")
	assert.Equal(t, err, explain(&buf, err))
	assert.Empty(t, buf.String())
}

func TestNavigatorCommand(t *testing.T) {
	nav := config.Navigation{
		CurrentPath:     "/staff/users",
		AdminPrefix:     "/staff",
		AdminLoginRoute: "/staff",
		LoginRoute:      "/signin",
	}

	tests := []struct {
		route   string
		command string
	}{
		{route: "/staff", command: "oko admin-login"},
		{route: "/signin", command: "oko login"},
		{route: "/admin-help", command: "oko login"},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			var out bytes.Buffer
			n := newNavigator(nav, &out)

			assert.Equal(t, "/staff/users", n.CurrentPath())
			require.NoError(t, n.Navigate(t.Context(), tt.route))
			assert.Contains(t, out.String(), "`"+tt.command+"`")
		})
	}
}
