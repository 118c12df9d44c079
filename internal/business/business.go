package business

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/afero"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/oko-market/oko-client/internal/config"
	"github.com/oko-market/oko-client/internal/serviceerr"
	"github.com/oko-market/oko-client/pkg/apiclient"
	"github.com/oko-market/oko-client/pkg/session"
	sessionbolt "github.com/oko-market/oko-client/pkg/session/bolt"
	sessionfile "github.com/oko-market/oko-client/pkg/session/file"
	sessionvalkey "github.com/oko-market/oko-client/pkg/session/valkey"
)

// osFs is replaced in tests.
var osFs = afero.NewOsFs()

// initClient builds the authenticated client on top of the configured session
// storage. closeFn releases the storage.
func initClient(ctx context.Context, cfg *config.Config, out io.Writer) (_ *apiclient.Client, closeFn func(), _ error) {
	repo, closeFn, err := initSessionRepository(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialising session storage: %w", err)
	}

	client, err := apiclient.New(apiclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Routes: apiclient.Routes{
			AdminPrefix: cfg.Navigation.AdminPrefix,
			AdminLogin:  cfg.Navigation.AdminLoginRoute,
			Login:       cfg.Navigation.LoginRoute,
		},
		HTTPClient: &http.Client{
			Transport: &userAgentRoundTripper{
				userAgent: userAgent(cfg),
				next:      http.DefaultTransport,
			},
		},
	}, repo, newNavigator(cfg.Navigation, out))
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("creating api client: %w", err)
	}

	return client, closeFn, nil
}

func initSessionRepository(ctx context.Context, cfg *config.Config) (_ session.Repository, closeFn func(), _ error) {
	var (
		repo session.Repository
		err  error
	)
	closeFn = func() {}

	switch cfg.Storage.Type {
	case config.StorageTypeFile, "":
		repo, err = sessionfile.NewRepository(osFs, os.ExpandEnv(cfg.Storage.File.Dir), cfg.Storage.Key)
		if err != nil {
			return nil, nil, err
		}
	case config.StorageTypeBolt:
		boltRepo, err := sessionbolt.NewRepositoryFromFile(os.ExpandEnv(cfg.Storage.Bolt.Path), cfg.Storage.Bolt.Bucket, cfg.Storage.Key, nil)
		if err != nil {
			return nil, nil, err
		}
		repo = boltRepo
		closeFn = func() {
			if err := boltRepo.Close(); err != nil {
				slogctx.Warn(ctx, "Failed to close session database", "error", err)
			}
		}
	case config.StorageTypeValKey:
		opts, err := config.MakeValKeyOptions(cfg.Storage.ValKey)
		if err != nil {
			return nil, nil, fmt.Errorf("making valkey options from config: %w", err)
		}

		valkeyClient, err := valkey.NewClient(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("creating a new valkey client: %w", err)
		}
		repo = sessionvalkey.NewRepository(valkeyClient, cfg.Storage.ValKey.Prefix, cfg.Storage.Key)
		closeFn = valkeyClient.Close
	default:
		return nil, nil, fmt.Errorf("%w: %q", serviceerr.ErrUnsupportedStorage, cfg.Storage.Type)
	}

	slogctx.Debug(ctx, "Session storage initialised", "type", cfg.Storage.Type, "key", cfg.Storage.Key)

	if cfg.Storage.CacheTTL > 0 {
		repo = session.NewCachedRepository(repo, cfg.Storage.CacheTTL)
	}

	return repo, closeFn, nil
}

func userAgent(cfg *config.Config) string {
	name := cfg.Application.Name
	if name == "" {
		name = "oko"
	}

	return name + "-cli"
}

type userAgentRoundTripper struct {
	userAgent string
	next      http.RoundTripper
}

func (t *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)

	return t.next.RoundTrip(req)
}
