package business

import (
	"context"
	"fmt"
	"io"

	slogctx "github.com/veqryn/slog-context"

	"github.com/oko-market/oko-client/internal/config"
	"github.com/oko-market/oko-client/pkg/apiclient"
)

// newNavigator maps login routes onto the CLI commands that serve them.
func newNavigator(nav config.Navigation, out io.Writer) apiclient.Navigator {
	return apiclient.PathNavigator{
		Path: nav.CurrentPath,
		Go: func(ctx context.Context, route string) error {
			command := "login"
			if route == nav.AdminLoginRoute {
				command = "admin-login"
			}
			slogctx.Info(ctx, "Navigating to login", "route", route, "command", command)

			_, err := fmt.Fprintf(out, "Your session has expired. Run `oko %s` to sign in again.\n", command)
			return err
		},
	}
}
