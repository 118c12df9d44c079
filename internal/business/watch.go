package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/oko-market/oko-client/internal/cmdutils"
	"github.com/oko-market/oko-client/internal/config"
	"github.com/oko-market/oko-client/pkg/apiclient"
	"github.com/oko-market/oko-client/pkg/marketplace"
)

// WatchNotificationsMain polls the notifications and prints unread ones as
// they appear, until the context ends or the session is terminated.
func WatchNotificationsMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, interval time.Duration) error {
	if interval <= 0 {
		interval = cfg.Watch.Interval
	}
	if interval <= 0 {
		return errors.New("watch interval must be positive")
	}

	client, closeFn, err := initClient(ctx, cfg, inv.Out)
	if err != nil {
		return err
	}
	defer closeFn()

	slogctx.Info(ctx, "Starting notification watch", "interval", interval)
	return watchNotifications(ctx, marketplace.NewNotifications(client), inv, interval)
}

func watchNotifications(ctx context.Context, store *marketplace.Notifications, inv cmdutils.Invocation, interval time.Duration) error {
	seen := make(map[string]struct{})

	c := time.Tick(interval)
	for {
		slogctx.Debug(ctx, "Polling notifications")
		items, err := store.Fetch(ctx)
		switch {
		case errors.Is(err, apiclient.ErrSessionTerminated):
			return explain(inv.Out, err)
		case err != nil:
			slogctx.Error(ctx, "Failed to poll notifications", "error", err)
		default:
			for _, n := range items {
				if _, ok := seen[n.ID]; ok || n.Read {
					continue
				}
				seen[n.ID] = struct{}{}
				if _, err := fmt.Fprintf(inv.Out, "[%s] %s: %s\n", n.CreatedAt.Format(time.DateTime), n.Title, n.Body); err != nil {
					return err
				}
			}
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}
