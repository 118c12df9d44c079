package watch

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/oko-market/oko-client/internal/business"
	"github.com/oko-market/oko-client/internal/cmdutils"
	"github.com/oko-market/oko-client/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	var interval time.Duration

	cmd := cmdutils.CobraCommand(
		"watch notifications",
		"Watch for new notifications",
		"Poll the notifications and print unread ones as they arrive.",
		buildInfo,
		cmdutils.RunWithTelemetry,
		func(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
			return business.WatchNotificationsMain(ctx, cfg, inv, interval)
		},
	)
	cmd.Args = cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)
	cmd.ValidArgs = []string{"notifications"}
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval, defaults to watch.interval from the config")

	return cmd
}
