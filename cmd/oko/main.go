package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/oko-market/oko-client/cmd/oko/account"
	"github.com/oko-market/oko-client/cmd/oko/call"
	"github.com/oko-market/oko-client/cmd/oko/watch"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "{}"

	isVersionCmd     bool
	gracefulShutdown time.Duration
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Oko client version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		isVersionCmd = true

		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), value)

		return nil
	},
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "oko",
		Short:        "Oko marketplace client",
		Long:         "Command line client for the Oko agricultural marketplace. Keeps a session and refreshes it transparently.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().DurationVar(&gracefulShutdown, "graceful-shutdown", 0, "graceful shutdown")

	cmd.AddCommand(versionCmd)
	cmd.AddCommand(account.Cmds(BuildInfo)...)
	cmd.AddCommand(
		call.Cmd(BuildInfo),
		call.ListCmd(BuildInfo),
		watch.Cmd(BuildInfo),
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancelOnSignal()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slogctx.Error(ctx, "command failed", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	if !isVersionCmd && gracefulShutdown > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "Graceful shutdown in %s\n", gracefulShutdown)
		time.Sleep(gracefulShutdown)
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
