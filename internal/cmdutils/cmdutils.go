package cmdutils

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/oko-market/oko-client/internal/config"
)

// Invocation carries what a command was called with.
type Invocation struct {
	Args []string
	In   io.Reader
	Out  io.Writer
}

// BusinessFunc is the body of a command.
type BusinessFunc func(ctx context.Context, cfg *config.Config, inv Invocation) error

// WrapperFunc prepares the process (logger, telemetry) around a command body.
type WrapperFunc func(ctx context.Context, fn func(context.Context, *config.Config) error, cfg *config.Config) error

func CobraCommand(
	use, short, long, buildInfo string,
	wrapperFunc WrapperFunc,
	businessFunc BusinessFunc,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(buildInfo)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			inv := Invocation{Args: args, In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
			err = wrapperFunc(cmd.Context(), func(ctx context.Context, cfg *config.Config) error {
				return businessFunc(ctx, cfg, inv)
			}, cfg)
			if err != nil {
				return fmt.Errorf("running %s: %w", cmd.Name(), err)
			}

			return nil
		},
	}
}

// RunAsJob runs a one shot command with logging only.
func RunAsJob(ctx context.Context, fn func(context.Context, *config.Config) error, cfg *config.Config) error {
	return run(ctx, false, fn, cfg)
}

// RunWithTelemetry additionally exports metrics and traces.
func RunWithTelemetry(ctx context.Context, fn func(context.Context, *config.Config) error, cfg *config.Config) error {
	return run(ctx, true, fn, cfg)
}

func run(ctx context.Context, withTelemetry bool, fn func(context.Context, *config.Config) error, cfg *config.Config) error {
	// LoggerConfig
	err := logger.InitAsDefault(cfg.Logger, cfg.Application)
	if err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to initialise the logger")
	}
	slogctx.Debug(ctx, "Starting the command", slog.Any("api", cfg.API), slog.Any("storage", cfg.Storage.Type))

	// OpenTelemetry
	if withTelemetry {
		err = otlp.Init(ctx, &cfg.Application, &cfg.Telemetry, &cfg.Logger)
		if err != nil {
			return oops.In("main").Wrapf(err, "Failed to load the telemetry")
		}
	}

	// Business Logic
	err = fn(ctx, cfg)
	if err != nil {
		return oops.In("main").Wrapf(err, "Command failed")
	}

	return nil
}

func loadConfig(buildInfo string) (*config.Config, error) {
	defaultValues := map[string]any{}
	cfg := &config.Config{}

	err := commoncfg.LoadConfig(
		cfg,
		defaultValues,
		"/etc/oko",
		"$HOME/.oko",
		".",
	)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	// Update Version
	err = commoncfg.UpdateConfigVersion(
		&cfg.BaseConfig,
		buildInfo,
	)
	if err != nil {
		return nil, fmt.Errorf("updating the version configuration: %w", err)
	}

	return cfg, nil
}
