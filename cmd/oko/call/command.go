package call

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oko-market/oko-client/internal/business"
	"github.com/oko-market/oko-client/internal/cmdutils"
	"github.com/oko-market/oko-client/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	var in business.CallInput

	cmd := cmdutils.CobraCommand(
		"call METHOD PATH",
		"Send an authenticated request",
		"Send an authenticated request to the marketplace API and print the response data.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
			in.Method, in.Path = inv.Args[0], inv.Args[1]
			return business.CallMain(ctx, cfg, inv, in)
		},
	)
	cmd.Args = cobra.ExactArgs(2)
	cmd.Flags().StringVarP(&in.Data, "data", "d", "", `JSON request body, "-" reads stdin`)
	cmd.Flags().StringToStringVarP(&in.Query, "query", "q", nil, "query parameters")
	cmd.Flags().StringVarP(&in.Output, "output", "o", business.OutputJSON, "json or yaml")

	return cmd
}

func ListCmd(buildInfo string) *cobra.Command {
	var output string

	cmd := cmdutils.CobraCommand(
		"list RESOURCE",
		"List a marketplace resource",
		fmt.Sprintf("List a marketplace resource, one of: %s.", strings.Join(business.ListResources(), ", ")),
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
			return business.ListMain(ctx, cfg, inv, inv.Args[0], output)
		},
	)
	cmd.Args = cobra.ExactArgs(1)
	cmd.ValidArgs = business.ListResources()
	cmd.Flags().StringVarP(&output, "output", "o", business.OutputJSON, "json or yaml")

	return cmd
}
