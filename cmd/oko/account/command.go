package account

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oko-market/oko-client/internal/business"
	"github.com/oko-market/oko-client/internal/cmdutils"
	"github.com/oko-market/oko-client/internal/config"
)

// Cmds returns the account commands. Passwords not given as flags are read
// from the first line of stdin.
func Cmds(buildInfo string) []*cobra.Command {
	return []*cobra.Command{
		loginCmd(buildInfo, "login", "Sign in to the marketplace", business.LoginMain),
		loginCmd(buildInfo, "admin-login", "Sign in as an administrator", business.AdminLoginMain),
		registerCmd(buildInfo),
		verifyOTPCmd(buildInfo),
		resendOTPCmd(buildInfo),
		resetPasswordCmd(buildInfo),
		logoutCmd(buildInfo),
		whoAmICmd(buildInfo),
	}
}

type loginFunc func(context.Context, *config.Config, cmdutils.Invocation, business.LoginInput) error

func loginCmd(buildInfo, use, short string, fn loginFunc) *cobra.Command {
	var in business.LoginInput

	cmd := cmdutils.CobraCommand(
		use,
		short,
		short+". The session is stored in the configured storage.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
			return fn(ctx, cfg, inv, in)
		},
	)
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "account phone number")
	cmd.Flags().StringVar(&in.Password, "password", "", "password, read from stdin when empty")
	cmd.MarkFlagsOneRequired("email", "phone")

	return cmd
}

func registerCmd(buildInfo string) *cobra.Command {
	var in business.RegisterInput

	cmd := cmdutils.CobraCommand(
		"register",
		"Create a marketplace account",
		"Create a farmer or processor account. A one time code is sent for verification.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
			return business.RegisterMain(ctx, cfg, inv, in)
		},
	)
	cmd.Flags().StringVar(&in.Name, "name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "account phone number")
	cmd.Flags().StringVar(&in.Password, "password", "", "password, read from stdin when empty")
	cmd.Flags().StringVar(&in.Role, "role", "farmer", "farmer or processor")
	_ = cmd.MarkFlagRequired("name")
	cmd.MarkFlagsOneRequired("email", "phone")

	return cmd
}

func verifyOTPCmd(buildInfo string) *cobra.Command {
	var in business.VerifyOTPInput

	cmd := cmdutils.CobraCommand(
		"verify-otp",
		"Verify an account with a one time code",
		"Verify an account with the one time code it received and sign in.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
			return business.VerifyOTPMain(ctx, cfg, inv, in)
		},
	)
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "account phone number")
	cmd.Flags().StringVar(&in.OTP, "otp", "", "one time code")
	_ = cmd.MarkFlagRequired("otp")
	cmd.MarkFlagsOneRequired("email", "phone")

	return cmd
}

func resendOTPCmd(buildInfo string) *cobra.Command {
	cmd := cmdutils.CobraCommand(
		"resend-otp EMAIL|PHONE",
		"Send a new one time code",
		"Send a new one time code to the given email or phone number.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
			return business.ResendOTPMain(ctx, cfg, inv, inv.Args[0])
		},
	)
	cmd.Args = cobra.ExactArgs(1)

	return cmd
}

func resetPasswordCmd(buildInfo string) *cobra.Command {
	var in business.ResetPasswordInput

	cmd := cmdutils.CobraCommand(
		"reset-password",
		"Reset a forgotten password",
		"Reset a forgotten password with the one time code sent to the account email.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
			return business.ResetPasswordMain(ctx, cfg, inv, in)
		},
	)
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.OTP, "otp", "", "one time code")
	cmd.Flags().StringVar(&in.NewPassword, "new-password", "", "new password, read from stdin when empty")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("otp")

	return cmd
}

func logoutCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"logout",
		"Sign out",
		"Sign out and remove the stored session.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
			return business.LogoutMain(ctx, cfg, inv)
		},
	)
}

func whoAmICmd(buildInfo string) *cobra.Command {
	var output string

	cmd := cmdutils.CobraCommand(
		"whoami",
		"Show the signed in user",
		"Show the signed in user and the state of the stored tokens.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
			return business.WhoAmIMain(ctx, cfg, inv, output)
		},
	)
	cmd.Flags().StringVarP(&output, "output", "o", business.OutputJSON, "json or yaml")

	return cmd
}
