package business

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oko-market/oko-client/internal/cmdutils"
	"github.com/oko-market/oko-client/internal/config"
	"github.com/oko-market/oko-client/internal/serviceerr"
	"github.com/oko-market/oko-client/pkg/apiclient"
	"github.com/oko-market/oko-client/pkg/auth"
	"github.com/oko-market/oko-client/pkg/session"
)

type LoginInput struct {
	Email    string
	Phone    string
	Password string
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
}

type VerifyOTPInput struct {
	Email string
	Phone string
	OTP   string
}

type ResetPasswordInput struct {
	Email       string
	OTP         string
	NewPassword string
}

func LoginMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, in LoginInput) error {
	return login(ctx, cfg, inv, in, false)
}

func AdminLoginMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, in LoginInput) error {
	return login(ctx, cfg, inv, in, true)
}

func login(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, in LoginInput, admin bool) error {
	password, err := secret(in.Password, inv.In)
	if err != nil {
		return err
	}

	return withAuth(ctx, cfg, inv, func(svc *auth.Service) error {
		creds := auth.Credentials{Email: in.Email, Phone: in.Phone, Password: password}

		var s session.Session
		if admin {
			s, err = svc.AdminLogin(ctx, creds)
		} else {
			s, err = svc.Login(ctx, creds)
		}
		if err != nil {
			if errors.Is(err, auth.ErrOTPRequired) {
				_, _ = fmt.Fprintln(inv.Out, "Account not verified. Run `oko verify-otp` with the code you received.")
			}
			return err
		}

		_, err = fmt.Fprintf(inv.Out, "Signed in as %s (%s)\n", s.User.Name, s.User.Role)
		return err
	})
}

func RegisterMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, in RegisterInput) error {
	password, err := secret(in.Password, inv.In)
	if err != nil {
		return err
	}

	return withAuth(ctx, cfg, inv, func(svc *auth.Service) error {
		msg, err := svc.Register(ctx, auth.Registration{
			Name:     in.Name,
			Email:    in.Email,
			Phone:    in.Phone,
			Password: password,
			Role:     session.Role(in.Role),
		})
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(inv.Out, msg)
		return err
	})
}

func VerifyOTPMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, in VerifyOTPInput) error {
	return withAuth(ctx, cfg, inv, func(svc *auth.Service) error {
		s, err := svc.VerifyOTP(ctx, auth.OTPVerification{Email: in.Email, Phone: in.Phone, OTP: in.OTP})
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(inv.Out, "Account verified. Signed in as %s (%s)\n", s.User.Name, s.User.Role)
		return err
	})
}

func ResendOTPMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, identifier string) error {
	return withAuth(ctx, cfg, inv, func(svc *auth.Service) error {
		msg, err := svc.ResendOTP(ctx, identifier)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(inv.Out, msg)
		return err
	})
}

func ResetPasswordMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, in ResetPasswordInput) error {
	password, err := secret(in.NewPassword, inv.In)
	if err != nil {
		return err
	}

	return withAuth(ctx, cfg, inv, func(svc *auth.Service) error {
		msg, err := svc.ResetPassword(ctx, auth.PasswordReset{Email: in.Email, OTP: in.OTP, NewPassword: password})
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(inv.Out, msg)
		return err
	})
}

func LogoutMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation) error {
	return withAuth(ctx, cfg, inv, func(svc *auth.Service) error {
		if err := svc.Logout(ctx); err != nil {
			return err
		}

		_, err := fmt.Fprintln(inv.Out, "Signed out")
		return err
	})
}

type whoAmI struct {
	User           *session.User `json:"user"`
	AccessExpiry   *time.Time    `json:"accessTokenExpiry,omitempty"`
	AccessExpired  bool          `json:"accessTokenExpired"`
	RefreshPresent bool          `json:"refreshTokenPresent"`
}

// WhoAmIMain prints the stored session without contacting the backend.
func WhoAmIMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, output string) error {
	repo, closeFn, err := initSessionRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising session storage: %w", err)
	}
	defer closeFn()

	s, err := repo.Load(ctx)
	if errors.Is(err, serviceerr.ErrNotFound) || (err == nil && !s.IsAuthenticated()) {
		_, err = fmt.Fprintln(inv.Out, "Not signed in. Run `oko login`.")
		return err
	}
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	info := whoAmI{User: s.User, RefreshPresent: s.Tokens.RefreshToken != ""}
	if exp, ok := session.AccessTokenExpiry(s.Tokens.AccessToken); ok {
		info.AccessExpiry = &exp
		info.AccessExpired = time.Now().After(exp)
	}

	return render(inv.Out, output, info)
}

func withAuth(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, fn func(*auth.Service) error) error {
	client, closeFn, err := initClient(ctx, cfg, inv.Out)
	if err != nil {
		return err
	}
	defer closeFn()

	return explain(inv.Out, fn(auth.NewService(client)))
}

// explain prints the user facing text of err and passes err on.
func explain(out io.Writer, err error) error {
	if err == nil {
		return nil
	}
	if msg := apiclient.UserMessage(err); msg != "" && apiclient.Classify(err) != apiclient.KindUnknown {
		_, _ = fmt.Fprintln(out, msg)
	}

	return err
}

// secret returns value, or the first line of in when value is empty.
func secret(value string, in io.Reader) (string, error) {
	if value != "" {
		return value, nil
	}
	if in == nil {
		return "", errors.New("no password given")
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given")
	}

	return line, nil
}
