// Package auth implements the account operations of the marketplace
// backend. They are exempt from the token refresh cycle: a 401 on them means
// the credentials were wrong, not that the session expired.
package auth

import (
	"context"
	"errors"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/oko-market/oko-client/internal/serviceerr"
	"github.com/oko-market/oko-client/pkg/apiclient"
	"github.com/oko-market/oko-client/pkg/session"
)

const authPath = "auth"

const (
	actionLogin         = "login"
	actionRegister      = "register"
	actionVerifyOTP     = "verify-otp"
	actionResendOTP     = "resend-otp"
	actionResetPassword = "reset-password"
	actionLogout        = "logout"
)

var (
	ErrNotAdmin    = serviceerr.ErrNotAdmin
	ErrOTPRequired = serviceerr.ErrOTPRequired
)

// API is the part of the HTTP client the auth operations need.
type API interface {
	Post(ctx context.Context, path string, body any, opts ...apiclient.RequestOption) (*apiclient.Envelope, error)
	StartSession(ctx context.Context, s session.Session) error
	EndSession(ctx context.Context) error
}

type Credentials struct {
	Email    string       `json:"email,omitempty"`
	Phone    string       `json:"phone,omitempty"`
	Password string       `json:"password"`
	Role     session.Role `json:"role,omitempty"`
}

type Registration struct {
	Name     string       `json:"name"`
	Email    string       `json:"email,omitempty"`
	Phone    string       `json:"phone,omitempty"`
	Password string       `json:"password"`
	Role     session.Role `json:"role"`
}

type OTPVerification struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	OTP   string `json:"otp"`
}

type PasswordReset struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// grant is the data of a successful login or OTP verification.
type grant struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	User         *session.User `json:"user"`
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// Login authenticates with credentials and starts the session.
func (s *Service) Login(ctx context.Context, c Credentials) (session.Session, error) {
	sess, err := s.obtain(ctx, struct {
		Action string `json:"action"`
		Credentials
	}{actionLogin, c})
	if err != nil {
		return session.Session{}, err
	}

	if err := s.api.StartSession(ctx, sess); err != nil {
		return session.Session{}, err
	}
	slogctx.Info(ctx, "Logged in", "userID", sess.User.ID, "role", sess.User.Role)

	return sess, nil
}

// AdminLogin is Login against the administrator role. A non-admin account is
// refused and nothing is stored.
func (s *Service) AdminLogin(ctx context.Context, c Credentials) (session.Session, error) {
	c.Role = session.RoleAdmin

	sess, err := s.obtain(ctx, struct {
		Action string `json:"action"`
		Credentials
	}{actionLogin, c})
	if err != nil {
		return session.Session{}, err
	}
	if !sess.IsAdmin() {
		slogctx.Warn(ctx, "Admin login refused for non-admin account", "userID", sess.User.ID, "role", sess.User.Role)
		return session.Session{}, ErrNotAdmin
	}

	if err := s.api.StartSession(ctx, sess); err != nil {
		return session.Session{}, err
	}
	slogctx.Info(ctx, "Admin logged in", "userID", sess.User.ID)

	return sess, nil
}

// Register creates an account. The backend answers with a message and sends
// an OTP for verification.
func (s *Service) Register(ctx context.Context, r Registration) (string, error) {
	return s.message(ctx, struct {
		Action string `json:"action"`
		Registration
	}{actionRegister, r})
}

// VerifyOTP confirms an account and starts the session it grants.
func (s *Service) VerifyOTP(ctx context.Context, v OTPVerification) (session.Session, error) {
	sess, err := s.obtain(ctx, struct {
		Action string `json:"action"`
		OTPVerification
	}{actionVerifyOTP, v})
	if err != nil {
		return session.Session{}, err
	}

	if err := s.api.StartSession(ctx, sess); err != nil {
		return session.Session{}, err
	}

	return sess, nil
}

func (s *Service) ResendOTP(ctx context.Context, identifier string) (string, error) {
	return s.message(ctx, map[string]string{
		"action":     actionResendOTP,
		"identifier": identifier,
	})
}

func (s *Service) ResetPassword(ctx context.Context, r PasswordReset) (string, error) {
	return s.message(ctx, struct {
		Action string `json:"action"`
		PasswordReset
	}{actionResetPassword, r})
}

// Logout tells the backend and ends the local session. The server call is
// best effort; the local session is removed regardless.
func (s *Service) Logout(ctx context.Context) error {
	_, err := s.api.Post(ctx, authPath, map[string]string{"action": actionLogout}, apiclient.WithSkipAuthRefresh())
	if err != nil {
		slogctx.Warn(ctx, "Server logout failed", "error", err)
	}

	if err := s.api.EndSession(ctx); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	slogctx.Info(ctx, "Logged out")

	return nil
}

// obtain posts body and turns the returned grant into a session.
func (s *Service) obtain(ctx context.Context, body any) (session.Session, error) {
	env, err := s.api.Post(ctx, authPath, body, apiclient.WithSkipAuthRefresh())
	if err != nil {
		return session.Session{}, err
	}

	g, err := apiclient.DecodeData[grant](env)
	if err != nil && !errors.Is(err, apiclient.ErrNoData) {
		return session.Session{}, err
	}
	if g.AccessToken == "" || g.RefreshToken == "" || g.User == nil {
		return session.Session{}, fmt.Errorf("%w: %s", ErrOTPRequired, env.Message)
	}

	return session.Session{
		Tokens: session.Tokens{AccessToken: g.AccessToken, RefreshToken: g.RefreshToken},
		User:   g.User,
	}, nil
}

func (s *Service) message(ctx context.Context, body any) (string, error) {
	env, err := s.api.Post(ctx, authPath, body, apiclient.WithSkipAuthRefresh())
	if err != nil {
		return "", err
	}

	return string(env.Message), nil
}
