package session

import (
	"time"

	"github.com/oko-market/oko-client/internal/serviceerr"
)

type Role string

const (
	RoleFarmer    Role = "farmer"
	RoleProcessor Role = "processor"
	RoleAdmin     Role = "admin"
)

// Tokens is the bearer token pair issued by the backend on login.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// User is the authenticated profile returned with the tokens.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	Verified  bool      `json:"verified"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session represents the persisted login of this client.
type Session struct {
	Tokens Tokens
	User   *User
}

// Validate enforces that a session carries both tokens or neither, and that a
// session with a user is never without its tokens.
func (s Session) Validate() error {
	hasAccess := s.Tokens.AccessToken != ""
	hasRefresh := s.Tokens.RefreshToken != ""

	if hasAccess != hasRefresh {
		return serviceerr.ErrPartialSession
	}
	if s.User != nil && !hasAccess {
		return serviceerr.ErrPartialSession
	}

	return nil
}

func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.Tokens.AccessToken != "" && s.Tokens.RefreshToken != ""
}

func (s Session) IsAdmin() bool {
	return s.User != nil && s.User.Role == RoleAdmin
}

// WithAccessToken returns a copy of the session with the access token replaced.
// The refresh token and the user are left untouched.
func (s Session) WithAccessToken(token string) Session {
	s.Tokens.AccessToken = token
	return s
}
