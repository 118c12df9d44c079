package apiclient

import (
	"context"
	"strings"
)

// Navigator moves the user to another route of the application.
type Navigator interface {
	CurrentPath() string
	Navigate(ctx context.Context, route string) error
}

// Routes names the login destinations used after an unrecoverable auth failure.
type Routes struct {
	AdminPrefix string
	AdminLogin  string
	Login       string
}

func DefaultRoutes() Routes {
	return Routes{
		AdminPrefix: "/oko-admin",
		AdminLogin:  "/oko-admin",
		Login:       "/login",
	}
}

// LoginRoute picks the admin login for admin area paths and the general
// login for everything else.
func LoginRoute(currentPath string, r Routes) string {
	if r.AdminPrefix != "" && strings.HasPrefix(currentPath, r.AdminPrefix) {
		return r.AdminLogin
	}

	return r.Login
}

// PathNavigator reports a fixed current path and delegates navigation to Go.
type PathNavigator struct {
	Path string
	Go   func(ctx context.Context, route string) error
}

func (n PathNavigator) CurrentPath() string {
	return n.Path
}

func (n PathNavigator) Navigate(ctx context.Context, route string) error {
	if n.Go == nil {
		return nil
	}

	return n.Go(ctx, route)
}
