package auth

import (
	"context"
	"errors"
	"strings"
)

// The authenticated caller of an operation. Authentication itself happens
// outside of this application (an OpenID-aware front proxy), services only
// authorize based on the user name and the admin flag.
type Principal struct {
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

// Report whether the principal carries an authenticated user.
func (p Principal) Authenticated() bool {
	return p.Name != ""
}

// The Authenticator resolves the user name handed over by the identity
// collaborator into a Principal, marking users found in the configured
// administrators list.
type Authenticator struct {
	admins map[string]struct{}
}

func NewAuthenticator(admins []string) *Authenticator {
	set := make(map[string]struct{}, len(admins))
	for _, admin := range admins {
		set[strings.ToLower(admin)] = struct{}{}
	}
	return &Authenticator{admins: set}
}

// Build the principal for a user name. An empty name yields the anonymous
// principal, which can read public data but not vote or upload.
func (a *Authenticator) Resolve(userName string) Principal {
	if userName == "" {
		return Principal{}
	}
	_, admin := a.admins[strings.ToLower(userName)]
	return Principal{
		Name:  userName,
		Admin: admin,
	}
}

// Declare a private type to be used in contexts to avoid key collisions.
type privateKey string

const principalContextKey privateKey = "principal"

// Set the principal into the context.
func ContextSetPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// Retrieve the principal from a context. A context without a principal
// yields the anonymous principal, not an error: read-only operations are
// open to anonymous callers.
func ContextGetPrincipal(ctx context.Context) Principal {
	principal, ok := ctx.Value(principalContextKey).(Principal)
	if !ok {
		return Principal{}
	}
	return principal
}

// Retrieve the principal from a context, failing if the caller is not
// authenticated. Used by operations that mutate state.
func RequireAuthenticated(ctx context.Context) (Principal, error) {
	principal := ContextGetPrincipal(ctx)
	if !principal.Authenticated() {
		return Principal{}, ErrUnauthenticated
	}
	return principal, nil
}

// Retrieve the principal from a context, failing if the caller is not an
// administrator.
func RequireAdmin(ctx context.Context) (Principal, error) {
	principal, err := RequireAuthenticated(ctx)
	if err != nil {
		return Principal{}, err
	}
	if !principal.Admin {
		return Principal{}, ErrNotAdmin
	}
	return principal, nil
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotAdmin        = errors.New("administrator rights required")
)
