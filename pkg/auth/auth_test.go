package auth

import (
	"context"
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	authenticator := NewAuthenticator([]string{"Admin@example.com"})

	principal := authenticator.Resolve("alice")
	if !principal.Authenticated() || principal.Admin {
		t.Fatalf("unexpected principal for regular user: %+v", principal)
	}

	// The admin list match is case-insensitive.
	principal = authenticator.Resolve("ADMIN@example.com")
	if !principal.Admin {
		t.Fatalf("expected an admin principal, got %+v", principal)
	}

	principal = authenticator.Resolve("")
	if principal.Authenticated() {
		t.Fatalf("empty user name must resolve to anonymous, got %+v", principal)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := ContextSetPrincipal(context.Background(), Principal{Name: "alice"})
	if got := ContextGetPrincipal(ctx); got.Name != "alice" {
		t.Fatalf("principal lost in context: %+v", got)
	}

	// A bare context yields the anonymous principal, not an error.
	if got := ContextGetPrincipal(context.Background()); got.Authenticated() {
		t.Fatalf("expected anonymous principal, got %+v", got)
	}
}

func TestRequireAuthenticated(t *testing.T) {
	_, err := RequireAuthenticated(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	ctx := ContextSetPrincipal(context.Background(), Principal{Name: "alice"})
	principal, err := RequireAuthenticated(ctx)
	if err != nil || principal.Name != "alice" {
		t.Fatalf("unexpected result: %+v, %v", principal, err)
	}
}

func TestRequireAdmin(t *testing.T) {
	ctx := ContextSetPrincipal(context.Background(), Principal{Name: "alice"})
	_, err := RequireAdmin(ctx)
	if !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}

	ctx = ContextSetPrincipal(context.Background(), Principal{Name: "root", Admin: true})
	principal, err := RequireAdmin(ctx)
	if err != nil || !principal.Admin {
		t.Fatalf("unexpected result: %+v, %v", principal, err)
	}
}
