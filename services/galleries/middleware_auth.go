package galleries

import (
	"context"
	"time"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/filters"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// The AuthMiddleware validates necessary authorizations for the galleries
// service public interface. Listings and settings reads are public,
// gallery lifecycle and settings changes are administrator actions.
type AuthMiddleware struct {
	Next Service
}

func (am *AuthMiddleware) List(ctx context.Context, top int) ([]store.Gallery, error) {
	return am.Next.List(ctx, top)
}

func (am *AuthMiddleware) Get(ctx context.Context, name string, details bool, filter filters.Input) (store.Gallery, error) {
	return am.Next.Get(ctx, name, details, filter)
}

func (am *AuthMiddleware) LastChange(ctx context.Context, name string) (time.Time, error) {
	return am.Next.LastChange(ctx, name)
}

func (am *AuthMiddleware) Create(ctx context.Context, name string) (store.Gallery, error) {
	_, err := auth.RequireAdmin(ctx)
	if err != nil {
		return store.Gallery{}, err
	}
	return am.Next.Create(ctx, name)
}

func (am *AuthMiddleware) Remove(ctx context.Context, name string) error {
	_, err := auth.RequireAdmin(ctx)
	if err != nil {
		return err
	}
	return am.Next.Remove(ctx, name)
}

func (am *AuthMiddleware) Settings(ctx context.Context, name string) (store.Setting, error) {
	return am.Next.Settings(ctx, name)
}

func (am *AuthMiddleware) SaveSettings(ctx context.Context, name string, setting store.Setting) (store.Setting, error) {
	_, err := auth.RequireAdmin(ctx)
	if err != nil {
		return store.Setting{}, err
	}
	return am.Next.SaveSettings(ctx, name, setting)
}
