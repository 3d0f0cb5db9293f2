package votes

import (
	"context"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// The AuthMiddleware validates necessary authorizations for the votes
// service public interface. Casting a vote needs an authenticated
// principal, reading the vote state is open to anonymous callers (they
// simply never have a vote of their own).
type AuthMiddleware struct {
	Next Service
}

func (am *AuthMiddleware) Vote(ctx context.Context, gallery, image string, mode Mode) (store.Photo, error) {
	_, err := auth.RequireAuthenticated(ctx)
	if err != nil {
		return store.Photo{}, err
	}
	return am.Next.Vote(ctx, gallery, image, mode)
}

func (am *AuthMiddleware) State(ctx context.Context, gallery, image string) (store.Photo, error) {
	return am.Next.State(ctx, gallery, image)
}
