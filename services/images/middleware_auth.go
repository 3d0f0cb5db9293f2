package images

import (
	"context"
	"io"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// The AuthMiddleware validates necessary authorizations for the images
// service public interface. Mutations need an authenticated caller, the
// owner and admin rules live in the core service.
type AuthMiddleware struct {
	Next Service
}

func (am *AuthMiddleware) Upload(ctx context.Context, gallery, fileName string, r io.Reader) (store.Photo, error) {
	_, err := auth.RequireAuthenticated(ctx)
	if err != nil {
		return store.Photo{}, err
	}
	return am.Next.Upload(ctx, gallery, fileName, r)
}

func (am *AuthMiddleware) Delete(ctx context.Context, gallery, image string) error {
	_, err := auth.RequireAuthenticated(ctx)
	if err != nil {
		return err
	}
	return am.Next.Delete(ctx, gallery, image)
}

func (am *AuthMiddleware) Get(ctx context.Context, gallery, image string) (store.Photo, error) {
	return am.Next.Get(ctx, gallery, image)
}

func (am *AuthMiddleware) Thumbnail(ctx context.Context, gallery, image string, width, height int) (store.ImageFile, error) {
	return am.Next.Thumbnail(ctx, gallery, image, width, height)
}
