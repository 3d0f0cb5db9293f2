package votes

import (
	"context"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/validator"
)

// The ValidationMiddleware validates incoming data of each request,
// rejecting them if some pieces of needed information are missing or
// malformed. The middleware makes sure the next service in the chain
// will receive valid data.
type ValidationMiddleware struct {
	Next Service
}

func (vm *ValidationMiddleware) Vote(ctx context.Context, gallery, image string, mode Mode) (store.Photo, error) {
	v := validator.New()
	validator.ValidateGalleryName(v, gallery)
	validator.ValidateImageName(v, image)
	if !v.Ok() {
		return store.Photo{}, v
	}
	return vm.Next.Vote(ctx, gallery, image, mode)
}

func (vm *ValidationMiddleware) State(ctx context.Context, gallery, image string) (store.Photo, error) {
	v := validator.New()
	validator.ValidateGalleryName(v, gallery)
	validator.ValidateImageName(v, image)
	if !v.Ok() {
		return store.Photo{}, v
	}
	return vm.Next.State(ctx, gallery, image)
}
