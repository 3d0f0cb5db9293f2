package images

import (
	"context"
	"io"

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

func (vm *ValidationMiddleware) Upload(ctx context.Context, gallery, fileName string, r io.Reader) (store.Photo, error) {
	v := validator.New()
	validator.ValidateGalleryName(v, gallery)
	validator.ValidateImageName(v, fileName)
	if !v.Ok() {
		return store.Photo{}, v
	}
	return vm.Next.Upload(ctx, gallery, fileName, r)
}

func (vm *ValidationMiddleware) Delete(ctx context.Context, gallery, image string) error {
	v := validator.New()
	validator.ValidateGalleryName(v, gallery)
	validator.ValidateImageName(v, image)
	if !v.Ok() {
		return v
	}
	return vm.Next.Delete(ctx, gallery, image)
}

func (vm *ValidationMiddleware) Get(ctx context.Context, gallery, image string) (store.Photo, error) {
	v := validator.New()
	validator.ValidateGalleryName(v, gallery)
	validator.ValidateImageName(v, image)
	if !v.Ok() {
		return store.Photo{}, v
	}
	return vm.Next.Get(ctx, gallery, image)
}

func (vm *ValidationMiddleware) Thumbnail(ctx context.Context, gallery, image string, width, height int) (store.ImageFile, error) {
	v := validator.New()
	validator.ValidateGalleryName(v, gallery)
	validator.ValidateImageName(v, image)
	v.Check(width > 0, "width", "must be positive")
	v.Check(height > 0, "height", "must be positive")
	if !v.Ok() {
		return store.ImageFile{}, v
	}
	return vm.Next.Thumbnail(ctx, gallery, image, width, height)
}
