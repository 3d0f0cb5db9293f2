package images

import (
	"context"
	"errors"
	"io"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// Public interface of the images service. The service is exposed via
// transport-specific adapters, e.g. the JSON-HTTP api.
type Service interface {
	Upload(ctx context.Context, gallery, fileName string, r io.Reader) (store.Photo, error)
	Delete(ctx context.Context, gallery, image string) error
	Get(ctx context.Context, gallery, image string) (store.Photo, error)
	Thumbnail(ctx context.Context, gallery, image string, width, height int) (store.ImageFile, error)
}

var (
	ErrUploadDisabled = errors.New("uploading not enabled for this gallery")
	ErrQuotaExceeded  = errors.New("upload quota exceeded")
	ErrNotImage       = errors.New("uploaded file is not an image")
)

// This check makes sure that all service implementations remain
// valid while we refactor our code.
var _ Service = &ImagesService{}
var _ Service = &AuthMiddleware{}
var _ Service = &ValidationMiddleware{}
var _ Service = &MetricsMiddleware{}
