package galleries

import (
	"context"
	"time"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/filters"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// Public interface of the galleries service. The service is exposed via
// transport-specific adapters, e.g. the JSON-HTTP api.
type Service interface {
	List(ctx context.Context, top int) ([]store.Gallery, error)
	Get(ctx context.Context, name string, details bool, filter filters.Input) (store.Gallery, error)
	LastChange(ctx context.Context, name string) (time.Time, error)
	Create(ctx context.Context, name string) (store.Gallery, error)
	Remove(ctx context.Context, name string) error
	Settings(ctx context.Context, name string) (store.Setting, error)
	SaveSettings(ctx context.Context, name string, setting store.Setting) (store.Setting, error)
}

// This check makes sure that all service implementations remain
// valid while we refactor our code.
var _ Service = &GalleriesService{}
var _ Service = &AuthMiddleware{}
var _ Service = &ValidationMiddleware{}
var _ Service = &MetricsMiddleware{}
