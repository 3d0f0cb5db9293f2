package galleries

import (
	"context"
	"time"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/filters"
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

func (vm *ValidationMiddleware) List(ctx context.Context, top int) ([]store.Gallery, error) {
	v := validator.New()
	v.Check(top >= 0, "top", "must not be negative")
	if !v.Ok() {
		return nil, v
	}
	return vm.Next.List(ctx, top)
}

func (vm *ValidationMiddleware) Get(ctx context.Context, name string, details bool, filter filters.Input) (store.Gallery, error) {
	v := validator.New()
	validator.ValidateGalleryName(v, name)
	if err := filter.Validate(); err != nil {
		v.AddError("filter", err.Error())
	}
	if !v.Ok() {
		return store.Gallery{}, v
	}
	return vm.Next.Get(ctx, name, details, filter)
}

func (vm *ValidationMiddleware) LastChange(ctx context.Context, name string) (time.Time, error) {
	// An empty name means "all galleries" here, validate only the
	// non-empty case.
	if name != "" {
		v := validator.New()
		validator.ValidateGalleryName(v, name)
		if !v.Ok() {
			return time.Time{}, v
		}
	}
	return vm.Next.LastChange(ctx, name)
}

func (vm *ValidationMiddleware) Create(ctx context.Context, name string) (store.Gallery, error) {
	v := validator.New()
	validator.ValidateGalleryName(v, name)
	if !v.Ok() {
		return store.Gallery{}, v
	}
	return vm.Next.Create(ctx, name)
}

func (vm *ValidationMiddleware) Remove(ctx context.Context, name string) error {
	v := validator.New()
	validator.ValidateGalleryName(v, name)
	if !v.Ok() {
		return v
	}
	return vm.Next.Remove(ctx, name)
}

func (vm *ValidationMiddleware) Settings(ctx context.Context, name string) (store.Setting, error) {
	v := validator.New()
	validator.ValidateGalleryName(v, name)
	if !v.Ok() {
		return store.Setting{}, v
	}
	return vm.Next.Settings(ctx, name)
}

func (vm *ValidationMiddleware) SaveSettings(ctx context.Context, name string, setting store.Setting) (store.Setting, error) {
	v := validator.New()
	validator.ValidateGalleryName(v, name)
	if !v.Ok() {
		return store.Setting{}, v
	}
	return vm.Next.SaveSettings(ctx, name, setting)
}
