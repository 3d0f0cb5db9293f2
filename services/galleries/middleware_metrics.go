package galleries

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/filters"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// The MetricsMiddleware counts gallery lifecycle operations, scraped by
// Prometheus. Read-only calls are passed through untouched.
type MetricsMiddleware struct {
	Next      Service
	lifecycle *prometheus.CounterVec
}

func NewMetricsMiddleware(next Service) *MetricsMiddleware {
	lifecycle := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_lifecycle_total",
			Help: "Counter of gallery create, remove and settings operations.",
		},
		[]string{"operation", "outcome"},
	)
	prometheus.MustRegister(lifecycle)

	return &MetricsMiddleware{
		Next:      next,
		lifecycle: lifecycle,
	}
}

func (mm *MetricsMiddleware) List(ctx context.Context, top int) ([]store.Gallery, error) {
	return mm.Next.List(ctx, top)
}

func (mm *MetricsMiddleware) Get(ctx context.Context, name string, details bool, filter filters.Input) (store.Gallery, error) {
	return mm.Next.Get(ctx, name, details, filter)
}

func (mm *MetricsMiddleware) LastChange(ctx context.Context, name string) (time.Time, error) {
	return mm.Next.LastChange(ctx, name)
}

func (mm *MetricsMiddleware) Create(ctx context.Context, name string) (store.Gallery, error) {
	gallery, err := mm.Next.Create(ctx, name)
	mm.lifecycle.WithLabelValues("create", outcome(err)).Inc()
	return gallery, err
}

func (mm *MetricsMiddleware) Remove(ctx context.Context, name string) error {
	err := mm.Next.Remove(ctx, name)
	mm.lifecycle.WithLabelValues("remove", outcome(err)).Inc()
	return err
}

func (mm *MetricsMiddleware) Settings(ctx context.Context, name string) (store.Setting, error) {
	return mm.Next.Settings(ctx, name)
}

func (mm *MetricsMiddleware) SaveSettings(ctx context.Context, name string, setting store.Setting) (store.Setting, error) {
	updated, err := mm.Next.SaveSettings(ctx, name, setting)
	mm.lifecycle.WithLabelValues("save_settings", outcome(err)).Inc()
	return updated, err
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
