package images

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// The MetricsMiddleware counts upload and delete operations per gallery
// and tracks generated thumbnails, scraped by Prometheus.
type MetricsMiddleware struct {
	Next    Service
	uploads *prometheus.CounterVec
	thumbs  prometheus.Counter
}

func NewMetricsMiddleware(next Service) *MetricsMiddleware {
	uploads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_uploads_total",
			Help: "Counter of processed image upload and delete requests.",
		},
		[]string{"gallery", "operation", "outcome"},
	)
	thumbs := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_thumbnails_served_total",
			Help: "Counter of served thumbnails.",
		},
	)
	prometheus.MustRegister(uploads, thumbs)

	return &MetricsMiddleware{
		Next:    next,
		uploads: uploads,
		thumbs:  thumbs,
	}
}

func (mm *MetricsMiddleware) Upload(ctx context.Context, gallery, fileName string, r io.Reader) (store.Photo, error) {
	photo, err := mm.Next.Upload(ctx, gallery, fileName, r)
	mm.uploads.WithLabelValues(gallery, "upload", outcome(err)).Inc()
	return photo, err
}

func (mm *MetricsMiddleware) Delete(ctx context.Context, gallery, image string) error {
	err := mm.Next.Delete(ctx, gallery, image)
	mm.uploads.WithLabelValues(gallery, "delete", outcome(err)).Inc()
	return err
}

func (mm *MetricsMiddleware) Get(ctx context.Context, gallery, image string) (store.Photo, error) {
	return mm.Next.Get(ctx, gallery, image)
}

func (mm *MetricsMiddleware) Thumbnail(ctx context.Context, gallery, image string, width, height int) (store.ImageFile, error) {
	thumb, err := mm.Next.Thumbnail(ctx, gallery, image, width, height)
	if err == nil {
		mm.thumbs.Inc()
	}
	return thumb, err
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
