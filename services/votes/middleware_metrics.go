package votes

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// The MetricsMiddleware counts vote mutations per gallery and outcome,
// scraped by Prometheus. Read-only calls are passed through untouched.
type MetricsMiddleware struct {
	Next  Service
	votes *prometheus.CounterVec
}

func NewMetricsMiddleware(next Service) *MetricsMiddleware {
	votes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_votes_total",
			Help: "Counter of processed vote requests.",
		},
		[]string{"gallery", "outcome"},
	)
	prometheus.MustRegister(votes)

	return &MetricsMiddleware{
		Next:  next,
		votes: votes,
	}
}

func (mm *MetricsMiddleware) Vote(ctx context.Context, gallery, image string, mode Mode) (store.Photo, error) {
	photo, err := mm.Next.Vote(ctx, gallery, image, mode)
	if err != nil {
		mm.votes.WithLabelValues(gallery, "error").Inc()
		return photo, err
	}
	if photo.UserVote {
		mm.votes.WithLabelValues(gallery, "voted").Inc()
	} else {
		mm.votes.WithLabelValues(gallery, "retracted").Inc()
	}
	return photo, nil
}

func (mm *MetricsMiddleware) State(ctx context.Context, gallery, image string) (store.Photo, error) {
	return mm.Next.State(ctx, gallery, image)
}
