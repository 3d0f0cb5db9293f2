package votes

import (
	"context"
	"errors"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// Mode selects how a vote request affects an existing vote. The three
// modes back the toggle, like and unlike actions of the UI: a plain toggle
// flips the vote, while the explicit modes are idempotent and never flip
// an already matching state.
type Mode int

const (
	ModeToggle Mode = iota
	ModeLike
	ModeUnlike
)

// Public interface of the votes service. The service is exposed via
// transport-specific adapters, e.g. the JSON-HTTP api.
type Service interface {
	Vote(ctx context.Context, gallery, image string, mode Mode) (store.Photo, error)
	State(ctx context.Context, gallery, image string) (store.Photo, error)
}

var (
	ErrVotingDisabled = errors.New("voting is disabled for this gallery")
	ErrSelfVote       = errors.New("cannot vote your own picture")
)

// This check makes sure that all service implementations remain
// valid while we refactor our code.
var _ Service = &VotesService{}
var _ Service = &AuthMiddleware{}
var _ Service = &ValidationMiddleware{}
var _ Service = &MetricsMiddleware{}
