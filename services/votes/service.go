package votes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// The VotesService is the vote ledger: it records and removes votes of
// users on gallery images, enforcing the one-vote-per-user-per-image and
// no-self-vote rules. It holds no state across calls, every operation
// re-reads the store.
type VotesService struct {
	Store store.Store
}

// Cast, remove or toggle the vote of the authenticated user on an image.
//
// The image file must exist, the gallery must have voting enabled and the
// caller must not be the uploader of the image. Vote mutations rely on the
// store unique index for correctness under concurrency: a conflicting
// concurrent change triggers one re-read and retry with last-writer-wins
// semantics.
func (vs *VotesService) Vote(ctx context.Context, gallery, image string, mode Mode) (store.Photo, error) {
	principal := auth.ContextGetPrincipal(ctx)

	file, err := vs.Store.Files.GetImage(gallery, image)
	if err != nil {
		return store.Photo{}, err
	}

	setting, err := vs.Store.Settings.Get(gallery)
	if err != nil {
		return store.Photo{}, fmt.Errorf("reading settings of gallery '%s': %w", gallery, err)
	}
	if !setting.VotingEnabled {
		return store.Photo{}, ErrVotingDisabled
	}

	// The uploader of an image cannot vote for it. Untracked images have
	// no upload record and no owner, so anyone can vote for them.
	upload, err := vs.Store.Uploads.Get(gallery, image)
	switch {
	case err == nil:
		if strings.EqualFold(upload.UserName, principal.Name) {
			return store.Photo{}, ErrSelfVote
		}
	case errors.Is(err, store.ErrRecordNotFound):
	default:
		return store.Photo{}, fmt.Errorf("reading upload record of '%s/%s': %w", gallery, image, err)
	}

	voted, err := vs.applyVote(gallery, image, principal.Name, mode)
	if err != nil {
		return store.Photo{}, err
	}

	// Aggregate counts are only exposed when stats are enabled for the
	// gallery, admins always see them.
	var count int
	if setting.StatsEnabled || principal.Admin {
		count, err = vs.Store.Votes.CountForImage(gallery, image)
		if err != nil {
			return store.Photo{}, fmt.Errorf("counting votes of '%s/%s': %w", gallery, image, err)
		}
	}

	return store.Photo{
		Gallery:   gallery,
		Name:      file.Name,
		Path:      file.Path,
		Title:     upload.Title,
		User:      upload.UserName,
		UserVote:  voted,
		VoteCount: count,
		LastWrite: file.LastWrite,
	}, nil
}

// One read-check-write pass of the vote mutation, retried once on store
// conflicts. Each state-changing branch touches the gallery directory
// before committing, so the HTTP cache is invalidated even if the commit
// later fails: an extra cache miss is preferred over a stale page.
func (vs *VotesService) applyVote(gallery, image, userName string, mode Mode) (bool, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		existing := true
		_, err := vs.Store.Votes.Get(gallery, image, userName)
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			existing = false
		case err != nil:
			return false, fmt.Errorf("reading vote of '%s' on '%s/%s': %w", userName, gallery, image, err)
		}

		switch {
		case existing && mode != ModeLike:
			err = vs.Store.Files.Touch(gallery)
			if err != nil {
				return false, fmt.Errorf("touching gallery '%s': %w", gallery, err)
			}
			err = vs.Store.Votes.Delete(gallery, image, userName)
			switch {
			case errors.Is(err, store.ErrRecordNotFound):
				// The vote vanished under us, re-read and retry.
				lastErr = err
				continue
			case err != nil:
				return false, fmt.Errorf("deleting vote of '%s' on '%s/%s': %w", userName, gallery, image, err)
			}
			return false, nil

		case !existing && mode != ModeUnlike:
			err = vs.Store.Files.Touch(gallery)
			if err != nil {
				return false, fmt.Errorf("touching gallery '%s': %w", gallery, err)
			}
			_, err = vs.Store.Votes.Insert(store.Vote{
				Gallery:  gallery,
				Image:    image,
				UserName: userName,
			})
			switch {
			case errors.Is(err, store.ErrEditConflict):
				// A concurrent vote beat us to the unique index, re-read
				// and retry.
				lastErr = err
				continue
			case err != nil:
				return false, fmt.Errorf("inserting vote of '%s' on '%s/%s': %w", userName, gallery, image, err)
			}
			return true, nil

		default:
			// Liking an already voted image or unliking a not voted one
			// is a no-op, the current state already matches the intent.
			return existing, nil
		}
	}

	return false, fmt.Errorf("%w: %v", store.ErrEditConflict, lastErr)
}

// Report whether the authenticated user voted for an image and the vote
// count of the image. The has-voted flag is always visible to the caller,
// the count is gated by the stats setting.
func (vs *VotesService) State(ctx context.Context, gallery, image string) (store.Photo, error) {
	principal := auth.ContextGetPrincipal(ctx)

	file, err := vs.Store.Files.GetImage(gallery, image)
	if err != nil {
		return store.Photo{}, err
	}

	setting, err := vs.Store.Settings.Get(gallery)
	if err != nil {
		return store.Photo{}, fmt.Errorf("reading settings of gallery '%s': %w", gallery, err)
	}

	voted := true
	_, err = vs.Store.Votes.Get(gallery, image, principal.Name)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		voted = false
	case err != nil:
		return store.Photo{}, fmt.Errorf("reading vote of '%s' on '%s/%s': %w", principal.Name, gallery, image, err)
	}

	var count int
	if setting.StatsEnabled || principal.Admin {
		count, err = vs.Store.Votes.CountForImage(gallery, image)
		if err != nil {
			return store.Photo{}, fmt.Errorf("counting votes of '%s/%s': %w", gallery, image, err)
		}
	}

	var title, owner string
	upload, err := vs.Store.Uploads.Get(gallery, image)
	switch {
	case err == nil:
		title, owner = upload.Title, upload.UserName
	case errors.Is(err, store.ErrRecordNotFound):
	default:
		return store.Photo{}, fmt.Errorf("reading upload record of '%s/%s': %w", gallery, image, err)
	}

	return store.Photo{
		Gallery:   gallery,
		Name:      file.Name,
		Path:      file.Path,
		Title:     title,
		User:      owner,
		UserVote:  voted,
		VoteCount: count,
		LastWrite: file.LastWrite,
	}, nil
}
