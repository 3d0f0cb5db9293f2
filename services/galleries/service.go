package galleries

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/filters"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

func NewGalleriesService(store store.Store, logger *zap.SugaredLogger) *GalleriesService {
	return &GalleriesService{
		logger: logger,
		store:  store,
	}
}

// The GalleriesService maps gallery names to their physical image sets and
// composes the listing views: it joins the files of a gallery directory
// with the vote aggregates and upload records of the database. Directory
// listings are re-read on every call, nothing is cached in memory.
type GalleriesService struct {
	logger *zap.SugaredLogger
	store  store.Store
}

// Returns the most recently created galleries, up to top, each annotated
// with its photo count and vote aggregates. Vote aggregates are gated by
// the stats setting of each gallery.
func (gs *GalleriesService) List(ctx context.Context, top int) ([]store.Gallery, error) {
	principal := auth.ContextGetPrincipal(ctx)

	dirs, err := gs.store.Files.ListGalleries()
	if err != nil {
		return nil, fmt.Errorf("listing galleries: %w", err)
	}
	if top > 0 && len(dirs) > top {
		dirs = dirs[:top]
	}

	galleries := make([]store.Gallery, 0, len(dirs))
	for _, dir := range dirs {
		images, err := gs.store.Files.ListImages(dir.Name)
		if err != nil {
			return nil, fmt.Errorf("listing images of gallery '%s': %w", dir.Name, err)
		}

		gallery := store.Gallery{
			Name:        dir.Name,
			Path:        dir.Path,
			TotalPhotos: len(images),
			LastWrite:   dir.LastWrite,
		}

		setting, err := gs.store.Settings.Get(dir.Name)
		if err != nil {
			return nil, fmt.Errorf("reading settings of gallery '%s': %w", dir.Name, err)
		}
		if setting.StatsEnabled || principal.Admin {
			tally, err := gs.store.Votes.TotalsForGallery(dir.Name)
			if err != nil {
				return nil, fmt.Errorf("tallying votes of gallery '%s': %w", dir.Name, err)
			}
			gallery.VoteCount = tally.Votes
			gallery.UserCount = tally.Voters
		}

		galleries = append(galleries, gallery)
	}

	return galleries, nil
}

// Returns the full photo listing of one gallery. Without details the
// result carries bare file names only, used for lightweight existence
// checks. With details every image file is outer-joined with its vote
// aggregate and upload record, then filtered and sorted per the provided
// directives.
func (gs *GalleriesService) Get(ctx context.Context, name string, details bool, filter filters.Input) (store.Gallery, error) {
	principal := auth.ContextGetPrincipal(ctx)

	dir, err := gs.store.Files.GetGallery(name)
	if err != nil {
		return store.Gallery{}, err
	}
	images, err := gs.store.Files.ListImages(name)
	if err != nil {
		return store.Gallery{}, fmt.Errorf("listing images of gallery '%s': %w", name, err)
	}

	gallery := store.Gallery{
		Name:        dir.Name,
		Path:        dir.Path,
		TotalPhotos: len(images),
		LastWrite:   dir.LastWrite,
	}

	if !details {
		for _, image := range images {
			gallery.Photos = append(gallery.Photos, store.Photo{
				Gallery: name,
				Name:    image.Name,
			})
		}
		return gallery, nil
	}

	setting, err := gs.store.Settings.Get(name)
	if err != nil {
		return store.Gallery{}, fmt.Errorf("reading settings of gallery '%s': %w", name, err)
	}
	statsVisible := setting.StatsEnabled || principal.Admin

	// The byvote order discloses the vote counts even when they are
	// zeroed out in the response items, so it needs the stats to be
	// visible to the caller.
	if filter.Sort == filters.SortByVote && !statsVisible {
		return store.Gallery{}, store.ErrForbidden
	}

	tallies, err := gs.store.Votes.TallyForGallery(name, principal.Name)
	if err != nil {
		return store.Gallery{}, fmt.Errorf("tallying votes of gallery '%s': %w", name, err)
	}
	uploads, err := gs.store.Uploads.GetAllForGallery(name)
	if err != nil {
		return store.Gallery{}, fmt.Errorf("reading upload records of gallery '%s': %w", name, err)
	}

	for _, image := range images {
		tally := tallies[image.Name]
		upload, uploaded := uploads[image.Name]

		switch filter.Filter {
		case filters.FilterVoted:
			if tally.UserVote == 0 {
				continue
			}
		case filters.FilterUpload:
			if !uploaded || !strings.EqualFold(upload.UserName, principal.Name) {
				continue
			}
		}

		photo := store.Photo{
			Gallery:   name,
			Name:      image.Name,
			Path:      image.Path,
			Title:     upload.Title,
			User:      upload.UserName,
			UserVote:  tally.UserVote != 0,
			Size:      image.Size,
			LastWrite: image.LastWrite,
		}
		if statsVisible {
			photo.VoteCount = tally.Votes
		}
		gallery.Photos = append(gallery.Photos, photo)
	}

	if statsVisible {
		tally, err := gs.store.Votes.TotalsForGallery(name)
		if err != nil {
			return store.Gallery{}, fmt.Errorf("tallying votes of gallery '%s': %w", name, err)
		}
		gallery.VoteCount = tally.Votes
		gallery.UserCount = tally.Voters
	}

	sortPhotos(gallery.Photos, filter.Sort)
	return gallery, nil
}

// The last change marker of a gallery, or of the whole content root when
// the name is empty. The HTTP layer derives ETag and Last-Modified headers
// from it.
func (gs *GalleriesService) LastChange(ctx context.Context, name string) (time.Time, error) {
	return gs.store.Files.LastChange(name)
}

// Create a new empty gallery directory and its default settings row.
func (gs *GalleriesService) Create(ctx context.Context, name string) (store.Gallery, error) {
	err := gs.store.Files.CreateGallery(name)
	if err != nil {
		return store.Gallery{}, err
	}

	// Materialize the default all-disabled settings row right away, so an
	// administrator toggling the features finds it in place.
	_, err = gs.store.Settings.Get(name)
	if err != nil {
		return store.Gallery{}, fmt.Errorf("creating settings of gallery '%s': %w", name, err)
	}

	return gs.Get(ctx, name, false, filters.Input{})
}

// Recursively delete a gallery directory with all its images, then purge
// the related vote, upload and settings records. Removing an absent
// gallery is a no-op.
func (gs *GalleriesService) Remove(ctx context.Context, name string) error {
	err := gs.store.Files.RemoveGallery(name)
	if err != nil {
		return fmt.Errorf("removing gallery '%s': %w", name, err)
	}

	err = gs.store.Votes.DeleteForGallery(name)
	if err != nil {
		return fmt.Errorf("purging votes of gallery '%s': %w", name, err)
	}
	err = gs.store.Uploads.DeleteForGallery(name)
	if err != nil {
		return fmt.Errorf("purging upload records of gallery '%s': %w", name, err)
	}
	err = gs.store.Settings.Delete(name)
	if err != nil {
		return fmt.Errorf("purging settings of gallery '%s': %w", name, err)
	}
	return nil
}

// Read the settings of a gallery, lazily creating the default all-disabled
// row on first access.
func (gs *GalleriesService) Settings(ctx context.Context, name string) (store.Setting, error) {
	_, err := gs.store.Files.GetGallery(name)
	if err != nil {
		return store.Setting{}, err
	}
	return gs.store.Settings.Get(name)
}

// Persist new settings for a gallery. A concurrent settings change is
// retried once with the incoming values winning, then the gallery change
// marker is advanced so cached pages regenerate.
func (gs *GalleriesService) SaveSettings(ctx context.Context, name string, setting store.Setting) (store.Setting, error) {
	current, err := gs.Settings(ctx, name)
	if err != nil {
		return store.Setting{}, err
	}

	current.VotingEnabled = setting.VotingEnabled
	current.UploadEnabled = setting.UploadEnabled
	current.StatsEnabled = setting.StatsEnabled

	updated, err := gs.store.Settings.Update(current)
	if errors.Is(err, store.ErrEditConflict) {
		// Another writer bumped the version, re-read and apply our
		// values on top: the client wins.
		current, err = gs.store.Settings.Get(name)
		if err != nil {
			return store.Setting{}, fmt.Errorf("re-reading settings of gallery '%s': %w", name, err)
		}
		current.VotingEnabled = setting.VotingEnabled
		current.UploadEnabled = setting.UploadEnabled
		current.StatsEnabled = setting.StatsEnabled
		updated, err = gs.store.Settings.Update(current)
	}
	if err != nil {
		return store.Setting{}, fmt.Errorf("updating settings of gallery '%s': %w", name, err)
	}

	err = gs.store.Files.Touch(name)
	if err != nil {
		gs.logger.Errorw("touching gallery after settings change", "gallery", name, "err", err)
	}

	return updated, nil
}

// Applies the requested ordering. The default order is an explicit
// re-shuffle on every call, the gallery presentation deliberately varies
// between requests.
func sortPhotos(photos []store.Photo, order filters.Sort) {
	switch order {
	case filters.SortByVote:
		sort.SliceStable(photos, func(i, j int) bool {
			return photos[i].VoteCount > photos[j].VoteCount
		})
	case filters.SortByDate:
		sort.SliceStable(photos, func(i, j int) bool {
			return photos[i].LastWrite.After(photos[j].LastWrite)
		})
	default:
		rand.Shuffle(len(photos), func(i, j int) {
			photos[i], photos[j] = photos[j], photos[i]
		})
	}
}
