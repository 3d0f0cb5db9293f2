package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/imaging"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/locker"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

// Quality used when re-encoding generated thumbnails.
const thumbQuality = 75

// Any image name ending in this extension asks for the thumbnail of a
// randomly picked image of the gallery instead of a specific one.
const randomThumbExt = ".rnd"

// Bounds applied to the upload processing pipeline. A zero dimension
// disables the resize, a zero quota means unlimited uploads per user.
type Config struct {
	UserQuota int
	MaxWidth  int
	MaxHeight int
	Quality   int
}

func NewImagesService(store store.Store, locks *locker.Locker, config Config, logger *zap.SugaredLogger) *ImagesService {
	return &ImagesService{
		logger: logger,
		store:  store,
		locks:  locks,
		config: config,
	}
}

// The ImagesService is the upload registry: it ingests user-submitted
// image files into gallery directories and tracks their ownership and
// title in the database. Check-then-write sequences are serialized per
// gallery with a keyed lock, uploads into different galleries proceed
// concurrently.
type ImagesService struct {
	logger *zap.SugaredLogger
	store  store.Store
	locks  *locker.Locker
	config Config
}

// Upload ingests an image file into a gallery. The uploader becomes the
// recorded owner of the file and can re-upload it to overwrite the
// content. For everyone else a name already present in the gallery is a
// conflict. New uploads by non-admins additionally require uploading to
// be enabled for the gallery and are capped by the per-user quota.
func (is *ImagesService) Upload(ctx context.Context, gallery, fileName string, r io.Reader) (store.Photo, error) {
	principal := auth.ContextGetPrincipal(ctx)

	data, err := io.ReadAll(r)
	if err != nil {
		return store.Photo{}, fmt.Errorf("reading upload body: %w", err)
	}
	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return store.Photo{}, ErrNotImage
	}

	is.locks.Lock(gallery)
	defer is.locks.Unlock(gallery)

	_, err = is.store.Files.GetGallery(gallery)
	if err != nil {
		return store.Photo{}, err
	}

	exists, err := is.store.Files.ImageExists(gallery, fileName)
	if err != nil {
		return store.Photo{}, fmt.Errorf("checking image '%s/%s': %w", gallery, fileName, err)
	}

	// The recorded owner of an existing file may overwrite it, anyone
	// else hits a name conflict. A file present on disk without an upload
	// record has no owner, only admins may replace it.
	owned := false
	if exists {
		upload, err := is.store.Uploads.Get(gallery, fileName)
		switch {
		case err == nil:
			owned = strings.EqualFold(upload.UserName, principal.Name)
		case errors.Is(err, store.ErrRecordNotFound):
		default:
			return store.Photo{}, fmt.Errorf("reading upload record of '%s/%s': %w", gallery, fileName, err)
		}
		if !owned && !principal.Admin {
			return store.Photo{}, store.ErrFileAlreadyExists
		}
	}

	if !exists && !principal.Admin {
		setting, err := is.store.Settings.Get(gallery)
		if err != nil {
			return store.Photo{}, fmt.Errorf("reading settings of gallery '%s': %w", gallery, err)
		}
		if !setting.UploadEnabled {
			return store.Photo{}, ErrUploadDisabled
		}
		if is.config.UserQuota > 0 {
			count, err := is.store.Uploads.CountForUser(gallery, principal.Name)
			if err != nil {
				return store.Photo{}, fmt.Errorf("counting uploads of '%s': %w", principal.Name, err)
			}
			if count >= is.config.UserQuota {
				return store.Photo{}, ErrQuotaExceeded
			}
		}
	}

	// The title comes from the image metadata when present, else from the
	// file name. It must be read before the resize strips the metadata.
	title := imaging.Title(data)
	if title == "" {
		title = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	img, format, err := imaging.Decode(data)
	if err != nil {
		return store.Photo{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	img = imaging.Scale(img, is.config.MaxWidth, is.config.MaxHeight, false)
	processed, err := imaging.Encode(img, format, is.config.Quality)
	if err != nil {
		return store.Photo{}, fmt.Errorf("processing image '%s': %w", fileName, err)
	}

	// Drop the stale thumbnail before overwriting, it will be regenerated
	// from the new content on the next request.
	err = is.store.Files.DeleteThumb(gallery, fileName)
	if err != nil {
		return store.Photo{}, fmt.Errorf("deleting thumbnail of '%s/%s': %w", gallery, fileName, err)
	}

	_, err = is.store.Files.WriteImage(gallery, fileName, processed)
	if err != nil {
		return store.Photo{}, fmt.Errorf("writing image '%s/%s': %w", gallery, fileName, err)
	}

	upload, err := is.store.Uploads.Upsert(store.Upload{
		Gallery:  gallery,
		Image:    fileName,
		UserName: principal.Name,
		Title:    title,
	})
	if err != nil {
		// Keep file and record consistent: a brand new file without its
		// record would be untracked and unowned, so undo the write. On an
		// overwrite the image existed before and keeps its previous
		// record, deleting it would destroy the prior version.
		if !exists {
			cleanupErr := is.store.Files.DeleteImage(gallery, fileName)
			if cleanupErr != nil {
				is.logger.Errorw("removing image after failed record write",
					"gallery", gallery, "image", fileName, "err", cleanupErr)
			}
		}
		return store.Photo{}, fmt.Errorf("recording upload '%s/%s': %w", gallery, fileName, err)
	}

	err = is.store.Files.Touch(gallery)
	if err != nil {
		is.logger.Errorw("touching gallery after upload", "gallery", gallery, "err", err)
	}

	file, err := is.store.Files.GetImage(gallery, fileName)
	if err != nil {
		return store.Photo{}, fmt.Errorf("reading back image '%s/%s': %w", gallery, fileName, err)
	}
	return store.Photo{
		Gallery:   gallery,
		Name:      file.Name,
		Path:      file.Path,
		Title:     upload.Title,
		User:      upload.UserName,
		Size:      file.Size,
		LastWrite: file.LastWrite,
	}, nil
}

// Delete removes an image file together with its thumbnail, upload
// record and votes. The recorded owner and admins may delete tracked
// images, untracked files are admin-only.
func (is *ImagesService) Delete(ctx context.Context, gallery, image string) error {
	principal := auth.ContextGetPrincipal(ctx)

	is.locks.Lock(gallery)
	defer is.locks.Unlock(gallery)

	_, err := is.store.Files.GetImage(gallery, image)
	if err != nil {
		return err
	}

	tracked := true
	upload, err := is.store.Uploads.Get(gallery, image)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		tracked = false
	case err != nil:
		return fmt.Errorf("reading upload record of '%s/%s': %w", gallery, image, err)
	}
	if !principal.Admin {
		if !tracked || !strings.EqualFold(upload.UserName, principal.Name) {
			return store.ErrForbidden
		}
	}

	if tracked {
		err = is.store.Uploads.Delete(gallery, image)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("deleting upload record of '%s/%s': %w", gallery, image, err)
		}
	}
	err = is.store.Files.DeleteImage(gallery, image)
	if err != nil {
		return fmt.Errorf("deleting image '%s/%s': %w", gallery, image, err)
	}
	err = is.store.Files.DeleteThumb(gallery, image)
	if err != nil {
		is.logger.Errorw("deleting thumbnail", "gallery", gallery, "image", image, "err", err)
	}
	err = is.store.Votes.DeleteForImage(gallery, image)
	if err != nil {
		return fmt.Errorf("deleting votes of '%s/%s': %w", gallery, image, err)
	}

	err = is.store.Files.Touch(gallery)
	if err != nil {
		is.logger.Errorw("touching gallery after image delete", "gallery", gallery, "err", err)
	}
	return nil
}

// Get returns the detail view of a single image: title and owner from
// the upload record, the caller's has-voted flag and the stats-gated
// vote count.
func (is *ImagesService) Get(ctx context.Context, gallery, image string) (store.Photo, error) {
	principal := auth.ContextGetPrincipal(ctx)

	file, err := is.store.Files.GetImage(gallery, image)
	if err != nil {
		return store.Photo{}, err
	}

	photo := store.Photo{
		Gallery:   gallery,
		Name:      file.Name,
		Path:      file.Path,
		Size:      file.Size,
		LastWrite: file.LastWrite,
	}

	upload, err := is.store.Uploads.Get(gallery, image)
	switch {
	case err == nil:
		photo.Title = upload.Title
		photo.User = upload.UserName
	case errors.Is(err, store.ErrRecordNotFound):
	default:
		return store.Photo{}, fmt.Errorf("reading upload record of '%s/%s': %w", gallery, image, err)
	}

	_, err = is.store.Votes.Get(gallery, image, principal.Name)
	switch {
	case err == nil:
		photo.UserVote = true
	case errors.Is(err, store.ErrRecordNotFound):
	default:
		return store.Photo{}, fmt.Errorf("reading vote of '%s' on '%s/%s': %w", principal.Name, gallery, image, err)
	}

	setting, err := is.store.Settings.Get(gallery)
	if err != nil {
		return store.Photo{}, fmt.Errorf("reading settings of gallery '%s': %w", gallery, err)
	}
	if setting.StatsEnabled || principal.Admin {
		photo.VoteCount, err = is.store.Votes.CountForImage(gallery, image)
		if err != nil {
			return store.Photo{}, fmt.Errorf("counting votes of '%s/%s': %w", gallery, image, err)
		}
	}

	return photo, nil
}

// Thumbnail returns the thumbnail file of an image, generating and
// caching it under the gallery thumb directory on first request. A name
// with the ".rnd" extension picks a random image of the gallery.
func (is *ImagesService) Thumbnail(ctx context.Context, gallery, image string, width, height int) (store.ImageFile, error) {
	if strings.HasSuffix(image, randomThumbExt) {
		files, err := is.store.Files.ListImages(gallery)
		if err != nil {
			return store.ImageFile{}, err
		}
		if len(files) == 0 {
			return store.ImageFile{}, store.ErrRecordNotFound
		}
		image = files[rand.Intn(len(files))].Name
	}

	thumb, err := is.store.Files.GetThumb(gallery, image)
	if err == nil {
		return thumb, nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return store.ImageFile{}, fmt.Errorf("reading thumbnail of '%s/%s': %w", gallery, image, err)
	}

	data, err := is.store.Files.ReadImage(gallery, image)
	if err != nil {
		return store.ImageFile{}, err
	}
	img, format, err := imaging.Decode(data)
	if err != nil {
		return store.ImageFile{}, fmt.Errorf("decoding image '%s/%s': %w", gallery, image, err)
	}

	// Landscape images are cropped to fill the thumbnail box, portrait
	// ones are fitted inside it.
	bounds := img.Bounds()
	crop := bounds.Dx() > bounds.Dy()
	img = imaging.Scale(img, width, height, crop)

	encoded, err := imaging.Encode(img, format, thumbQuality)
	if err != nil {
		return store.ImageFile{}, fmt.Errorf("encoding thumbnail of '%s/%s': %w", gallery, image, err)
	}
	_, err = is.store.Files.WriteThumb(gallery, image, encoded)
	if err != nil {
		return store.ImageFile{}, fmt.Errorf("writing thumbnail of '%s/%s': %w", gallery, image, err)
	}

	return is.store.Files.GetThumb(gallery, image)
}
