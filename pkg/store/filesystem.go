package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const thumbDirName = "thumb"

// Info about one gallery directory.
type GalleryDir struct {
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	LastWrite time.Time `json:"last_write"`
}

// Info about one image file inside a gallery directory.
type ImageFile struct {
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	LastWrite time.Time `json:"last_write"`
}

// The store abstraction over the gallery content root. Each gallery is one
// subdirectory of the root, image files live directly inside it and their
// generated thumbnails in a nested "thumb" directory. The FilesStore never
// caches directory listings, every call re-reads the filesystem.
type FilesStore struct {
	root string
}

// Instantiate a new files store. The constructor is used to check that the
// provided content root is an existing directory.
func NewFilesStore(root string) (FilesStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return FilesStore{}, err
	}
	stat, err := os.Stat(absRoot)
	if err != nil {
		return FilesStore{}, err
	}
	if !stat.IsDir() {
		return FilesStore{}, fmt.Errorf("'%s' is not a dir", root)
	}
	return FilesStore{root: absRoot}, nil
}

// List all gallery directories, most recently created first. Creation time
// is not portably available, so the directory modification time is used as
// ordering key.
func (fs *FilesStore) ListGalleries() ([]GalleryDir, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil, err
	}

	var galleries []GalleryDir
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		galleries = append(galleries, GalleryDir{
			Name:      entry.Name(),
			Path:      filepath.Join(fs.root, entry.Name()),
			LastWrite: info.ModTime().UTC(),
		})
	}

	sort.Slice(galleries, func(i, j int) bool {
		return galleries[i].LastWrite.After(galleries[j].LastWrite)
	})
	return galleries, nil
}

// Stat a single gallery directory.
func (fs *FilesStore) GetGallery(gallery string) (GalleryDir, error) {
	path, err := fs.galleryPath(gallery)
	if err != nil {
		return GalleryDir{}, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return GalleryDir{}, ErrRecordNotFound
		default:
			return GalleryDir{}, err
		}
	}
	if !stat.IsDir() {
		return GalleryDir{}, ErrRecordNotFound
	}
	return GalleryDir{
		Name:      gallery,
		Path:      path,
		LastWrite: stat.ModTime().UTC(),
	}, nil
}

// Create a new gallery directory. An already existing directory is
// reported as ErrFileAlreadyExists.
func (fs *FilesStore) CreateGallery(gallery string) error {
	path, err := fs.galleryPath(gallery)
	if err != nil {
		return err
	}
	err = os.Mkdir(path, 0755)
	if os.IsExist(err) {
		return ErrFileAlreadyExists
	}
	return err
}

// Recursively delete a gallery directory with all images and thumbnails.
// Removing an absent gallery is a no-op.
func (fs *FilesStore) RemoveGallery(gallery string) error {
	path, err := fs.galleryPath(gallery)
	if err != nil {
		return err
	}
	return os.RemoveAll(path)
}

// List the image files of a gallery. The thumbnail directory, hidden files
// and files that are not images are skipped.
func (fs *FilesStore) ListImages(gallery string) ([]ImageFile, error) {
	path, err := fs.galleryPath(gallery)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	var images []ImageFile
	for _, entry := range entries {
		if entry.IsDir() || !isImageName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		images = append(images, ImageFile{
			Name:      entry.Name(),
			Path:      filepath.Join(path, entry.Name()),
			Size:      info.Size(),
			LastWrite: info.ModTime().UTC(),
		})
	}
	return images, nil
}

// Stat a single image file of a gallery.
func (fs *FilesStore) GetImage(gallery, image string) (ImageFile, error) {
	path, err := fs.ImagePath(gallery, image)
	if err != nil {
		return ImageFile{}, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return ImageFile{}, ErrRecordNotFound
		default:
			return ImageFile{}, err
		}
	}
	if stat.IsDir() {
		return ImageFile{}, ErrRecordNotFound
	}
	return ImageFile{
		Name:      image,
		Path:      path,
		Size:      stat.Size(),
		LastWrite: stat.ModTime().UTC(),
	}, nil
}

// Read the raw bytes of an image file.
func (fs *FilesStore) ReadImage(gallery, image string) ([]byte, error) {
	path, err := fs.ImagePath(gallery, image)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return data, nil
}

// Stat the thumbnail of an image.
func (fs *FilesStore) GetThumb(gallery, image string) (ImageFile, error) {
	path, err := fs.ThumbPath(gallery, image)
	if err != nil {
		return ImageFile{}, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return ImageFile{}, ErrRecordNotFound
		default:
			return ImageFile{}, err
		}
	}
	return ImageFile{
		Name:      image,
		Path:      path,
		Size:      stat.Size(),
		LastWrite: stat.ModTime().UTC(),
	}, nil
}

// Report whether an image file exists in a gallery.
func (fs *FilesStore) ImageExists(gallery, image string) (bool, error) {
	_, err := fs.GetImage(gallery, image)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrRecordNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Write the processed bytes of an image into the gallery directory,
// overwriting any previous version of the file.
func (fs *FilesStore) WriteImage(gallery, image string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyBytes
	}
	path, err := fs.ImagePath(gallery, image)
	if err != nil {
		return "", err
	}
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return "", err
	}
	return path, nil
}

// Delete an image file. Removing an absent file is a no-op.
func (fs *FilesStore) DeleteImage(gallery, image string) error {
	path, err := fs.ImagePath(gallery, image)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Delete the thumbnail of an image. Removing an absent file is a no-op.
func (fs *FilesStore) DeleteThumb(gallery, image string) error {
	path, err := fs.ThumbPath(gallery, image)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Write thumbnail bytes, creating the thumb directory on first use.
func (fs *FilesStore) WriteThumb(gallery, image string, data []byte) (string, error) {
	path, err := fs.ThumbPath(gallery, image)
	if err != nil {
		return "", err
	}
	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return "", err
	}
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return "", err
	}
	return path, nil
}

// Absolute path of an image file inside a gallery.
func (fs *FilesStore) ImagePath(gallery, image string) (string, error) {
	galleryPath, err := fs.galleryPath(gallery)
	if err != nil {
		return "", err
	}
	if !validName(image) {
		return "", ErrRecordNotFound
	}
	return filepath.Join(galleryPath, image), nil
}

// Absolute path of the thumbnail of an image.
func (fs *FilesStore) ThumbPath(gallery, image string) (string, error) {
	galleryPath, err := fs.galleryPath(gallery)
	if err != nil {
		return "", err
	}
	if !validName(image) {
		return "", ErrRecordNotFound
	}
	return filepath.Join(galleryPath, thumbDirName, image), nil
}

// Touch forces the modification time of a gallery directory forward by
// creating and immediately deleting a uniquely named temporary file inside
// it. Vote and settings mutations do not write into the directory
// themselves, yet the HTTP caching layer keys invalidation off the
// directory mtime, so they call Touch before committing.
func (fs *FilesStore) Touch(gallery string) error {
	path, err := fs.galleryPath(gallery)
	if err != nil {
		return err
	}
	tempPath := filepath.Join(path, "."+uuid.NewString())
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	err = file.Close()
	if err != nil {
		return err
	}
	return os.Remove(tempPath)
}

// LastChange reports the last-write timestamp of one gallery, or of the
// most recently changed gallery when the name is empty. Used by the HTTP
// layer to build ETag and Last-Modified headers.
func (fs *FilesStore) LastChange(gallery string) (time.Time, error) {
	if gallery != "" {
		dir, err := fs.GetGallery(gallery)
		if err != nil {
			return time.Time{}, err
		}
		return dir.LastWrite, nil
	}

	galleries, err := fs.ListGalleries()
	if err != nil {
		return time.Time{}, err
	}
	var last time.Time
	for _, dir := range galleries {
		if dir.LastWrite.After(last) {
			last = dir.LastWrite
		}
	}
	return last, nil
}

// Gallery and image names come from URLs, so only clean single path
// segments may touch the filesystem.
func (fs *FilesStore) galleryPath(gallery string) (string, error) {
	if !validName(gallery) {
		return "", ErrRecordNotFound
	}
	return filepath.Join(fs.root, gallery), nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func isImageName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	default:
		return false
	}
}
