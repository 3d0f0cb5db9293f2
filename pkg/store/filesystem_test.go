package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestFilesStore(t *testing.T) FilesStore {
	t.Helper()

	fs, err := NewFilesStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating files store: %v", err)
	}
	return fs
}

func TestFilesStoreRejectsMissingRoot(t *testing.T) {
	_, err := NewFilesStore(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected an error for a missing content root")
	}
}

func TestCreateAndListGalleries(t *testing.T) {
	fs := newTestFilesStore(t)

	err := fs.CreateGallery("summer")
	if err != nil {
		t.Fatalf("creating gallery: %v", err)
	}
	err = fs.CreateGallery("summer")
	if !errors.Is(err, ErrFileAlreadyExists) {
		t.Fatalf("expected ErrFileAlreadyExists, got %v", err)
	}

	galleries, err := fs.ListGalleries()
	if err != nil {
		t.Fatalf("listing galleries: %v", err)
	}
	if len(galleries) != 1 || galleries[0].Name != "summer" {
		t.Fatalf("unexpected gallery listing: %+v", galleries)
	}

	dir, err := fs.GetGallery("summer")
	if err != nil {
		t.Fatalf("reading gallery: %v", err)
	}
	if dir.LastWrite.IsZero() {
		t.Fatal("gallery carries no last-write timestamp")
	}

	_, err = fs.GetGallery("winter")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestListImagesFiltersNonImages(t *testing.T) {
	fs := newTestFilesStore(t)

	err := fs.CreateGallery("summer")
	if err != nil {
		t.Fatalf("creating gallery: %v", err)
	}
	for _, name := range []string{"beach.jpg", "dunes.PNG", "notes.txt", ".hidden.jpg"} {
		_, err := fs.WriteImage("summer", name, []byte("bytes"))
		if err != nil {
			t.Fatalf("writing file '%s': %v", name, err)
		}
	}
	// The thumb directory must be skipped too.
	_, err = fs.WriteThumb("summer", "beach.jpg", []byte("bytes"))
	if err != nil {
		t.Fatalf("writing thumb: %v", err)
	}

	images, err := fs.ListImages("summer")
	if err != nil {
		t.Fatalf("listing images: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %+v", images)
	}
	for _, image := range images {
		if image.Name != "beach.jpg" && image.Name != "dunes.PNG" {
			t.Fatalf("unexpected image in listing: %+v", image)
		}
	}
}

func TestWriteImageRejectsEmptyBytes(t *testing.T) {
	fs := newTestFilesStore(t)

	err := fs.CreateGallery("summer")
	if err != nil {
		t.Fatalf("creating gallery: %v", err)
	}
	_, err = fs.WriteImage("summer", "beach.jpg", nil)
	if !errors.Is(err, ErrEmptyBytes) {
		t.Fatalf("expected ErrEmptyBytes, got %v", err)
	}
}

func TestPathTraversalIsRejected(t *testing.T) {
	fs := newTestFilesStore(t)

	for _, name := range []string{"..", ".", "", "a/b", `a\b`} {
		_, err := fs.GetGallery(name)
		if !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("gallery name '%s' must be rejected, got %v", name, err)
		}
		_, err = fs.ImagePath("summer", name)
		if !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("image name '%s' must be rejected, got %v", name, err)
		}
	}
}

func TestTouchLeavesNoFilesBehind(t *testing.T) {
	fs := newTestFilesStore(t)

	err := fs.CreateGallery("summer")
	if err != nil {
		t.Fatalf("creating gallery: %v", err)
	}
	err = fs.Touch("summer")
	if err != nil {
		t.Fatalf("touching gallery: %v", err)
	}

	dir, err := fs.GetGallery("summer")
	if err != nil {
		t.Fatalf("reading gallery: %v", err)
	}
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		t.Fatalf("reading gallery dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("touch left files behind: %v", entries)
	}
}

func TestDeleteImageAndThumbAreIdempotent(t *testing.T) {
	fs := newTestFilesStore(t)

	err := fs.CreateGallery("summer")
	if err != nil {
		t.Fatalf("creating gallery: %v", err)
	}
	if err := fs.DeleteImage("summer", "beach.jpg"); err != nil {
		t.Fatalf("deleting absent image must not fail: %v", err)
	}
	if err := fs.DeleteThumb("summer", "beach.jpg"); err != nil {
		t.Fatalf("deleting absent thumb must not fail: %v", err)
	}
}

func TestLastChange(t *testing.T) {
	fs := newTestFilesStore(t)

	last, err := fs.LastChange("")
	if err != nil {
		t.Fatalf("reading global last change: %v", err)
	}
	if !last.IsZero() {
		t.Fatalf("empty root must report the zero time, got %v", last)
	}

	err = fs.CreateGallery("summer")
	if err != nil {
		t.Fatalf("creating gallery: %v", err)
	}

	perGallery, err := fs.LastChange("summer")
	if err != nil {
		t.Fatalf("reading gallery last change: %v", err)
	}
	global, err := fs.LastChange("")
	if err != nil {
		t.Fatalf("reading global last change: %v", err)
	}
	if !perGallery.Equal(global) {
		t.Fatalf("single-gallery root: global %v differs from gallery %v", global, perGallery)
	}
}
