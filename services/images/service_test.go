package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/locker"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
)

const testSchema = `
CREATE TABLE votes (
    gallery     TEXT      NOT NULL,
    image       TEXT      NOT NULL,
    user_name   TEXT      NOT NULL,
    last_update TIMESTAMP NOT NULL,
    UNIQUE (gallery, image, user_name)
);
CREATE TABLE uploads (
    gallery     TEXT      NOT NULL,
    image       TEXT      NOT NULL,
    user_name   TEXT      NOT NULL,
    title       TEXT      NOT NULL DEFAULT '',
    last_update TIMESTAMP NOT NULL,
    PRIMARY KEY (gallery, image)
);
CREATE TABLE settings (
    gallery        TEXT    NOT NULL PRIMARY KEY,
    voting_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    upload_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    stats_enabled  BOOLEAN NOT NULL DEFAULT FALSE,
    version        INTEGER NOT NULL DEFAULT 1
);
`

func newTestService(t *testing.T, config Config) (*ImagesService, store.Store) {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		db.Close()
	})
	_, err = db.Exec(testSchema)
	if err != nil {
		t.Fatalf("creating test schema: %v", err)
	}

	storage, err := store.New(db, t.TempDir())
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	err = storage.Files.CreateGallery("summer")
	if err != nil {
		t.Fatalf("creating gallery: %v", err)
	}

	service := NewImagesService(storage, locker.New(), config, zap.NewNop().Sugar())
	return service, storage
}

func enableUploads(t *testing.T, storage store.Store, gallery string) {
	t.Helper()

	setting, err := storage.Settings.Get(gallery)
	if err != nil {
		t.Fatalf("reading settings: %v", err)
	}
	setting.UploadEnabled = true
	_, err = storage.Settings.Update(setting)
	if err != nil {
		t.Fatalf("updating settings: %v", err)
	}
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height)))
	if err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	return buf.Bytes()
}

func userCtx(name string) context.Context {
	return auth.ContextSetPrincipal(context.Background(), auth.Principal{Name: name})
}

func adminCtx(name string) context.Context {
	return auth.ContextSetPrincipal(context.Background(), auth.Principal{Name: name, Admin: true})
}

func TestUploadNewImage(t *testing.T) {
	service, storage := newTestService(t, Config{})
	enableUploads(t, storage, "summer")

	photo, err := service.Upload(userCtx("bob"), "summer", "beach.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("uploading: %v", err)
	}
	if photo.User != "bob" {
		t.Fatalf("uploader not recorded: %+v", photo)
	}
	// No embedded metadata: the title falls back to the bare file name.
	if photo.Title != "beach" {
		t.Fatalf("unexpected title: %q", photo.Title)
	}

	upload, err := storage.Uploads.Get("summer", "beach.png")
	if err != nil || upload.UserName != "bob" {
		t.Fatalf("upload record missing: %+v, %v", upload, err)
	}
	exists, err := storage.Files.ImageExists("summer", "beach.png")
	if err != nil || !exists {
		t.Fatalf("image file missing: %v", err)
	}
}

func TestUploadRequiresUploadingEnabled(t *testing.T) {
	service, _ := newTestService(t, Config{})

	_, err := service.Upload(userCtx("bob"), "summer", "beach.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if !errors.Is(err, ErrUploadDisabled) {
		t.Fatalf("expected ErrUploadDisabled, got %v", err)
	}

	// Admins bypass the check.
	_, err = service.Upload(adminCtx("root"), "summer", "beach.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("admin upload must work: %v", err)
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	service, storage := newTestService(t, Config{})
	enableUploads(t, storage, "summer")

	_, err := service.Upload(userCtx("bob"), "summer", "notes.png", bytes.NewReader([]byte("just some text")))
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
}

func TestUploadDuplicateName(t *testing.T) {
	service, storage := newTestService(t, Config{})
	enableUploads(t, storage, "summer")

	_, err := service.Upload(userCtx("bob"), "summer", "beach.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("uploading: %v", err)
	}

	// Someone else reusing the name is a conflict, the owner overwrites.
	_, err = service.Upload(userCtx("alice"), "summer", "beach.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if !errors.Is(err, store.ErrFileAlreadyExists) {
		t.Fatalf("expected a conflict, got %v", err)
	}
	_, err = service.Upload(userCtx("bob"), "summer", "beach.png", bytes.NewReader(pngBytes(t, 16, 16)))
	if err != nil {
		t.Fatalf("owner overwrite must work: %v", err)
	}

	// Admins may replace anyone's file, and become the recorded owner.
	photo, err := service.Upload(adminCtx("root"), "summer", "beach.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("admin overwrite must work: %v", err)
	}
	if photo.User != "root" {
		t.Fatalf("overwrite must refresh the owner: %+v", photo)
	}
}

func TestFailedOverwriteKeepsExistingImage(t *testing.T) {
	service, storage := newTestService(t, Config{})
	enableUploads(t, storage, "summer")

	_, err := service.Upload(userCtx("bob"), "summer", "beach.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("uploading: %v", err)
	}

	// Make the record refresh fail: the overwrite must not destroy the
	// image that was already in place.
	_, err = storage.Uploads.DB.Exec(`
		CREATE TRIGGER uploads_update_fails BEFORE UPDATE ON uploads
		BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END
	`)
	if err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	_, err = service.Upload(userCtx("bob"), "summer", "beach.png", bytes.NewReader(pngBytes(t, 16, 16)))
	if err == nil {
		t.Fatal("expected the record write failure to surface")
	}

	exists, err := storage.Files.ImageExists("summer", "beach.png")
	if err != nil || !exists {
		t.Fatalf("existing image lost after failed overwrite: %v", err)
	}
	upload, err := storage.Uploads.Get("summer", "beach.png")
	if err != nil || upload.UserName != "bob" {
		t.Fatalf("upload record lost after failed overwrite: %+v, %v", upload, err)
	}
}

func TestUploadQuota(t *testing.T) {
	service, storage := newTestService(t, Config{UserQuota: 2})
	enableUploads(t, storage, "summer")

	for _, name := range []string{"one.png", "two.png"} {
		_, err := service.Upload(userCtx("alice"), "summer", name, bytes.NewReader(pngBytes(t, 8, 8)))
		if err != nil {
			t.Fatalf("uploading '%s': %v", name, err)
		}
	}

	_, err := service.Upload(userCtx("alice"), "summer", "three.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	// Overwriting an owned file never counts against the quota.
	_, err = service.Upload(userCtx("alice"), "summer", "one.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("owner overwrite at quota must work: %v", err)
	}

	// The quota does not apply to admins.
	_, err = service.Upload(adminCtx("root"), "summer", "three.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("admin upload at quota must work: %v", err)
	}
}

func TestUploadResizesToConfiguredBox(t *testing.T) {
	service, storage := newTestService(t, Config{MaxWidth: 10, MaxHeight: 10, Quality: 80})
	enableUploads(t, storage, "summer")

	_, err := service.Upload(userCtx("bob"), "summer", "big.png", bytes.NewReader(pngBytes(t, 40, 20)))
	if err != nil {
		t.Fatalf("uploading: %v", err)
	}

	data, err := storage.Files.ReadImage("summer", "big.png")
	if err != nil {
		t.Fatalf("reading written image: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding written image: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 5 {
		t.Fatalf("expected 10x5 after resize, got %v", img.Bounds())
	}
}

func TestDeleteRules(t *testing.T) {
	service, storage := newTestService(t, Config{})
	enableUploads(t, storage, "summer")

	_, err := service.Upload(userCtx("bob"), "summer", "beach.png", bytes.NewReader(pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("uploading: %v", err)
	}
	_, err = storage.Votes.Insert(store.Vote{Gallery: "summer", Image: "beach.png", UserName: "alice"})
	if err != nil {
		t.Fatalf("seeding vote: %v", err)
	}

	err = service.Delete(userCtx("alice"), "summer", "beach.png")
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}

	err = service.Delete(userCtx("bob"), "summer", "beach.png")
	if err != nil {
		t.Fatalf("owner delete must work: %v", err)
	}
	exists, err := storage.Files.ImageExists("summer", "beach.png")
	if err != nil || exists {
		t.Fatalf("image file not removed: %v", err)
	}
	count, err := storage.Votes.CountForImage("summer", "beach.png")
	if err != nil || count != 0 {
		t.Fatalf("votes not purged: %d, %v", count, err)
	}

	err = service.Delete(userCtx("bob"), "summer", "beach.png")
	if !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("deleting a missing image must 404, got %v", err)
	}
}

func TestDeleteUntrackedIsAdminOnly(t *testing.T) {
	service, storage := newTestService(t, Config{})

	// A file placed in the directory without an upload record.
	_, err := storage.Files.WriteImage("summer", "legacy.png", pngBytes(t, 8, 8))
	if err != nil {
		t.Fatalf("writing untracked file: %v", err)
	}

	err = service.Delete(userCtx("bob"), "summer", "legacy.png")
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	err = service.Delete(adminCtx("root"), "summer", "legacy.png")
	if err != nil {
		t.Fatalf("admin delete must work: %v", err)
	}
}

func TestThumbnailGenerateOnMiss(t *testing.T) {
	service, storage := newTestService(t, Config{})

	_, err := storage.Files.WriteImage("summer", "wide.png", pngBytes(t, 80, 40))
	if err != nil {
		t.Fatalf("writing image: %v", err)
	}

	thumb, err := service.Thumbnail(context.Background(), "summer", "wide.png", 20, 20)
	if err != nil {
		t.Fatalf("generating thumbnail: %v", err)
	}

	data, err := os.ReadFile(thumb.Path)
	if err != nil {
		t.Fatalf("reading thumbnail: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	// Landscape images are cropped to fill the box exactly.
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 20 {
		t.Fatalf("expected a 20x20 thumbnail, got %v", img.Bounds())
	}

	// The second request is served from the cached file.
	again, err := service.Thumbnail(context.Background(), "summer", "wide.png", 20, 20)
	if err != nil {
		t.Fatalf("re-reading thumbnail: %v", err)
	}
	if !again.LastWrite.Equal(thumb.LastWrite) {
		t.Fatal("cached thumbnail was regenerated")
	}
}

func TestThumbnailRandomPick(t *testing.T) {
	service, storage := newTestService(t, Config{})

	_, err := service.Thumbnail(context.Background(), "summer", "any.rnd", 20, 20)
	if !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("random pick on an empty gallery must 404, got %v", err)
	}

	_, err = storage.Files.WriteImage("summer", "only.png", pngBytes(t, 8, 8))
	if err != nil {
		t.Fatalf("writing image: %v", err)
	}

	thumb, err := service.Thumbnail(context.Background(), "summer", "any.rnd", 20, 20)
	if err != nil {
		t.Fatalf("random thumbnail: %v", err)
	}
	if thumb.Name != "only.png" {
		t.Fatalf("expected the only image to be picked, got %q", thumb.Name)
	}
}
