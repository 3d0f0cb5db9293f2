package votes

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
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

func newTestStore(t *testing.T) store.Store {
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
	return storage
}

func seedImage(t *testing.T, storage store.Store, gallery, image string) {
	t.Helper()

	err := storage.Files.CreateGallery(gallery)
	if err != nil && !errors.Is(err, store.ErrFileAlreadyExists) {
		t.Fatalf("creating gallery: %v", err)
	}
	_, err = storage.Files.WriteImage(gallery, image, []byte("image bytes"))
	if err != nil {
		t.Fatalf("writing image: %v", err)
	}
}

func enableFeatures(t *testing.T, storage store.Store, gallery string, voting, stats bool) {
	t.Helper()

	setting, err := storage.Settings.Get(gallery)
	if err != nil {
		t.Fatalf("reading settings: %v", err)
	}
	setting.VotingEnabled = voting
	setting.StatsEnabled = stats
	_, err = storage.Settings.Update(setting)
	if err != nil {
		t.Fatalf("updating settings: %v", err)
	}
}

func userCtx(name string) context.Context {
	return auth.ContextSetPrincipal(context.Background(), auth.Principal{Name: name})
}

func adminCtx(name string) context.Context {
	return auth.ContextSetPrincipal(context.Background(), auth.Principal{Name: name, Admin: true})
}

func TestVoteToggle(t *testing.T) {
	storage := newTestStore(t)
	seedImage(t, storage, "summer", "beach.jpg")
	enableFeatures(t, storage, "summer", true, false)
	service := &VotesService{Store: storage}

	photo, err := service.Vote(userCtx("alice"), "summer", "beach.jpg", ModeToggle)
	if err != nil {
		t.Fatalf("casting vote: %v", err)
	}
	if !photo.UserVote {
		t.Fatal("first toggle must cast the vote")
	}

	photo, err = service.Vote(userCtx("alice"), "summer", "beach.jpg", ModeToggle)
	if err != nil {
		t.Fatalf("retracting vote: %v", err)
	}
	if photo.UserVote {
		t.Fatal("second toggle must retract the vote")
	}

	// Two toggles cancel out: the ledger is back where it started.
	state, err := service.State(userCtx("alice"), "summer", "beach.jpg")
	if err != nil {
		t.Fatalf("reading state: %v", err)
	}
	if state.UserVote {
		t.Fatal("vote still present after an even number of toggles")
	}
}

func TestVoteExplicitModesAreIdempotent(t *testing.T) {
	storage := newTestStore(t)
	seedImage(t, storage, "summer", "beach.jpg")
	enableFeatures(t, storage, "summer", true, false)
	service := &VotesService{Store: storage}

	for i := 0; i < 2; i++ {
		photo, err := service.Vote(userCtx("alice"), "summer", "beach.jpg", ModeLike)
		if err != nil {
			t.Fatalf("like #%d: %v", i+1, err)
		}
		if !photo.UserVote {
			t.Fatalf("like #%d must leave the vote cast", i+1)
		}
	}

	for i := 0; i < 2; i++ {
		photo, err := service.Vote(userCtx("alice"), "summer", "beach.jpg", ModeUnlike)
		if err != nil {
			t.Fatalf("unlike #%d: %v", i+1, err)
		}
		if photo.UserVote {
			t.Fatalf("unlike #%d must leave the vote retracted", i+1)
		}
	}
}

func TestVoteRequiresVotingEnabled(t *testing.T) {
	storage := newTestStore(t)
	seedImage(t, storage, "summer", "beach.jpg")
	service := &VotesService{Store: storage}

	_, err := service.Vote(userCtx("alice"), "summer", "beach.jpg", ModeToggle)
	if !errors.Is(err, ErrVotingDisabled) {
		t.Fatalf("expected ErrVotingDisabled, got %v", err)
	}
}

func TestVoteUnknownImage(t *testing.T) {
	storage := newTestStore(t)
	service := &VotesService{Store: storage}

	_, err := service.Vote(userCtx("alice"), "summer", "beach.jpg", ModeToggle)
	if !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestSelfVoteForbidden(t *testing.T) {
	storage := newTestStore(t)
	seedImage(t, storage, "summer", "beach.jpg")
	enableFeatures(t, storage, "summer", true, false)
	_, err := storage.Uploads.Upsert(store.Upload{
		Gallery: "summer", Image: "beach.jpg", UserName: "Alice",
	})
	if err != nil {
		t.Fatalf("seeding upload record: %v", err)
	}
	service := &VotesService{Store: storage}

	// The owner comparison is case-insensitive.
	_, err = service.Vote(userCtx("alice"), "summer", "beach.jpg", ModeToggle)
	if !errors.Is(err, ErrSelfVote) {
		t.Fatalf("expected ErrSelfVote, got %v", err)
	}

	// Other users can vote normally.
	_, err = service.Vote(userCtx("bob"), "summer", "beach.jpg", ModeToggle)
	if err != nil {
		t.Fatalf("other users must be able to vote: %v", err)
	}
}

func TestVoteStoreFailureIsNotConflict(t *testing.T) {
	storage := newTestStore(t)
	seedImage(t, storage, "summer", "beach.jpg")
	enableFeatures(t, storage, "summer", true, false)
	service := &VotesService{Store: storage}

	// Make every insert fail with a generic storage error. It must come
	// back as-is, not disguised as a retryable conflict.
	_, err := storage.Votes.DB.Exec(`
		CREATE TRIGGER votes_insert_fails BEFORE INSERT ON votes
		BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END
	`)
	if err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	_, err = service.Vote(userCtx("alice"), "summer", "beach.jpg", ModeToggle)
	if err == nil {
		t.Fatal("expected the storage error to surface")
	}
	if errors.Is(err, store.ErrEditConflict) {
		t.Fatalf("storage failure reported as edit conflict: %v", err)
	}
}

func TestVoteCountIsStatsGated(t *testing.T) {
	storage := newTestStore(t)
	seedImage(t, storage, "summer", "beach.jpg")
	enableFeatures(t, storage, "summer", true, false)
	service := &VotesService{Store: storage}

	photo, err := service.Vote(userCtx("alice"), "summer", "beach.jpg", ModeLike)
	if err != nil {
		t.Fatalf("casting vote: %v", err)
	}
	if photo.VoteCount != 0 {
		t.Fatalf("count must be hidden with stats disabled, got %d", photo.VoteCount)
	}

	// Admins always see the counts.
	state, err := service.State(adminCtx("root"), "summer", "beach.jpg")
	if err != nil {
		t.Fatalf("reading state as admin: %v", err)
	}
	if state.VoteCount != 1 {
		t.Fatalf("admin must see the count, got %d", state.VoteCount)
	}

	enableFeatures(t, storage, "summer", true, true)
	state, err = service.State(userCtx("bob"), "summer", "beach.jpg")
	if err != nil {
		t.Fatalf("reading state: %v", err)
	}
	if state.VoteCount != 1 {
		t.Fatalf("count must be visible with stats enabled, got %d", state.VoteCount)
	}
	if state.UserVote {
		t.Fatal("bob did not vote")
	}
}

func TestVoteAuthMiddleware(t *testing.T) {
	storage := newTestStore(t)
	seedImage(t, storage, "summer", "beach.jpg")
	enableFeatures(t, storage, "summer", true, false)
	service := &AuthMiddleware{Next: &VotesService{Store: storage}}

	_, err := service.Vote(context.Background(), "summer", "beach.jpg", ModeToggle)
	if !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	// Reading the state is open to anonymous callers.
	_, err = service.State(context.Background(), "summer", "beach.jpg")
	if err != nil {
		t.Fatalf("anonymous state read must work: %v", err)
	}
}

func TestVoteValidationMiddleware(t *testing.T) {
	storage := newTestStore(t)
	service := &ValidationMiddleware{Next: &VotesService{Store: storage}}

	_, err := service.Vote(userCtx("alice"), "../etc", "beach.jpg", ModeToggle)
	if err == nil {
		t.Fatal("expected a validation error for a bad gallery name")
	}
	_, err = service.State(userCtx("alice"), "summer", "")
	if err == nil {
		t.Fatal("expected a validation error for an empty image name")
	}
}
