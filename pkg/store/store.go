package store

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The Store groups the persistence backends of the application. The votes,
// uploads and settings stores are backed by a relational database, while
// galleries and image files live on the filesystem under a configured
// content root.
type Store struct {
	Votes    VotesStore
	Uploads  UploadsStore
	Settings SettingsStore
	Files    FilesStore
}

func New(db *sqlx.DB, contentRoot string) (Store, error) {
	filesStore, err := NewFilesStore(contentRoot)
	if err != nil {
		return Store{}, err
	}
	return Store{
		Votes:    VotesStore{db},
		Uploads:  UploadsStore{db},
		Settings: SettingsStore{db},
		Files:    filesStore,
	}, nil
}

// OpenDB opens a database connection pool for one of the supported drivers.
// The relational backend is selected at process start via configuration,
// never at runtime.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported db driver '%s'", driver)
	}
	return sqlx.Open(driver, dsn)
}

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrEditConflict      = errors.New("edit conflict")
	ErrFileAlreadyExists = errors.New("file already exists")
	ErrForbidden         = errors.New("forbidden")
	ErrEmptyBytes        = errors.New("no bytes")
)
