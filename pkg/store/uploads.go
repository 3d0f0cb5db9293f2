package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// An Upload tracks ownership and title metadata for an image file uploaded
// into a gallery. At most one record exists per (gallery, image): the file
// itself lives on the filesystem, this row only attaches the uploader and
// the resolved title to it. Images placed in a gallery directory by other
// means have no upload record and are considered untracked.
type Upload struct {
	Gallery    string    `json:"gallery" db:"gallery"`
	Image      string    `json:"image" db:"image"`
	UserName   string    `json:"user" db:"user_name"`
	Title      string    `json:"title" db:"title"`
	LastUpdate time.Time `json:"last_update" db:"last_update"`
}

// The store abstraction used to manipulate upload records in the database.
// It holds a DB connection pool.
type UploadsStore struct {
	DB *sqlx.DB
}

// Retrieve the upload record of a specific image, if any.
func (us *UploadsStore) Get(gallery, image string) (Upload, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var upload Upload
	err := us.DB.GetContext(ctx, &upload, `
		SELECT gallery, image, user_name, title, last_update FROM uploads
		WHERE gallery = $1 AND image = $2
	`, gallery, image)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return Upload{}, ErrRecordNotFound
		default:
			return Upload{}, err
		}
	}

	return upload, nil
}

// Delete all upload records of a gallery, used when the gallery is removed.
func (us *UploadsStore) DeleteForGallery(gallery string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := us.DB.ExecContext(ctx, `DELETE FROM uploads WHERE gallery = $1`, gallery)
	return err
}

// Retrieve all upload records of a gallery, keyed by image name.
func (us *UploadsStore) GetAllForGallery(gallery string) (map[string]Upload, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var rows []Upload
	err := us.DB.SelectContext(ctx, &rows, `
		SELECT gallery, image, user_name, title, last_update FROM uploads
		WHERE gallery = $1
	`, gallery)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return map[string]Upload{}, nil
		default:
			return nil, err
		}
	}

	uploads := make(map[string]Upload, len(rows))
	for _, row := range rows {
		uploads[row.Image] = row
	}
	return uploads, nil
}

// Count how many images a user uploaded into a gallery. Used to enforce the
// per-user upload quota for new uploads.
func (us *UploadsStore) CountForUser(gallery, userName string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var count int
	err := us.DB.GetContext(ctx, &count, `
		SELECT count(*) FROM uploads WHERE gallery = $1 AND user_name = $2
	`, gallery, userName)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Insert the upload record of an image, or refresh the owner, title and
// timestamp of the existing one when the same file name is uploaded again.
func (us *UploadsStore) Upsert(upload Upload) (Upload, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	upload.LastUpdate = time.Now().UTC()
	_, err := us.DB.ExecContext(ctx, `
		INSERT INTO uploads (gallery, image, user_name, title, last_update)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (gallery, image)
		DO UPDATE SET user_name = $3, title = $4, last_update = $5
	`, upload.Gallery, upload.Image, upload.UserName, upload.Title, upload.LastUpdate)
	if err != nil {
		return Upload{}, err
	}

	return upload, nil
}

// Delete the upload record of an image. Deleting a record that does not
// exist reports ErrRecordNotFound.
func (us *UploadsStore) Delete(gallery, image string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	res, err := us.DB.ExecContext(ctx, `
		DELETE FROM uploads WHERE gallery = $1 AND image = $2
	`, gallery, image)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}
