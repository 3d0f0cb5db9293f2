package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// Per-gallery feature toggles. A missing row means the gallery was never
// configured: reads lazily create it with every feature disabled, so that
// a brand new gallery accepts no votes or uploads until an administrator
// enables them.
type Setting struct {
	Gallery       string `json:"gallery" db:"gallery"`
	VotingEnabled bool   `json:"voting_enabled" db:"voting_enabled"`
	UploadEnabled bool   `json:"upload_enabled" db:"upload_enabled"`
	StatsEnabled  bool   `json:"stats_enabled" db:"stats_enabled"`
	Version       int    `json:"-" db:"version"`
}

// The store abstraction used to manipulate gallery settings in the
// database. It holds a DB connection pool.
type SettingsStore struct {
	DB *sqlx.DB
}

// Retrieve the settings of a gallery, creating the default all-disabled
// row if none exists yet.
func (ss *SettingsStore) Get(gallery string) (Setting, error) {
	setting, err := ss.lookup(gallery)
	if err == nil {
		return setting, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return Setting{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// Two concurrent first reads may both try to create the row, the
	// loser of the race simply reads back the winner's row.
	_, err = ss.DB.ExecContext(ctx, `
		INSERT INTO settings (gallery, voting_enabled, upload_enabled, stats_enabled, version)
		VALUES ($1, FALSE, FALSE, FALSE, 1)
		ON CONFLICT (gallery) DO NOTHING
	`, gallery)
	if err != nil {
		return Setting{}, err
	}

	return ss.lookup(gallery)
}

// Update the settings of a gallery guarded by the version column. A zero-row
// update means a concurrent writer bumped the version first and is reported
// as ErrEditConflict.
func (ss *SettingsStore) Update(setting Setting) (Setting, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	res, err := ss.DB.ExecContext(ctx, `
		UPDATE settings
		SET voting_enabled = $1, upload_enabled = $2, stats_enabled = $3, version = version + 1
		WHERE gallery = $4 AND version = $5
	`, setting.VotingEnabled, setting.UploadEnabled, setting.StatsEnabled, setting.Gallery, setting.Version)
	if err != nil {
		return Setting{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Setting{}, err
	}
	if n == 0 {
		return Setting{}, ErrEditConflict
	}

	setting.Version++
	return setting, nil
}

// Delete the settings row of a gallery, used when the gallery itself is
// removed. A missing row is not an error here.
func (ss *SettingsStore) Delete(gallery string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ss.DB.ExecContext(ctx, `DELETE FROM settings WHERE gallery = $1`, gallery)
	return err
}

func (ss *SettingsStore) lookup(gallery string) (Setting, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var setting Setting
	err := ss.DB.GetContext(ctx, &setting, `
		SELECT gallery, voting_enabled, upload_enabled, stats_enabled, version
		FROM settings WHERE gallery = $1
	`, gallery)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return Setting{}, ErrRecordNotFound
		default:
			return Setting{}, err
		}
	}

	return setting, nil
}
