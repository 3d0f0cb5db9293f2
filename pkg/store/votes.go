package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// A Vote records that a user voted for an image of a gallery. At most one
// vote may exist per (gallery, image, user) tuple, enforced by a unique
// index. Votes are never updated in place: retracting and re-casting a vote
// deletes and recreates the row.
type Vote struct {
	Gallery    string    `json:"gallery" db:"gallery"`
	Image      string    `json:"image" db:"image"`
	UserName   string    `json:"user" db:"user_name"`
	LastUpdate time.Time `json:"last_update" db:"last_update"`
}

// Aggregated votes of a single image, along with the flag indicating
// whether the requesting user voted for it.
type ImageTally struct {
	Image    string `db:"image"`
	Votes    int    `db:"votes"`
	UserVote int    `db:"user_vote"`
}

// Aggregated votes of a whole gallery.
type GalleryTally struct {
	Votes  int `db:"votes"`
	Voters int `db:"voters"`
}

// The store abstraction used to manipulate vote records in the database.
// It holds a DB connection pool.
type VotesStore struct {
	DB *sqlx.DB
}

// Retrieve the vote of a specific user on a specific image, if any.
func (vs *VotesStore) Get(gallery, image, userName string) (Vote, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var vote Vote
	err := vs.DB.GetContext(ctx, &vote, `
		SELECT gallery, image, user_name, last_update FROM votes
		WHERE gallery = $1 AND image = $2 AND user_name = $3
	`, gallery, image, userName)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return Vote{}, ErrRecordNotFound
		default:
			return Vote{}, err
		}
	}

	return vote, nil
}

// Insert a new vote. A concurrent insert of the same (gallery, image, user)
// tuple trips the unique index and is reported as ErrEditConflict so the
// caller can re-read and retry.
func (vs *VotesStore) Insert(vote Vote) (Vote, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	vote.LastUpdate = time.Now().UTC()
	_, err := vs.DB.ExecContext(ctx, `
		INSERT INTO votes (gallery, image, user_name, last_update)
		VALUES ($1, $2, $3, $4)
	`, vote.Gallery, vote.Image, vote.UserName, vote.LastUpdate)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return Vote{}, ErrEditConflict
		default:
			return Vote{}, err
		}
	}

	return vote, nil
}

// Delete the vote of a user on an image. If the vote is already gone the
// delete affects zero rows and ErrRecordNotFound is returned.
func (vs *VotesStore) Delete(gallery, image, userName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	res, err := vs.DB.ExecContext(ctx, `
		DELETE FROM votes WHERE gallery = $1 AND image = $2 AND user_name = $3
	`, gallery, image, userName)
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

// Delete all votes cast on a specific image, used when the image itself
// is removed from the gallery.
func (vs *VotesStore) DeleteForImage(gallery, image string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := vs.DB.ExecContext(ctx, `
		DELETE FROM votes WHERE gallery = $1 AND image = $2
	`, gallery, image)
	return err
}

// Delete all votes of a gallery, used when the gallery is removed.
func (vs *VotesStore) DeleteForGallery(gallery string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := vs.DB.ExecContext(ctx, `DELETE FROM votes WHERE gallery = $1`, gallery)
	return err
}

// Count all votes cast on a specific image.
func (vs *VotesStore) CountForImage(gallery, image string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var count int
	err := vs.DB.GetContext(ctx, &count, `
		SELECT count(*) FROM votes WHERE gallery = $1 AND image = $2
	`, gallery, image)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Tally the votes of a gallery grouped by image. Each entry reports the vote
// count of one image and whether the provided user is among the voters.
// Images with no votes simply have no entry, callers must treat a missing
// entry as a zero tally.
func (vs *VotesStore) TallyForGallery(gallery, userName string) (map[string]ImageTally, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// Placeholders must appear in order: sqlite assigns parameter indexes
	// by first occurrence in the statement text.
	var rows []ImageTally
	err := vs.DB.SelectContext(ctx, &rows, `
		SELECT image, count(*) AS votes,
			max(CASE WHEN user_name = $1 THEN 1 ELSE 0 END) AS user_vote
		FROM votes WHERE gallery = $2
		GROUP BY image
	`, userName, gallery)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return map[string]ImageTally{}, nil
		default:
			return nil, err
		}
	}

	tallies := make(map[string]ImageTally, len(rows))
	for _, row := range rows {
		tallies[row.Image] = row
	}
	return tallies, nil
}

// Tally the votes of a whole gallery: total number of votes and number
// of distinct voters.
func (vs *VotesStore) TotalsForGallery(gallery string) (GalleryTally, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var tally GalleryTally
	err := vs.DB.GetContext(ctx, &tally, `
		SELECT count(*) AS votes, count(DISTINCT user_name) AS voters
		FROM votes WHERE gallery = $1
	`, gallery)
	if err != nil {
		return GalleryTally{}, err
	}
	return tally, nil
}

// Both supported drivers report unique index violations only via the error
// text ("duplicate key" for postgres, "UNIQUE constraint failed" for
// sqlite), so match on it.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
