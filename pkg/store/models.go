package store

import "time"

// Composite view of a gallery, joining the directory info with the vote
// aggregates of the database. Assembled by the services, never persisted
// as such.
type Gallery struct {
	Name        string    `json:"name"`
	Path        string    `json:"-"`
	TotalPhotos int       `json:"total_photos"`
	VoteCount   int       `json:"vote_count"`
	UserCount   int       `json:"user_count"`
	LastWrite   time.Time `json:"last_write"`
	Photos      []Photo   `json:"photos,omitempty"`
}

// Composite view of a single gallery image: the file joined with its
// upload record (owner, title) and vote aggregate. Images without votes or
// without an upload record keep the zero values of the related fields.
type Photo struct {
	Gallery   string    `json:"gallery"`
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	Title     string    `json:"title,omitempty"`
	User      string    `json:"user,omitempty"`
	UserVote  bool      `json:"user_vote"`
	VoteCount int       `json:"vote_count"`
	Size      int64     `json:"size,omitempty"`
	LastWrite time.Time `json:"last_write"`
}
