// Package file implements the storage service: it owns file metadata,
// routes uploads and deletes to the configured storage backends, and
// resolves access URLs.
package file

import (
	"errors"
	"time"

	"github.com/filestore/service/internal/provider"
)

// ErrNotFound is returned when no file record matches a requested id.
var ErrNotFound = errors.New("file not found")

// ErrInvalidProvider is returned when a backend id is not in the configured
// set. It is always a caller or configuration error and is never retried.
var ErrInvalidProvider = errors.New("invalid storage provider")

// File is the caller-visible view of a stored file. The backend reference
// id is internal and never leaves the service.
type File struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	Mimetype  string      `json:"mimetype"`
	Size      int64       `json:"size"`
	Provider  provider.ID `json:"provider"`
	URL       string      `json:"url"`
}

// Record is a persisted file row, including the backend reference id.
type Record struct {
	ID          string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string
	Path        string
	Mimetype    string
	Size        int64
	Provider    provider.ID
	ReferenceID string
}

// toFile strips the internal reference id and attaches the resolved URL.
func (r Record) toFile(url string) File {
	return File{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Name:      r.Name,
		Path:      r.Path,
		Mimetype:  r.Mimetype,
		Size:      r.Size,
		Provider:  r.Provider,
		URL:       url,
	}
}

// NewRecord is the insert payload for a freshly uploaded file.
type NewRecord struct {
	Name        string
	Path        string
	Mimetype    string
	Size        int64
	Provider    provider.ID
	ReferenceID string
}

// DeletedRef identifies a physical object whose metadata row was removed.
type DeletedRef struct {
	Provider    provider.ID
	ReferenceID string
}

// Order is the result ordering over creation time.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Filter is a conjunction of optional predicates over file metadata.
// Zero values mean "no constraint"; pointer fields distinguish an absent
// bound from a zero bound.
type Filter struct {
	IDs         []string
	Provider    provider.ID
	Path        string
	Mimetype    string
	Name        string // case-insensitive substring match
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SizeFrom    *int64
	SizeTo      *int64
	Limit       *int
	Offset      *int
	Order       Order // default: descending (newest first)
}
