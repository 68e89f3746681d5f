// Package provider defines the uniform contract over object-storage backends.
// Each backend implements Provider; the file service routes calls by ID.
// Swap or add implementations by extending the closed ID set and wiring the
// new adapter at startup. The MinIO implementation works with any
// S3-compatible store (MinIO, ArvanCloud, AWS S3).
package provider

import (
	"context"
	"fmt"
)

// ID identifies a storage backend. The set of valid IDs is closed; unknown
// tags are rejected at configuration time by ParseID.
type ID string

const (
	// Minio is the MinIO / S3-compatible backend with static public URLs.
	Minio ID = "minio"
	// S3 is the AWS S3 backend with presigned, time-limited URLs.
	S3 ID = "s3"
)

// ParseID validates a backend identifier against the closed set.
func ParseID(s string) (ID, error) {
	switch ID(s) {
	case Minio, S3:
		return ID(s), nil
	default:
		return "", fmt.Errorf("unknown storage provider %q", s)
	}
}

// FileInfo is a backend's view of a just-uploaded object, before it is
// persisted as a metadata record.
type FileInfo struct {
	// ReferenceID is the backend-specific handle (object key, file id)
	// addressing the object within that backend.
	ReferenceID string
	Name        string
	Path        string
	Mimetype    string
	Size        int64
}

// Provider is the interface every storage backend implements.
type Provider interface {
	// ID returns the stable backend identifier persisted with each record.
	ID() ID

	// Upload stores data under a backend-chosen, collision-resistant handle
	// derived from name and location, and returns the handle plus echoed
	// metadata. declaredType is the caller-supplied content type, used only
	// when nothing better can be inferred from the name.
	Upload(ctx context.Context, data []byte, name, location, declaredType string) (FileInfo, error)

	// Delete removes the object. Absence is not distinguished from success;
	// only genuine backend failures are returned.
	Delete(ctx context.Context, referenceID string) error

	// URL resolves a retrievable URL for the object. Depending on the
	// backend this is either a static public URL or a freshly signed one;
	// callers must not assume the format is stable across backends.
	URL(ctx context.Context, referenceID string) (string, error)
}
