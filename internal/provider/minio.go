package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioProvider stores objects in a MinIO (or any S3-compatible) backend.
// Objects are public-read and URLs are static, built from a configured base —
// no backend round-trip is needed to resolve them.
type MinioProvider struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioProvider creates a MinIO client, ensures the bucket exists with a
// public-read policy, and returns a ready-to-use provider.
func NewMinioProvider(ctx context.Context, endpoint, accessKey, secretKey, bucket, publicBase string, useSSL bool) (*MinioProvider, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
	}

	if err := client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	return &MinioProvider{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// ID returns the backend identifier.
func (p *MinioProvider) ID() ID { return Minio }

// Upload stores data under a renamed key inside location and returns the key
// as the object's reference id.
func (p *MinioProvider) Upload(ctx context.Context, data []byte, name, location, declaredType string) (FileInfo, error) {
	key := path.Join(location, Rename(name))
	mimetype := DetectMimetype(name, declaredType)

	_, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimetype,
	})
	if err != nil {
		return FileInfo{}, fmt.Errorf("put object %q: %w", key, err)
	}

	return FileInfo{
		ReferenceID: key,
		Name:        name,
		Path:        location,
		Mimetype:    mimetype,
		Size:        int64(len(data)),
	}, nil
}

// Delete removes the object at referenceID. Removing an absent object is
// not an error.
func (p *MinioProvider) Delete(ctx context.Context, referenceID string) error {
	if err := p.client.RemoveObject(ctx, p.bucket, referenceID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", referenceID, err)
	}
	return nil
}

// URL returns the static public URL for the given object key.
func (p *MinioProvider) URL(_ context.Context, referenceID string) (string, error) {
	return p.publicBase + "/" + referenceID, nil
}

// publicReadPolicy returns an S3 bucket policy JSON allowing anonymous GET
// on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
