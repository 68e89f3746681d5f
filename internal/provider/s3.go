package provider

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Provider stores objects in AWS S3. Unlike the MinIO backend the bucket
// stays private: URL issues a freshly presigned GET on every call, so
// returned URLs are time-limited and differ between calls.
type S3Provider struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
}

// NewS3Provider builds an S3 client from the default AWS credential chain.
func NewS3Provider(ctx context.Context, region, bucket string, presignExpiry time.Duration) (*S3Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Provider{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		expiry:  presignExpiry,
	}, nil
}

// ID returns the backend identifier.
func (p *S3Provider) ID() ID { return S3 }

// Upload stores data under a renamed key inside location and returns the key
// as the object's reference id.
func (p *S3Provider) Upload(ctx context.Context, data []byte, name, location, declaredType string) (FileInfo, error) {
	key := path.Join(location, Rename(name))
	mimetype := DetectMimetype(name, declaredType)

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mimetype),
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

// Delete removes the object at referenceID. S3 delete is idempotent; a
// missing key is not an error.
func (p *S3Provider) Delete(ctx context.Context, referenceID string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(referenceID),
	})
	if err != nil {
		return fmt.Errorf("delete object %q: %w", referenceID, err)
	}
	return nil
}

// URL presigns a GET for the object, valid for the configured expiry.
func (p *S3Provider) URL(ctx context.Context, referenceID string) (string, error) {
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(referenceID),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", fmt.Errorf("presign object %q: %w", referenceID, err)
	}
	return req.URL, nil
}
