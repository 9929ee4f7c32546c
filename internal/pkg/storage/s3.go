package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Storage stores files as objects under an optional key prefix.
type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// NewS3Storage loads credentials from the default AWS chain.
func NewS3Storage(ctx context.Context, bucket, region, prefix string) (*S3Storage, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewS3StorageFromClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func NewS3StorageFromClient(client *s3.Client, bucket, prefix string) *S3Storage {
	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
	}
}

func (s *S3Storage) key(p string) (string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if clean == "" {
		return "", fmt.Errorf("invalid file path: %s", p)
	}
	if s.prefix == "" {
		return clean, nil
	}
	return s.prefix + "/" + clean, nil
}

func (s *S3Storage) Upload(ctx context.Context, file io.Reader, p string, contentType string) (string, error) {
	key, err := s.key(p)
	if err != nil {
		return "", err
	}

	// PutObject needs a seekable body to sign the payload
	body, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s in bucket %s: %w", key, s.bucket, err)
	}

	return strings.TrimPrefix(path.Clean("/"+p), "/"), nil
}

func (s *S3Storage) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := s.key(p)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("failed to get object %s from bucket %s: %w", key, s.bucket, err)
	}

	return resp.Body, nil
}

func (s *S3Storage) Delete(ctx context.Context, p string) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

// GetURL returns a presigned GET URL valid for expiry.
func (s *S3Storage) GetURL(ctx context.Context, p string, expiry time.Duration) (string, error) {
	key, err := s.key(p)
	if err != nil {
		return "", err
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Storage) Exists(ctx context.Context, p string) (bool, error) {
	key, err := s.key(p)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %s: %w", key, err)
	}
	return true, nil
}
