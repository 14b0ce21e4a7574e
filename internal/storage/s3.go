package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service uploads avatar files to Amazon S3 (or compatible APIs).
type S3Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	opts     Options
}

func NewS3Service(client *s3.Client, opts Options) *S3Service {
	return &S3Service{
		client:   client,
		uploader: manager.NewUploader(client),
		opts:     opts,
	}
}

func (s *S3Service) UploadFile(ctx context.Context, localPath, key string) (ObjectRef, error) {
	if s.opts.Bucket == "" {
		return ObjectRef{}, fmt.Errorf("storage bucket is required")
	}
	if strings.TrimSpace(key) == "" {
		return ObjectRef{}, fmt.Errorf("object key is required")
	}

	if prefix := strings.Trim(s.opts.KeyPrefix, "/"); prefix != "" {
		key = prefix + "/" + strings.TrimPrefix(key, "/")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return ObjectRef{}, fmt.Errorf("open file %s: %w", localPath, err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
		Body:   f,
		ACL:    types.ObjectCannedACLPublicRead,
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	_, err = s.uploader.Upload(ctx, input)
	closeErr := f.Close()
	if err != nil {
		return ObjectRef{}, fmt.Errorf("upload %s: %w", localPath, err)
	}
	if closeErr != nil {
		return ObjectRef{}, fmt.Errorf("close file %s: %w", localPath, closeErr)
	}

	return ObjectRef{
		URL:       s.objectURL(key),
		StorageID: key,
	}, nil
}

func (s *S3Service) DeleteObject(ctx context.Context, storageID string) error {
	if s.opts.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if strings.TrimSpace(storageID) == "" {
		return fmt.Errorf("storage id is required")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(storageID),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", storageID, err)
	}
	return nil
}

// objectURL builds the public address of an uploaded object. A configured
// PublicBaseURL (CDN or reverse proxy) wins; a custom endpoint implies
// path-style addressing; otherwise the virtual-hosted AWS form is used.
func (s *S3Service) objectURL(key string) string {
	if base := strings.TrimRight(s.opts.PublicBaseURL, "/"); base != "" {
		return base + "/" + key
	}
	if endpoint := strings.TrimRight(s.opts.Endpoint, "/"); endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", endpoint, s.opts.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, key)
}

var _ Service = (*S3Service)(nil)
