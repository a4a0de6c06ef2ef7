package uploader

//go:generate mockgen -destination=../../mock/uploader/uploader.go -package=mock_uploader github.com/zeecrown/imager/web/uploader Service

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Service describes object storage the normalized images are handed to.
type Service interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
}

type impl struct {
	s3manager  *s3manager.Uploader
	bucketName string
}

// New returns uploader implementation using s3 manager.
func New(s3manager *s3manager.Uploader, bucketName string) Service {
	return &impl{s3manager: s3manager, bucketName: bucketName}
}

// Upload uploads image to s3 bucket and returns its public link.
func (s *impl) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	result, err := s.s3manager.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(path),
		Body:        r,
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("can't upload %s with error: %w", path, err)
	}
	return result.Location, nil
}

// Delete removes image from s3 bucket. Removing a missing object succeeds.
func (s *impl) Delete(ctx context.Context, path string) error {
	_, err := s.s3manager.S3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("can't delete %s with error: %w", path, err)
	}
	return nil
}
