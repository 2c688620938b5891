package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader puts objects into a single bucket.
type S3Uploader struct {
	uploader *manager.Uploader
	bucket   string
}

// NewS3Uploader wraps an S3 client with the multipart-aware upload manager.
func NewS3Uploader(client manager.UploadAPIClient, bucket string) (*S3Uploader, error) {
	if client == nil {
		return nil, errors.New("s3 upload client nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket is empty")
	}
	return &S3Uploader{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}, nil
}

// NewS3UploaderFromEnv builds the client from the default AWS credential chain.
func NewS3UploaderFromEnv(ctx context.Context, bucket, region string) (*S3Uploader, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3Uploader(s3.NewFromConfig(awsConfig), bucket)
}

// Upload writes body under key.
func (u *S3Uploader) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("upload failed key=[%s], bucket=[%s]: %w", key, u.bucket, err)
	}
	return nil
}
