package persistent

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/okushnikov/structured-query/pkg/s3client"
)

type BlobRepo struct {
	*s3client.S3Client
	bucket string
}

func NewBlobRepo(s3c *s3client.S3Client, bucket string) *BlobRepo {
	return &BlobRepo{s3c, bucket}
}

func (r *BlobRepo) Upload(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	_, err := r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          data,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("BlobRepo - Upload - r.Client.PutObject: %w", err)
	}

	return nil
}

func (r *BlobRepo) UploadBytes(ctx context.Context, key string, data []byte, contentType string, size int64) error {
	return r.Upload(ctx, key, bytes.NewReader(data), contentType, size)
}

func (r *BlobRepo) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := r.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("BlobRepo - Download - r.Client.GetObject: %w", err)
	}

	return result.Body, nil
}

func (r *BlobRepo) DownloadBytes(ctx context.Context, key string) ([]byte, error) {
	body, err := r.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("BlobRepo - DownloadBytes: %w", err)
	}
	defer body.Close()

	b, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("BlobRepo - DownloadBytes - io.ReadAll: %w", err)
	}

	return b, nil
}

func (r *BlobRepo) Delete(ctx context.Context, key string) error {
	_, err := r.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("BlobRepo - Delete - r.Client.DeleteObject: %w", err)
	}

	return nil
}
