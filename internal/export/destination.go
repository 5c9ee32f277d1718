// Package export moves catalog and library data in and out as CSV and
// delivers export files to local disk or an S3-compatible bucket.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Destination stores one named export file and reports where it went.
type Destination interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// FileDestination writes into a local directory.
type FileDestination struct {
	Dir string
}

func (d FileDestination) Write(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(d.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// ObjectPutter is the part of the S3 client the destination needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads to bucket under prefix.
type S3Destination struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Destination builds a client from the default AWS credential chain. A
// non-empty endpoint switches to path-style addressing for MinIO and similar.
func NewS3Destination(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Destination, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return NewS3DestinationWithClient(s3.NewFromConfig(cfg, s3opts...), bucket, prefix), nil
}

func NewS3DestinationWithClient(client ObjectPutter, bucket, prefix string) *S3Destination {
	return &S3Destination{client: client, bucket: bucket, prefix: prefix}
}

func (d *S3Destination) Write(ctx context.Context, name string, data []byte) (string, error) {
	key := d.prefix + name
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return "s3://" + d.bucket + "/" + key, nil
}
