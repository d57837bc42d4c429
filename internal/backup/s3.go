package backup

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options locates the bucket backups are mirrored to.
type S3Options struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the AWS endpoint and switches to path-style
	// addressing, as MinIO and other compatible stores expect.
	Endpoint string
}

// S3Destination uploads backup files as objects under a key prefix.
type S3Destination struct {
	client *s3.Client
	opts   S3Options
}

// NewS3Destination resolves credentials through the default AWS chain.
func NewS3Destination(ctx context.Context, opts S3Options) (*S3Destination, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 destination: bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{client: client, opts: opts}, nil
}

// Key maps a mirror name to its object key.
func (d *S3Destination) Key(name string) string {
	return path.Join(d.opts.Prefix, name)
}

// Write uploads one backup. The component, taken from the first path
// segment of name, is attached as object metadata.
func (d *S3Destination) Write(ctx context.Context, name string, data []byte) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(d.opts.Bucket),
		Key:         aws.String(d.Key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if component, _, ok := strings.Cut(name, "/"); ok {
		in.Metadata = map[string]string{"component": component}
	}
	if _, err := d.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", d.opts.Bucket, d.Key(name), err)
	}
	return nil
}
