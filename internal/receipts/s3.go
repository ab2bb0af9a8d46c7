package receipts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the slice of the S3 client the store uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client PutObjectAPI
	bucket string
	now    func() time.Time
}

// NewS3 loads the default AWS configuration. AWS_ENDPOINT_URL points the
// client at a local S3 (localstack, minio) with path-style addressing.
func NewS3(ctx context.Context, bucket, region string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := os.Getenv("AWS_ENDPOINT_URL")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(client, bucket), nil
}

func NewS3WithClient(client PutObjectAPI, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket, now: time.Now}
}

func (s *S3Store) Put(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	mt, err := NormalizeContentType(contentType)
	if err != nil {
		return "", err
	}
	data, err := readLimited(r)
	if err != nil {
		return "", err
	}

	key := BuildKey(s.now(), mt)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mt),
		Metadata: map[string]string{
			"original-name": filename,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put receipt %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
