package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"greendrake/realty/internal/config"
)

// s3API is the subset of the S3 client used here.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Storage struct {
	client  s3API
	bucket  string
	baseURL string
}

// NewS3Storage creates an S3-backed image store.
func NewS3Storage(ctx context.Context, cfg *config.Config) (IImageStorage, error) {
	if cfg.AwsS3Bucket == "" || cfg.ImageBaseS3URL == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET and IMAGE_BASE_S3_URL are required for the s3 storage backend")
	}
	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKeyID != "" {
		// Static keys when given, otherwise the default chain (env, shared config, IAM role).
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Storage(s3.NewFromConfig(awsCfg), cfg.AwsS3Bucket, cfg.ImageBaseS3URL), nil
}

func newS3Storage(client s3API, bucket, baseURL string) *s3Storage {
	return &s3Storage{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *s3Storage) Upload(ctx context.Context, folder, name string, data []byte, contentType string) (string, error) {
	key := path.Join("properties", folder, name+".jpg")
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	log.Printf("Uploaded image %s to S3 bucket %s", key, s.bucket)
	return s.baseURL + "/" + key, nil
}
