// Package blobs removes object-storage data owned by an account. Objects are
// keyed under AccountPrefix(accountID).
package blobs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// AccountPrefix is the key prefix under which every object of the account lives.
func AccountPrefix(accountID string) string {
	return "accounts/" + accountID + "/"
}

// S3API is the part of *s3.Client the cleaner needs.
type S3API interface {
	s3.ListObjectsV2APIClient
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Cleaner deletes every object under a prefix in one bucket.
type S3Cleaner struct {
	client S3API
	bucket string
}

func NewS3Cleaner(client S3API, bucket string) *S3Cleaner {
	return &S3Cleaner{client: client, bucket: bucket}
}

// S3Settings carries the connection parameters for an S3-compatible backend.
type S3Settings struct {
	AccessKey    string
	SecretKey    string
	Region       string
	BaseEndpoint string
	Bucket       string
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3CleanerFromSettings builds an S3 client with static credentials and a
// custom endpoint (MinIO and friends need path-style addressing).
func NewS3CleanerFromSettings(ctx context.Context, s S3Settings) (*S3Cleaner, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return NewS3Cleaner(client, s.Bucket), nil
}

// RemovePrefix deletes all objects whose key starts with prefix, one listing
// page (at most 1000 keys) per DeleteObjects call.
func (c *S3Cleaner) RemovePrefix(ctx context.Context, prefix string) error {
	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects %q: %w", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}

		out, err := c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects %q: %w", prefix, err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("delete objects %q: %d failed, first %s: %s",
				prefix, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}

	return nil
}
