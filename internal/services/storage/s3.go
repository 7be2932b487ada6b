package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/rs/zerolog"
)

// S3 implements Store on Amazon S3.
type S3 struct {
	s3     s3iface.S3API
	bucket string
	logger zerolog.Logger
}

// NewS3 creates a new S3 store from an AWS session.
func NewS3(logger zerolog.Logger, sess client.ConfigProvider, bucket string) *S3 {
	return NewS3WithClient(logger, s3.New(sess), bucket)
}

// NewS3WithClient creates a new S3 store with a custom client (for testing).
func NewS3WithClient(logger zerolog.Logger, api s3iface.S3API, bucket string) *S3 {
	return &S3{
		s3:     api,
		bucket: bucket,
		logger: logger,
	}
}

// Bucket returns the bucket name.
func (s *S3) Bucket() string {
	return s.bucket
}

// List walks every page of the listing.
func (s *S3) List(ctx context.Context, prefix string) ([]models.ObjectInfo, error) {
	params := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}

	var objects []models.ObjectInfo
	pages := 0
	err := s.s3.ListObjectsV2PagesWithContext(ctx, params, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		pages++
		for _, obj := range page.Contents {
			objects = append(objects, models.ObjectInfo{
				Key:          aws.StringValue(obj.Key),
				Size:         aws.Int64Value(obj.Size),
				LastModified: aws.TimeValue(obj.LastModified),
			})
		}
		return !lastPage
	})
	if err != nil {
		return nil, fmt.Errorf("listing s3://%s/%s: %w", s.bucket, prefix, parseAwsError(err))
	}

	s.logger.Debug().
		Str("bucket", s.bucket).
		Str("prefix", prefix).
		Int("pages", pages).
		Int("objects", len(objects)).
		Msg("objects listed")

	return objects, nil
}

// Delete removes a single object.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting s3://%s/%s: %w", s.bucket, key, parseAwsError(err))
	}
	return nil
}

// parseAwsError keeps the AWS error code and request id in the message.
func parseAwsError(err error) error {
	if reqErr, ok := err.(awserr.RequestFailure); ok {
		return fmt.Errorf("%s: %s (status %d, request %s)",
			reqErr.Code(), reqErr.Message(), reqErr.StatusCode(), reqErr.RequestID())
	}
	if awsErr, ok := err.(awserr.Error); ok {
		return fmt.Errorf("%s: %s", awsErr.Code(), awsErr.Message())
	}
	return err
}
