package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	sc "github.com/dmitrijs2005/civicreport/internal/server/config"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// PhotoStore hands out presigned URLs for issue photos.
type PhotoStore interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// PhotoKey returns a fresh object key for a photo of issueID.
func PhotoKey(issueID string, at time.Time) string {
	return fmt.Sprintf("issues/%d/%02d/%s/%v", at.Year(), at.Month(), issueID, uuid.New())
}

// S3PhotoStore presigns requests against an S3-compatible bucket (MinIO in
// development). The client is built on first use.
type S3PhotoStore struct {
	config *sc.Config

	once   sync.Once
	client *s3.PresignClient
	err    error
}

func NewS3PhotoStore(cfg *sc.Config) *S3PhotoStore {
	return &S3PhotoStore{config: cfg}
}

func (s *S3PhotoStore) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	s.once.Do(func() {
		cfg, err := loadDefaultAWSConfig(ctx,
			config.WithRegion(s.config.S3Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				s.config.S3RootUser,
				s.config.S3RootPassword,
				"",
			)))
		if err != nil {
			s.err = err
			return
		}

		client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
			if s.config.S3BaseEndpoint != "" {
				o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
				o.UsePathStyle = true
			}
		})
		s.client = newS3PresignClient(client)
	})
	return s.client, s.err
}

// PresignPut returns a URL accepting one PUT of key with contentType.
func (s *S3PhotoStore) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.config.PhotoURLValidityDuration))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignGet returns a temporary download URL for key.
func (s *S3PhotoStore) PresignGet(ctx context.Context, key string) (string, error) {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.config.PhotoURLValidityDuration))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
