package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3Session struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
}

// NewS3Session creates one connection to AWS S3 that is shared by everything
// that reads datasets or writes chart snapshots
func NewS3Session(ctx context.Context, accessKey string, secretKey string, region string, bucket string) (*S3Repository, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("could not load aws config: %w", err)
	}

	// Create an aws s3 service client
	client := s3.NewFromConfig(cfg)

	session := &s3Session{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
	}
	return &S3Repository{
		s3_session: session,
	}, nil
}
