package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const signedUrlExpiry = 10 * time.Minute

// S3Repository allows for the server to interface with S3
type S3Repository struct {
	s3_session *s3Session
}

// Writes an object to the S3 bucket from a writer. You can think of an S3 object like a file.
// Rendered chart snapshots are written this way.
func (s *S3Repository) WriteObjectWriterTo(ctx context.Context, writer io.WriterTo, objectName string) error {
	var buf bytes.Buffer

	_, err := writer.WriteTo(&buf)
	if err != nil {
		return fmt.Errorf("failed to write buffer for %v: %w", objectName, err)
	}

	return s.WriteObjectReader(ctx, bytes.NewReader(buf.Bytes()), objectName)
}

// Writes an object to the S3 bucket from a reader.
func (s *S3Repository) WriteObjectReader(ctx context.Context, reader io.Reader, objectName string) error {
	_, err := s.s3_session.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.s3_session.bucket),
		Key:    aws.String(objectName),
		Body:   reader,
	})
	if err != nil {
		return fmt.Errorf("couldn't upload file %v to %v:%v. Here's why: %w",
			objectName, s.s3_session.bucket, objectName, err)
	}

	return nil
}

// GetObjectReader opens an object for reading, the caller closes it
func (s *S3Repository) GetObjectReader(ctx context.Context, bucket string, objectPath string) (io.ReadCloser, error) {
	result, err := s.s3_session.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't get object %v:%v: %w", bucket, objectPath, err)
	}
	return result.Body, nil
}

// ObjectExists checks for an object in the repository's bucket
func (s *S3Repository) ObjectExists(ctx context.Context, objectPath string) (bool, error) {
	_, err := s.s3_session.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.s3_session.bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetSignedUrl locates a valid object in S3 and responds with a presigned URL valid for 10 minutes
func (s *S3Repository) GetSignedUrl(ctx context.Context, bucket string, objectPath string) (string, error) {
	request, err := s.s3_session.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectPath),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = signedUrlExpiry
	})
	if err != nil {
		return "", fmt.Errorf("couldn't get a presigned request to get %v:%v: %w", bucket, objectPath, err)
	}

	return request.URL, nil
}

// DeleteObject deletes an object from S3 located at the bucket and object path
func (s *S3Repository) DeleteObject(ctx context.Context, bucket string, objectPath string) error {
	params := s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &objectPath,
	}
	_, err := s.s3_session.client.DeleteObject(ctx, &params)
	if err != nil {
		return err
	}

	return nil
}

func (s *S3Repository) Bucket() string {
	return s.s3_session.bucket
}
