package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"medialib/internal/library"
)

// S3Archive stores content in an S3 or S3-compatible bucket, one object
// per checksum under an optional key prefix. The bucket must already
// exist. Uploads stream through the SDK's upload manager so content of
// unknown length never has to be buffered in memory.
type S3Archive struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	keyPrefix string
}

// S3Config contains the settings needed to reach a bucket.
type S3Config struct {
	Bucket    string
	Region    string
	KeyPrefix string

	// Endpoint overrides the AWS endpoint, for MinIO and other
	// S3-compatible stores.
	Endpoint string

	// Static credentials. When empty the default AWS credential chain
	// applies.
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Archive creates an archive backed by the configured bucket.
func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 archive: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 archive: region is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Path-style addressing for MinIO and Localstack.
			o.UsePathStyle = true
		}
	})

	return &S3Archive{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (a *S3Archive) key(checksum string) string {
	return a.keyPrefix + checksum
}

// PutContent uploads content identified by its checksum. Re-uploading
// the same checksum overwrites the object with identical bytes, so the
// operation stays idempotent.
func (a *S3Archive) PutContent(checksum string, r io.Reader) error {
	_, err := a.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(checksum)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to upload content to S3: %w", err)
	}
	return nil
}

// GetContent downloads content by checksum and writes it to w.
func (a *S3Archive) GetContent(checksum string, w io.Writer) error {
	result, err := a.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(checksum)),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return fmt.Errorf("content not found: %s", checksum)
		}
		return fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	if _, err := io.Copy(w, result.Body); err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}
	return nil
}

// HasContent performs a HEAD request to check object existence without
// downloading.
func (a *S3Archive) HasContent(checksum string) (bool, error) {
	_, err := a.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(checksum)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// ValidateSetup verifies the bucket is reachable.
func (a *S3Archive) ValidateSetup() error {
	_, err := a.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", a.bucket, err)
	}
	return nil
}

// Compile-time check that S3Archive implements the Archive interface
var _ library.Archive = (*S3Archive)(nil)
