package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cibounipi/mensabot/internal/domain/providers"
	"github.com/cibounipi/mensabot/pkg/config"
	apperrors "github.com/cibounipi/mensabot/pkg/errors"
	"github.com/cibounipi/mensabot/pkg/retry"
)

// ObjectGetter is the subset of the S3 client used by S3Source
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads documents from an S3-compatible bucket under a prefix
type S3Source struct {
	client ObjectGetter
	bucket string
	prefix string
	retry  retry.Config
}

// NewS3Source creates a document source from the data configuration. A
// custom endpoint (R2, MinIO) switches to path-style addressing.
func NewS3Source(ctx context.Context, cfg *config.DataConfig) (providers.DocumentSource, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3SourceWithClient(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

// NewS3SourceWithClient creates a document source over an existing client
func NewS3SourceWithClient(client ObjectGetter, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: prefix,
		retry:  retry.DefaultConfig(),
	}
}

// Fetch downloads the named document, retrying transient failures
func (s *S3Source) Fetch(ctx context.Context, name string) ([]byte, error) {
	key := path.Join(s.prefix, name)

	var data []byte
	var notFound bool
	err := retry.Do(ctx, s.retry, "s3 get "+key, func() error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var nsk *types.NoSuchKey
			if errors.As(err, &nsk) {
				notFound = true
				return nil
			}
			return err
		}
		defer out.Body.Close()

		data, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		return nil, apperrors.NewExternalError("failed to fetch s3://"+s.bucket+"/"+key, err)
	}
	if notFound {
		return nil, apperrors.NewNotFoundError(name)
	}
	return data, nil
}

// Name identifies the source in logs
func (s *S3Source) Name() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}
