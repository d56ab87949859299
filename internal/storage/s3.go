package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"github.com/local/qrsplit/internal/config"
)

const uploadTimeout = 2 * time.Minute

// S3Publisher mirrors extracted documents to an S3 bucket.
type S3Publisher struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Publisher creates a publisher for cfg.Bucket. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewS3Publisher(ctx context.Context, cfg config.StorageConfig) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name not set")
	}

	var opts []func(*awscfg.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Publisher{
		client:   cli,
		uploader: manager.NewUploader(cli),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}, nil
}

// Key returns the object key for an output file name.
func (p *S3Publisher) Key(name string) string {
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Publish uploads one extracted document. Re-publishing the same name overwrites the
// object, matching the local overwrite behaviour.
func (p *S3Publisher) Publish(ctx context.Context, name string, data []byte) error {
	key := p.Key(name)
	digest := Digest(data)

	ctxUpload, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	_, err := p.uploader.Upload(ctxUpload, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
		Metadata: map[string]string{
			"name":    name,
			"blake2b": digest,
		},
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("upload to S3 failed")
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().Str("bucket", p.bucket).Str("key", key).Int("size", len(data)).Str("blake2b", digest).Msg("published document to S3")
	return nil
}

// Ping checks that the bucket exists and is reachable with the configured credentials.
func (p *S3Publisher) Ping(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})
	return err
}

// Digest is the hex BLAKE2b-256 of data, stored with each object so mirrors can be
// checked against the local file.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
