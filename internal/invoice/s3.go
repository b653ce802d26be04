package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// objectStore is the subset of *s3.Client used by the archive.
type objectStore interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Archive implements Archive on AWS S3.
type s3Archive struct {
	client objectStore
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3Archive creates an S3-backed archive using the default AWS
// credential chain.
func NewS3Archive(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (Archive, error) {
	logger = logger.With().Str("component", "invoice-s3-archive").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Str("prefix", prefix).
		Msg("S3 invoice archive initialised")

	return newS3Archive(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

func newS3Archive(client objectStore, bucket, prefix string, logger zerolog.Logger) *s3Archive {
	return &s3Archive{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

func (a *s3Archive) key(orderID string) string {
	return a.prefix + objectName(orderID)
}

func (a *s3Archive) Get(ctx context.Context, orderID string) ([]byte, error) {
	key := a.key(orderID)

	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, ErrNotArchived
		}
		a.logger.Error().
			Err(err).
			Str("bucket", a.bucket).
			Str("key", key).
			Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", a.bucket, key, err)
	}
	defer result.Body.Close()

	pdf, err := decompress(result.Body)
	if err != nil {
		a.logger.Error().Err(err).Str("key", key).Msg("corrupt invoice object")
		return nil, err
	}
	return pdf, nil
}

func (a *s3Archive) Put(ctx context.Context, orderID string, pdf []byte) error {
	data, err := compress(pdf)
	if err != nil {
		return err
	}

	key := a.key(orderID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(data),
		ContentType:     aws.String("application/pdf"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("bucket", a.bucket).
			Str("key", key).
			Msg("failed to put object to S3")
		return fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", a.bucket, key, err)
	}

	a.logger.Debug().Str("key", key).Int("size", len(data)).Msg("invoice archived to S3")
	return nil
}

// fallbackArchive reads and writes through S3 and falls back to the local
// archive when S3 fails or is disabled.
type fallbackArchive struct {
	remote    Archive
	local     Archive
	s3Enabled bool
	logger    zerolog.Logger
}

// NewFallbackArchive combines an S3 archive with a local one. If remote is
// nil or S3 is disabled, only the local archive is used.
func NewFallbackArchive(remote, local Archive, s3Enabled bool, logger zerolog.Logger) Archive {
	return &fallbackArchive{
		remote:    remote,
		local:     local,
		s3Enabled: s3Enabled,
		logger:    logger.With().Str("component", "invoice-fallback-archive").Logger(),
	}
}

func (a *fallbackArchive) useRemote() bool {
	return a.s3Enabled && a.remote != nil
}

func (a *fallbackArchive) Get(ctx context.Context, orderID string) ([]byte, error) {
	if a.useRemote() {
		pdf, err := a.remote.Get(ctx, orderID)
		if err == nil {
			return pdf, nil
		}
		if !errors.Is(err, ErrNotArchived) {
			a.logger.Warn().
				Err(err).
				Str("order_id", orderID).
				Msg("failed to read from S3, falling back to local archive")
		}
	}

	return a.local.Get(ctx, orderID)
}

func (a *fallbackArchive) Put(ctx context.Context, orderID string, pdf []byte) error {
	if a.useRemote() {
		err := a.remote.Put(ctx, orderID, pdf)
		if err == nil {
			return nil
		}
		a.logger.Warn().
			Err(err).
			Str("order_id", orderID).
			Msg("failed to write to S3, falling back to local archive")
	}

	return a.local.Put(ctx, orderID, pdf)
}
