// Package media resolves stored media keys into client-fetchable URLs.
// Message rows keep only the S3 object key; search responses carry a
// short-lived presigned GET URL instead.
package media

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"inboxsearch/config"
)

// S3Resolver presigns GET URLs for media objects.
type S3Resolver struct {
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
}

// NewS3Resolver builds an S3 client from config. Returns nil when S3 is not
// configured; callers treat a nil resolver as "no media delivery".
func NewS3Resolver(cfg *config.Config) (*S3Resolver, error) {
	if !cfg.S3Enabled {
		log.Info().Msg("S3 not configured, media URLs disabled")
		return nil, nil
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3 bucket cannot be empty")
	}

	awsCfg := aws.Config{
		Region:      cfg.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3PathStyle
	})

	log.Info().
		Str("bucket", cfg.S3Bucket).
		Str("region", cfg.S3Region).
		Msg("S3 media resolver initialized")

	return &S3Resolver{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.S3Bucket,
		expiry:  cfg.S3URLExpiry,
	}, nil
}

// ResolveURL presigns a GET for the given object key. Failures are logged
// and yield an empty URL; a missing media link never fails a search.
func (r *S3Resolver) ResolveURL(ctx context.Context, mediaKey string) string {
	if r == nil || mediaKey == "" {
		return ""
	}
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(mediaKey),
	}, s3.WithPresignExpires(r.expiry))
	if err != nil {
		log.Error().Err(err).Str("mediaKey", mediaKey).Msg("Failed to presign media URL")
		return ""
	}
	return req.URL
}
