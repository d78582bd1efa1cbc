// internal/storage/s3_uploader.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"orders-webhook-relay/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfgLib "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Object is one blob to write.
type Object struct {
	Bucket          string
	Key             string
	Body            []byte
	ContentType     string
	ContentEncoding string            // "" or "gzip"
	Metadata        map[string]string // stored as x-amz-meta-*
}

// S3Uploader writes objects with a single shared *s3.Client.
//
// The client is built once in main and is safe for concurrent use, so
// every in-flight request goes through the same connection pool.
// Uploads are attempted exactly once: the SDK retryer is disabled and
// redelivery is left to the push subscription.
type S3Uploader struct {
	client  *s3.Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewS3Uploader wraps client. timeout bounds each PutObject call.
func NewS3Uploader(client *s3.Client, timeout time.Duration, log zerolog.Logger) *S3Uploader {
	return &S3Uploader{
		client:  client,
		timeout: timeout,
		log:     log.With().Str("component", "s3").Logger(),
	}
}

// NewS3Client loads the ambient AWS configuration (env vars, shared
// config, web identity, container/instance role) and builds the client.
//
// S3_ENDPOINT points the client at an S3-compatible service instead of
// AWS; path-style addressing is usually required there.
func NewS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	awsCfg, err := awsCfgLib.LoadDefaultConfig(
		ctx,
		awsCfgLib.WithRegion(cfg.AWSRegion),
		awsCfgLib.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return client, nil
}

// Put uploads obj with one PutObject call.
//
// Any failure comes back as *Error with its Kind already classified, so
// callers only need KindOf. A call that outlives the timeout fails with
// KindOther instead of hanging the request.
func (u *S3Uploader) Put(ctx context.Context, obj Object) error {
	ctx2, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	in := &s3.PutObjectInput{
		Bucket:        aws.String(obj.Bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Body),
		ContentLength: aws.Int64(int64(len(obj.Body))),
		ContentType:   aws.String(obj.ContentType),
	}
	if obj.ContentEncoding != "" {
		in.ContentEncoding = aws.String(obj.ContentEncoding)
	}
	if len(obj.Metadata) > 0 {
		in.Metadata = obj.Metadata
	}

	start := time.Now()
	_, err := u.client.PutObject(ctx2, in)
	if err != nil {
		kind := Classify(err)
		u.log.Debug().
			Err(err).
			Str("bucket", obj.Bucket).
			Str("key", obj.Key).
			Str("kind", kind.String()).
			Dur("elapsed", time.Since(start)).
			Msg("PutObject failed")
		return &Error{
			Kind:   kind,
			Op:     "PutObject",
			Bucket: obj.Bucket,
			Key:    obj.Key,
			Err:    err,
		}
	}

	u.log.Debug().
		Str("bucket", obj.Bucket).
		Str("key", obj.Key).
		Int("bytes", len(obj.Body)).
		Dur("elapsed", time.Since(start)).
		Msg("PutObject ok")
	return nil
}
