// internal/writer/writer.go
package writer

import (
	"context"
	"fmt"

	"orders-webhook-relay/internal/model"
	"orders-webhook-relay/internal/partition"
	"orders-webhook-relay/internal/pool"
	"orders-webhook-relay/internal/storage"

	json "github.com/goccy/go-json"
)

const contentTypeJSON = "application/json"

// Uploader is the single blob store capability the writer needs.
// *storage.S3Uploader satisfies it; tests use an in-memory fake.
type Uploader interface {
	Put(ctx context.Context, obj storage.Object) error
}

// Options are the process-wide write settings.
type Options struct {
	Bucket   string
	Prefix   string
	Compress bool
}

// Result describes a stored (or attempted) object.
type Result struct {
	Key   string
	Bytes int
}

// PartitionedWriter stores each order under its own hour-partitioned key.
//
// It holds no per-request state; one instance serves every request.
type PartitionedWriter struct {
	uploader Uploader
	clock    *partition.Clock
	opts     Options
	newName  func() string
}

func New(u Uploader, clock *partition.Clock, opts Options) *PartitionedWriter {
	return &PartitionedWriter{
		uploader: u,
		clock:    clock,
		opts:     opts,
		newName:  partition.NewObjectName,
	}
}

// Write
//
//  1. resolves now in the reference timezone
//  2. builds <prefix>/year=/month=/day=/hour=/order_<uuid>.json
//  3. re-serializes the payload as compact JSON (no HTML escaping)
//  4. gzips it when compression is on
//  5. uploads once
//
// Result.Key is filled even when the upload fails so the caller can log
// it. Upload errors are returned unchanged (*storage.Error).
func (w *PartitionedWriter) Write(ctx context.Context, order model.Order) (Result, error) {
	key := partition.BuildKey(w.opts.Prefix, w.clock.Now(), w.newName())
	res := Result{Key: key}

	body, err := json.MarshalWithOption(order.Payload, json.DisableHTMLEscape())
	if err != nil {
		return res, fmt.Errorf("serialize order: %w", err)
	}

	obj := storage.Object{
		Bucket:      w.opts.Bucket,
		Key:         key,
		ContentType: contentTypeJSON,
		Metadata:    metadata(order),
	}

	if w.opts.Compress {
		gz, err := pool.Gzip(body)
		if err != nil {
			return res, fmt.Errorf("compress order: %w", err)
		}
		body = gz
		obj.ContentEncoding = "gzip"
	}

	obj.Body = body
	res.Bytes = len(body)

	if err := w.uploader.Put(ctx, obj); err != nil {
		return res, err
	}
	return res, nil
}

// metadata copies the delivery fields that are present.
func metadata(order model.Order) map[string]string {
	md := make(map[string]string, 3)
	if order.MessageID != "" {
		md["message-id"] = order.MessageID
	}
	if order.PublishTime != "" {
		md["publish-time"] = order.PublishTime
	}
	if order.Subscription != "" {
		md["subscription"] = order.Subscription
	}
	if len(md) == 0 {
		return nil
	}
	return md
}
