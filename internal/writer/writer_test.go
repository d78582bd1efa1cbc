package writer

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"orders-webhook-relay/internal/model"
	"orders-webhook-relay/internal/partition"
	"orders-webhook-relay/internal/storage"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	mu      sync.Mutex
	objects []storage.Object
	err     error
}

func (m *memUploader) Put(_ context.Context, obj storage.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.objects = append(m.objects, obj)
	return nil
}

func fixedClock(t time.Time) *partition.Clock {
	return partition.NewClockFunc(time.UTC, func() time.Time { return t })
}

func parse(t *testing.T, data string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestWrite_StoresPayloadUnderPartitionKey(t *testing.T) {
	up := &memUploader{}
	w := New(up, fixedClock(time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)), Options{
		Bucket: "orders",
		Prefix: "mercadolibre/webhook_orders_raw",
	})
	w.newName = func() string { return "order_fixed.json" }

	payload := `{"resource":"/orders/2000001234567890","user_id":123,"topic":"orders_v2","note":"<b>&</b>"}`
	res, err := w.Write(context.Background(), model.Order{Payload: parse(t, payload), MessageID: "m-1"})
	require.NoError(t, err)

	require.Len(t, up.objects, 1)
	obj := up.objects[0]
	assert.Equal(t, "orders", obj.Bucket)
	assert.Equal(t, "mercadolibre/webhook_orders_raw/year=2024/month=03/day=05/hour=14/order_fixed.json", obj.Key)
	assert.Equal(t, res.Key, obj.Key)
	assert.Equal(t, len(obj.Body), res.Bytes)
	assert.Equal(t, "application/json", obj.ContentType)
	assert.Empty(t, obj.ContentEncoding)
	assert.Equal(t, map[string]string{"message-id": "m-1"}, obj.Metadata)

	assert.JSONEq(t, payload, string(obj.Body))
	assert.Contains(t, string(obj.Body), "2000001234567890", "large ids keep their precision")
	assert.Contains(t, string(obj.Body), "<b>&</b>", "no HTML escaping")
}

func TestWrite_DistinctKeysWithinSameHour(t *testing.T) {
	up := &memUploader{}
	w := New(up, fixedClock(time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)), Options{Bucket: "b", Prefix: "p"})

	order := model.Order{Payload: parse(t, `{"id":1}`)}
	first, err := w.Write(context.Background(), order)
	require.NoError(t, err)
	second, err := w.Write(context.Background(), order)
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)

	id1, ok := partition.ParseObjectID(first.Key)
	require.True(t, ok)
	id2, ok := partition.ParseObjectID(second.Key)
	require.True(t, ok)
	assert.NotEqual(t, id1, id2)
}

func TestWrite_NonObjectPayloads(t *testing.T) {
	for _, payload := range []string{`[1,2,3]`, `"text"`, `42`, `null`, `true`} {
		t.Run(payload, func(t *testing.T) {
			up := &memUploader{}
			w := New(up, partition.NewClock(time.UTC), Options{Bucket: "b", Prefix: "p"})

			_, err := w.Write(context.Background(), model.Order{Payload: parse(t, payload)})
			require.NoError(t, err)
			require.Len(t, up.objects, 1)
			assert.JSONEq(t, payload, string(up.objects[0].Body))
		})
	}
}

func stdDecode(t *testing.T, data []byte) any {
	t.Helper()
	dec := stdjson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestWrite_StoredBodyRoundTrips(t *testing.T) {
	payloads := []string{
		`{"resource":"/orders/2000005555555555","user_id":987654321,"topic":"orders_v2","attempts":1}`,
		`{"nested":{"list":[1,2.5,-3e10,null,true,"x"]},"empty":{},"none":[]}`,
		`{"unicode":"S\u00e3o Paulo \u2713","escaped":"tab\there \"quoted\" back\\slash"}`,
		`{"html":"<a href=\"x\">&amp;</a>"}`,
		`[{"id":1},{"id":2}]`,
		`"plain string"`,
		`0`,
		`-12.75`,
		`12345678901234567890123`,
		`false`,
		`null`,
	}

	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			require.True(t, stdjson.Valid([]byte(payload)))

			up := &memUploader{}
			w := New(up, partition.NewClock(time.UTC), Options{Bucket: "b", Prefix: "p"})

			_, err := w.Write(context.Background(), model.Order{Payload: parse(t, payload)})
			require.NoError(t, err)
			require.Len(t, up.objects, 1)

			body := up.objects[0].Body
			require.True(t, stdjson.Valid(body), "stored body is not JSON: %s", body)
			assert.Equal(t, stdDecode(t, []byte(payload)), stdDecode(t, body))
		})
	}
}

func TestWrite_Compressed(t *testing.T) {
	up := &memUploader{}
	w := New(up, partition.NewClock(time.UTC), Options{Bucket: "b", Prefix: "p", Compress: true})

	_, err := w.Write(context.Background(), model.Order{Payload: parse(t, `{"id":7}`)})
	require.NoError(t, err)

	obj := up.objects[0]
	assert.Equal(t, "gzip", obj.ContentEncoding)
	assert.Equal(t, "application/json", obj.ContentType)

	r, err := gzip.NewReader(bytes.NewReader(obj.Body))
	require.NoError(t, err)
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7}`, string(raw))
}

func TestWrite_UploadErrorKeepsKey(t *testing.T) {
	up := &memUploader{err: &storage.Error{Kind: storage.KindForbidden, Op: "PutObject", Err: errors.New("denied")}}
	w := New(up, partition.NewClock(time.UTC), Options{Bucket: "b", Prefix: "p"})

	res, err := w.Write(context.Background(), model.Order{Payload: parse(t, `{}`)})
	require.Error(t, err)
	assert.Equal(t, storage.KindForbidden, storage.KindOf(err))
	assert.True(t, strings.HasPrefix(res.Key, "p/year="))
}

func TestWrite_MetadataOnlyWhenPresent(t *testing.T) {
	assert.Nil(t, metadata(model.Order{}))
	assert.Equal(t, map[string]string{
		"message-id":   "1",
		"publish-time": "2024-03-05T14:30:00Z",
		"subscription": "projects/p/subscriptions/orders",
	}, metadata(model.Order{
		MessageID:    "1",
		PublishTime:  "2024-03-05T14:30:00Z",
		Subscription: "projects/p/subscriptions/orders",
	}))
}
