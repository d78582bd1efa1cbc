package pool

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// ---------------------------------------------------------------
// Buffers reused across requests.
//
// Every push delivery reads a body of a few KB and, when object
// compression is on, gzips the re-serialized order. The pools below keep
// those allocations off the GC for the common small payload.
// ---------------------------------------------------------------

var (
	// BodyPool:
	//   - holds the raw request body while the envelope is decoded
	//   - 4KB initial capacity covers a typical order notification
	BodyPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 4*1024))
		},
	}

	// BufferPool:
	//   - destination of the gzip writer
	BufferPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 16*1024))
		},
	}

	// GzipPool:
	//   - gzip.Writer is expensive to build; BestSpeed since the relay is
	//     latency bound, not storage bound
	GzipPool = sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
			return w
		},
	}
)

// MaxBufferCap is the largest buffer returned to a pool. Bigger ones are
// left to the GC so one huge order does not pin memory forever.
const MaxBufferCap = 1 * 1024 * 1024 // 1MB

// GetBody returns an empty buffer from BodyPool.
func GetBody() *bytes.Buffer {
	buf := BodyPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBody returns buf to BodyPool unless it grew past maxCap.
func PutBody(buf *bytes.Buffer, maxCap int64) {
	if int64(buf.Cap()) <= maxCap {
		buf.Reset()
		BodyPool.Put(buf)
	}
}

// PutBuffer returns buf to BufferPool unless it grew past MaxBufferCap.
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= MaxBufferCap {
		buf.Reset()
		BufferPool.Put(buf)
	}
}

// Gzip compresses data with a pooled writer and returns a slice owned by
// the caller. The pooled buffer is never handed out, since it will be
// reused by the next request.
func Gzip(data []byte) ([]byte, error) {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer PutBuffer(buf)

	gz := GzipPool.Get().(*gzip.Writer)
	gz.Reset(buf)
	defer GzipPool.Put(gz)

	if _, err := gz.Write(data); err != nil {
		_ = gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
