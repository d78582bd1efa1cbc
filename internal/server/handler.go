package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"orders-webhook-relay/internal/config"
	"orders-webhook-relay/internal/metrics"
	"orders-webhook-relay/internal/model"
	"orders-webhook-relay/internal/partition"
	"orders-webhook-relay/internal/pool"
	"orders-webhook-relay/internal/storage"
	"orders-webhook-relay/internal/writer"

	"github.com/rs/zerolog"
)

// OrderWriter persists one validated order.
type OrderWriter interface {
	Write(ctx context.Context, order model.Order) (writer.Result, error)
}

// Response bodies. Push subscriptions only look at the status code;
// the text is for humans replaying deliveries by hand.
const (
	bodyOK               = "OK"
	bodyNoMessage        = "Bad Request: no message"
	bodyInvalidJSON      = "Bad Request: invalid JSON"
	bodyTooLarge         = "Request Entity Too Large"
	bodyMethodNotAllowed = "Method Not Allowed"
	bodyUploadBadRequest = "invalid upload parameters"
	bodyUploadNotFound   = "bucket or resource missing"
	bodyUploadForbidden  = "access denied"
	bodyInternalError    = "Internal Server Error"
)

type Handler struct {
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics
	writer  OrderWriter
}

func NewHandler(cfg config.Config, log zerolog.Logger, m *metrics.Metrics, w OrderWriter) *Handler {
	return &Handler{
		cfg:     cfg,
		log:     log,
		metrics: m,
		writer:  w,
	}
}

// NewRouter wires the handler's endpoints:
//   - POST /    : push delivery
//   - GET /health
//   - GET /metrics
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", h.HandleWebhook)
	mux.HandleFunc("/health", h.HandleHealth)
	mux.Handle("/metrics", h.metrics.Handler())
	return mux
}

// HandleWebhook
//
// One push delivery, processed synchronously:
//  1. read the body (bounded by MaxBodySize)
//  2. decode envelope -> base64 data -> JSON payload
//  3. write the order under its hour partition
//  4. map the outcome to a status code
//
// A non-2xx answer makes the subscription redeliver the message later;
// the relay itself never retries.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	log := h.log.With().
		Str("remote_ip", remoteIP(r)).
		Logger()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.respond(w, http.StatusMethodNotAllowed, bodyMethodNotAllowed)
		return
	}

	// --------------------------------------------------------------------
	// 1) body
	// --------------------------------------------------------------------
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodySize)
	defer r.Body.Close()

	buf := pool.GetBody()
	defer pool.PutBody(buf, pool.MaxBufferCap)

	if _, err := io.Copy(buf, r.Body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.ClientErrorsTotal.WithLabelValues("too_large").Inc()
			log.Warn().Int64("limit", tooLarge.Limit).Msg("request body too large")
			h.respond(w, http.StatusRequestEntityTooLarge, bodyTooLarge)
			return
		}
		h.metrics.ClientErrorsTotal.WithLabelValues(MissingMessage.String()).Inc()
		log.Warn().Err(err).Msg("failed to read request body")
		h.respond(w, http.StatusBadRequest, bodyNoMessage)
		return
	}

	// --------------------------------------------------------------------
	// 2) envelope + payload
	// --------------------------------------------------------------------
	order, raw, err := DecodeOrder(buf.Bytes())
	if err != nil {
		h.rejectClient(w, log, err, raw)
		return
	}

	log = log.With().Str("message_id", order.MessageID).Logger()
	log.Debug().Bytes("payload", raw).Msg("order decoded")

	// --------------------------------------------------------------------
	// 3) store
	// --------------------------------------------------------------------
	start := time.Now()
	res, err := h.writer.Write(r.Context(), order)
	h.metrics.UploadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		h.rejectStorage(w, log, err, res, raw)
		return
	}

	h.metrics.ObjectsStoredTotal.Inc()
	h.metrics.PayloadBytes.Observe(float64(res.Bytes))

	ev := log.Info().
		Str("key", res.Key).
		Int("bytes", res.Bytes)
	if id, ok := partition.ParseObjectID(res.Key); ok {
		ev = ev.Str("object_id", id)
	}
	ev.Msg("order stored")

	h.respond(w, http.StatusOK, bodyOK)
}

// rejectClient answers a ClientError with 400. Anything else reaching
// here is a bug in the decoder and answers 500.
func (h *Handler) rejectClient(w http.ResponseWriter, log zerolog.Logger, err error, raw []byte) {
	var ce *ClientError
	if !errors.As(err, &ce) {
		log.Error().Err(err).Msg("unexpected decode failure")
		h.respond(w, http.StatusInternalServerError, bodyInternalError)
		return
	}

	h.metrics.ClientErrorsTotal.WithLabelValues(ce.Kind.String()).Inc()

	ev := log.Warn().Err(err).Str("reason", ce.Kind.String())
	if len(raw) > 0 {
		ev = ev.Bytes("payload", raw)
	}
	ev.Msg("rejected delivery")

	switch ce.Kind {
	case MissingMessage:
		h.respond(w, http.StatusBadRequest, bodyNoMessage)
	default:
		h.respond(w, http.StatusBadRequest, bodyInvalidJSON)
	}
}

// rejectStorage maps the classified upload failure to a status code.
func (h *Handler) rejectStorage(w http.ResponseWriter, log zerolog.Logger, err error, res writer.Result, raw []byte) {
	kind := storage.KindOf(err)
	h.metrics.StorageErrorsTotal.WithLabelValues(kind.String()).Inc()

	log.Error().
		Err(err).
		Str("kind", kind.String()).
		Str("bucket", h.cfg.Bucket).
		Str("key", res.Key).
		Bytes("payload", raw).
		Msg("failed to store order")

	switch kind {
	case storage.KindBadRequest:
		h.respond(w, http.StatusBadRequest, bodyUploadBadRequest)
	case storage.KindNotFound:
		h.respond(w, http.StatusNotFound, bodyUploadNotFound)
	case storage.KindForbidden:
		h.respond(w, http.StatusForbidden, bodyUploadForbidden)
	default:
		h.respond(w, http.StatusInternalServerError, bodyInternalError)
	}
}

// HandleHealth is the liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (h *Handler) respond(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
	h.metrics.ObserveRequest(code)
}
