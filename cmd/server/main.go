package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orders-webhook-relay/internal/config"
	"orders-webhook-relay/internal/logger"
	"orders-webhook-relay/internal/metrics"
	"orders-webhook-relay/internal/partition"
	"orders-webhook-relay/internal/server"
	"orders-webhook-relay/internal/storage"
	"orders-webhook-relay/internal/writer"

	"github.com/rs/zerolog"
)

func main() {

	// ====================================================================
	// Config & Logger
	// ====================================================================
	//
	// Everything comes from the environment (PORT, BUCKET_NAME,
	// PARTITION_TIMEZONE, ...). A bad value stops the process before the
	// port is opened, so the platform never routes traffic to it.
	// ====================================================================
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(cfg)
	m := metrics.New()

	// ====================================================================
	// Blob store client (built once, shared by every request)
	// ====================================================================
	//
	// Credentials come from the ambient chain: env, shared config, web
	// identity or the container/instance role. The SDK retryer is off;
	// a failed upload answers non-2xx and the subscription redelivers.
	// ====================================================================
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	client, err := storage.NewS3Client(initCtx, cfg)
	initCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build S3 client")
	}

	uploader := storage.NewS3Uploader(client, cfg.UploadTimeout, log)
	clock := partition.NewClock(cfg.Location)
	w := writer.New(uploader, clock, writer.Options{
		Bucket:   cfg.Bucket,
		Prefix:   cfg.ObjectPrefix,
		Compress: cfg.CompressObjects,
	})

	// ====================================================================
	// HTTP
	// ====================================================================
	//
	//  - POST /    : push delivery
	//  - /health   : liveness probe
	//  - /metrics  : Prometheus
	//
	// WriteTimeout must stay above UPLOAD_TIMEOUT or a slow upload would
	// be cut by the server before it can be answered with a status.
	// ====================================================================
	h := server.NewHandler(cfg, log, m, w)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.NewRouter(h),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// ====================================================================
	// Graceful shutdown
	// ====================================================================
	//
	// On SIGTERM the platform stops routing new deliveries; in-flight
	// requests get ShutdownTimeout to finish their upload and answer.
	// Anything cut off is simply redelivered.
	// ====================================================================
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().
		Str("addr", cfg.Addr()).
		Str("bucket", cfg.Bucket).
		Str("prefix", cfg.ObjectPrefix).
		Str("timezone", clock.Location().String()).
		Bool("compress", cfg.CompressObjects).
		Msg("webhook relay listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server terminated")
	}

	<-done
	log.Info().Msg("shutdown complete")
}
