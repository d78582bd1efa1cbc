// internal/logger/log.go
package logger

import (
	"io"
	"os"
	"strings"

	"orders-webhook-relay/internal/config"

	stdlog "log"

	"github.com/rs/zerolog"
)

// New
//
// Builds the process logger once at startup. The returned logger is passed
// explicitly to the components that log (handler, storage); nothing on the
// request path reads a package-level logger.
//
//  1. Level: LOG_LEVEL (debug/info/warn/error), info when unparsable.
//     Decoded payloads are only logged at debug.
//  2. Format: LOG_PRETTY=true gives a console writer for local runs,
//     otherwise one JSON object per line on stdout.
//  3. Common fields: service and instance on every entry.
//  4. Sampling: LOG_SAMPLE_N > 1 keeps 1 of N debug/info entries.
//     Warn and error (every rejected or failed delivery) are never sampled.
//
// The standard library logger is redirected to the same sink so that
// messages from net/http (e.g. TLS handshake errors) keep the format.
func New(cfg config.Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with an explicit sink; tests pass a bytes.Buffer.
func NewWithWriter(cfg config.Config, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel))); err == nil && l != zerolog.NoLevel {
		level = l
	}

	w := out
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	l := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()

	if cfg.LogSampleN > 1 {
		l = l.Sample(&zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: cfg.LogSampleN},
			InfoSampler:  &zerolog.BasicSampler{N: cfg.LogSampleN},
		})
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(l)

	return l
}
