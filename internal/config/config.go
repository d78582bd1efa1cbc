// internal/config/config.go
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // named zones resolve in distroless images

	"github.com/spf13/viper"
)

// Config
//
// Every value the relay needs at runtime. Load() fills it once at process
// start; after that it is read-only and shared by value.
type Config struct {

	// ---------------------------
	// Service identity / network
	// ---------------------------

	ServiceName string // log tag (e.g. orders-webhook-relay)
	InstanceID  string // hostname, falls back to random hex
	Port        int    // HTTP listen port (PORT)

	// ---------------------------
	// Blob store target
	// ---------------------------

	Bucket         string         // destination bucket
	ObjectPrefix   string         // key prefix before the year=/month=/... partition
	Location       *time.Location // reference timezone for partitioning
	AWSRegion      string
	S3Endpoint     string // optional custom endpoint (MinIO, GCS XML interop)
	S3UsePathStyle bool

	UploadTimeout   time.Duration // bound on a single PutObject call
	CompressObjects bool          // gzip object bodies (Content-Encoding: gzip)

	// ---------------------------
	// HTTP server
	// ---------------------------

	MaxBodySize     int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// ---------------------------
	// Logging
	// ---------------------------

	LogLevel   string
	LogPretty  bool
	LogSampleN uint32 // keep 1 of N debug/info entries; 0 or 1 keeps all
}

// Defaults. The bucket and prefix match what batch readers scan today.
const (
	DefaultPort          = 8080
	DefaultServiceName   = "orders-webhook-relay"
	DefaultBucket        = "ml-webhook-orders-raw"
	DefaultObjectPrefix  = "mercadolibre/webhook_orders_raw"
	DefaultTimezone      = "UTC"
	DefaultAWSRegion     = "us-east-1"
	DefaultMaxBodySize   = 16 << 20
	DefaultUploadTimeout = 10 * time.Second
)

// Addr returns the listen address derived from Port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Load
//
// Reads configuration from the environment. Unset keys fall back to the
// defaults above; malformed values are returned as an error so main can
// fail fast before the listener is opened.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	loc, err := time.LoadLocation(strings.TrimSpace(v.GetString("PARTITION_TIMEZONE")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PARTITION_TIMEZONE %q: %w", v.GetString("PARTITION_TIMEZONE"), err)
	}

	port, err := strconv.Atoi(strings.TrimSpace(v.GetString("PORT")))
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %q", v.GetString("PORT"))
	}

	cfg := Config{
		ServiceName: v.GetString("SERVICE_NAME"),
		InstanceID:  v.GetString("INSTANCE_ID"),
		Port:        port,

		Bucket:         v.GetString("BUCKET_NAME"),
		ObjectPrefix:   strings.Trim(v.GetString("OBJECT_PREFIX"), "/"),
		Location:       loc,
		AWSRegion:      v.GetString("AWS_REGION"),
		S3Endpoint:     v.GetString("S3_ENDPOINT"),
		S3UsePathStyle: v.GetBool("S3_USE_PATH_STYLE"),

		UploadTimeout:   v.GetDuration("UPLOAD_TIMEOUT"),
		CompressObjects: v.GetBool("COMPRESS_OBJECTS"),

		MaxBodySize:     v.GetInt64("MAX_BODY_SIZE"),
		ReadTimeout:     v.GetDuration("READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration("WRITE_TIMEOUT"),
		IdleTimeout:     v.GetDuration("IDLE_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),

		LogLevel:   v.GetString("LOG_LEVEL"),
		LogPretty:  v.GetBool("LOG_PRETTY"),
		LogSampleN: v.GetUint32("LOG_SAMPLE_N"),
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = fallbackInstanceID()
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", DefaultServiceName)
	v.SetDefault("PORT", DefaultPort)

	v.SetDefault("BUCKET_NAME", DefaultBucket)
	v.SetDefault("OBJECT_PREFIX", DefaultObjectPrefix)
	v.SetDefault("PARTITION_TIMEZONE", DefaultTimezone)
	v.SetDefault("AWS_REGION", DefaultAWSRegion)
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_USE_PATH_STYLE", false)

	v.SetDefault("UPLOAD_TIMEOUT", DefaultUploadTimeout)
	v.SetDefault("COMPRESS_OBJECTS", false)

	v.SetDefault("MAX_BODY_SIZE", DefaultMaxBodySize)
	v.SetDefault("READ_TIMEOUT", 15*time.Second)
	v.SetDefault("WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 15*time.Second)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("LOG_SAMPLE_N", 0)
}

func (c Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("BUCKET_NAME must not be empty")
	}
	if c.ObjectPrefix == "" {
		return fmt.Errorf("OBJECT_PREFIX must not be empty")
	}
	if c.MaxBodySize <= 0 {
		return fmt.Errorf("MAX_BODY_SIZE must be positive, got %d", c.MaxBodySize)
	}
	durations := map[string]time.Duration{
		"UPLOAD_TIMEOUT":   c.UploadTimeout,
		"READ_TIMEOUT":     c.ReadTimeout,
		"WRITE_TIMEOUT":    c.WriteTimeout,
		"IDLE_TIMEOUT":     c.IdleTimeout,
		"SHUTDOWN_TIMEOUT": c.ShutdownTimeout,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %s", key, d)
		}
	}
	return nil
}

// fallbackInstanceID
//
// Identifies this relay process in logs.
//   - default: hostname (unique per container/revision instance)
//   - fallback: 12 random hex characters
func fallbackInstanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	var b [6]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
