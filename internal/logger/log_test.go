package logger

import (
	"bytes"
	"strings"
	"testing"

	"orders-webhook-relay/internal/config"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_TagsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.Config{
		ServiceName: "relay",
		InstanceID:  "i-1",
		LogLevel:    "warn",
	}, &buf)

	l.Info().Msg("dropped")
	l.Warn().Str("key", "k").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "relay", entry["service"])
	assert.Equal(t, "i-1", entry["instance"])
	assert.Equal(t, "k", entry["key"])
}

func TestNewWithWriter_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.Config{LogLevel: "verbose"}, &buf)

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithWriter_SamplesInfoButNotWarn(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.Config{LogLevel: "info", LogSampleN: 3}, &buf)

	for i := 0; i < 6; i++ {
		l.Info().Int("i", i).Msg("order stored")
	}
	for i := 0; i < 4; i++ {
		l.Warn().Int("i", i).Msg("rejected delivery")
	}

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "order stored"))
	assert.Equal(t, 4, strings.Count(out, "rejected delivery"))
}

func TestNewWithWriter_NoSamplingByDefault(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.Config{LogLevel: "info"}, &buf)

	for i := 0; i < 5; i++ {
		l.Info().Msg("order stored")
	}

	assert.Equal(t, 5, strings.Count(buf.String(), "order stored"))
}
