package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/match-session-planner/internal/logger"
)

func TestNew(t *testing.T) {
	t.Run("production writes JSON at info level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New("prod", "match-sessions", logger.WithOutput(buf))
		log.Debug("hidden")
		log.Info("hello", slog.String("k", "v"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "match-sessions", entry["service"])
		assert.Equal(t, "prod", entry["env"])
		assert.Equal(t, "v", entry["k"])
	})

	t.Run("development writes text at debug level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New("dev", "svc", logger.WithOutput(buf))
		log.Debug("details")
		out := buf.String()
		assert.Contains(t, out, "level=DEBUG")
		assert.Contains(t, out, "details")
		assert.Contains(t, out, "service=svc")
	})

	t.Run("level override", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New("dev", "", logger.WithOutput(buf), logger.WithLevel(slog.LevelWarn))
		log.Info("skip")
		assert.Empty(t, buf.String())
	})
}
