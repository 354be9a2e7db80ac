package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/config"
)

func TestSetupLevels(t *testing.T) {
	cases := []struct {
		configured string
		want       slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}

	for _, tc := range cases {
		logger, err := Setup(config.ServerConfig{LogLevel: tc.configured})
		require.NoError(t, err)
		require.NotNil(t, logger)

		assert.True(t, logger.Enabled(context.Background(), tc.want),
			"level %s should be enabled for configured %q", tc.want, tc.configured)
		assert.False(t, logger.Enabled(context.Background(), tc.want-4),
			"level below %s should be disabled for configured %q", tc.want, tc.configured)
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	// Without a logger in the context, the default logger is returned.
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger.With("task_id", "abc"))

	FromContext(ctx).Info("claimed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "claimed", entry["msg"])
	assert.Equal(t, "abc", entry["task_id"])
}
