package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	testCases := map[string]zerolog.Level{
		"error":   zerolog.ErrorLevel,
		"WARN":    zerolog.WarnLevel,
		"Info":    zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"":        zerolog.WarnLevel,
		"verbose": zerolog.WarnLevel,
	}

	for in, expected := range testCases {
		assert.Equal(t, expected, LevelFromString(in), in)
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var console bytes.Buffer
	logger := New(&console, nil, "info")

	logger.Debug().Msg("hidden")
	logger.Info().Str("state", "idle").Msg("visible")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(console.Bytes(), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "idle", entry["state"])
	assert.Contains(t, entry, "time")
}

func TestNewWritesToBoth(t *testing.T) {
	var console, file bytes.Buffer
	logger := New(&console, &file, "debug")

	logger.Warn().Msg("both")

	assert.Contains(t, console.String(), "both")
	assert.Contains(t, file.String(), "both")
}

func TestSetupWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supervisor.log")
	closer := Setup("error", path)
	defer Setup("warn", "")

	log.Warn().Msg("filtered")
	log.Error().Msg("rotated")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotated")
	assert.NotContains(t, string(data), "filtered")
}
