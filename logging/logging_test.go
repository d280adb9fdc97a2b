package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", "json", &buf)
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	store := Source(logger, "store")
	store.Warn().Int("nodes", 3).Msg("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "store", entry[SOURCE_FIELD_NAME])
	assert.Equal(t, float64(3), entry["nodes"])
	assert.Contains(t, entry, "time")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("DEBUG", "console", &buf)
	require.NoError(t, err)

	logger.Debug().Str("bbox", "1,2,3,4").Msg("loaded graph")
	out := buf.String()
	assert.Contains(t, out, "loaded graph")
	assert.Contains(t, out, "bbox=")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", "json", &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid log level")

	_, err = New("info", "xml", &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid log format")
}
