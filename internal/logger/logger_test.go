package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	lg := New(Config{Level: "info", Format: "json"}, &buf)

	lg.Debug().Msg("hidden")
	lg.Info().Str("ticker", "AAAU").Msg("ticker collected")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "AAAU", entry["ticker"])
	assert.Equal(t, "ticker collected", entry["message"])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	lg := New(Config{Level: "debug"}, &buf)
	lg.Debug().Str("stage", "quote").Msg("fetch")
	assert.Contains(t, buf.String(), "fetch")
	assert.Contains(t, buf.String(), "stage=quote")
}

func TestNop(t *testing.T) {
	lg := Nop()
	lg.Error().Msg("dropped")
}
