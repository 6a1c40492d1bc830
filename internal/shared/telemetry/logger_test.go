package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "json")
	t.Cleanup(func() { SetOutput(os.Stdout, "json") })

	Error("auth.unknown_error", map[string]any{
		"request_id": "req-1",
		"error":      errors.New("jwks fetch: connection refused"),
	})

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "error", payload["level"])
	assert.Equal(t, "auth.unknown_error", payload["message"])
	assert.Equal(t, "req-1", payload["request_id"])
	assert.Equal(t, "jwks fetch: connection refused", payload["error"])
	assert.Contains(t, payload, "time")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("DEBUG").String())
	assert.Equal(t, "warn", parseLevel("warning").String())
	assert.Equal(t, "info", parseLevel("bogus").String())
}
