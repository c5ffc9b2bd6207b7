package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	t.Setenv("SIGPAD_TRACE", "")
	var buf bytes.Buffer
	InitWriter(&buf, "warn", true)
	defer InitWriter(&bytes.Buffer{}, "info", true)

	Info.Printf("hidden %d", 1)
	Warning.Printf("shown %d", 2)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "shown 2", rec["message"])
}

func TestTraceEnv(t *testing.T) {
	t.Setenv("SIGPAD_TRACE", "1")
	var buf bytes.Buffer
	InitWriter(&buf, "error", true)
	defer InitWriter(&bytes.Buffer{}, "info", true)

	Trace.Println("sample", 3)
	assert.Contains(t, buf.String(), `"message":"sample 3"`)
}

func TestUnknownLevel(t *testing.T) {
	t.Setenv("SIGPAD_TRACE", "")
	var buf bytes.Buffer
	InitWriter(&buf, "chatty", true)
	defer InitWriter(&bytes.Buffer{}, "info", true)

	Trace.Println("dropped")
	Info.Println("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
