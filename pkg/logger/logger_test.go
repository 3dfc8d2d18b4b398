package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutputCarriesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Options{}) })

	InfoCF("notifier", "Status message sent", map[string]interface{}{
		"guild_id": "42",
		"outcome":  "sent",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "Status message sent", entry["msg"])
	assert.Equal(t, "notifier", entry["component"])
	assert.Equal(t, "42", entry["guild_id"])
	assert.Equal(t, "sent", entry["outcome"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(Options{}) })

	DebugC("session", "hidden")
	InfoC("session", "hidden too")
	WarnC("session", "visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")

	SetLevel("debug")
	DebugC("session", "now shown")
	assert.True(t, strings.Contains(buf.String(), "now shown"))
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, parseLevel("info"), parseLevel("bogus"))
	assert.Equal(t, parseLevel("warn"), parseLevel("WARNING"))
}
