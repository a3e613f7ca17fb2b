package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type logEntry map[string]any

func TestNewWritesJSON(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	l, err := New(Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	l.Info().Int64("loop_id", 7).Msg("loop tick")

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "loop tick", entry["message"])
	require.Equal(t, float64(7), entry["loop_id"])
	require.Equal(t, "info", entry["level"])
	require.Contains(t, entry, "time")
}

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	l, err := New(Options{Level: "WARN", Writer: buf})
	require.NoError(t, err)

	l.Info().Msg("hidden")
	require.Empty(t, strings.TrimSpace(buf.String()))

	l.Error().Err(errors.New("boom")).Msg("visible")
	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "boom", entry["error"])
}

func TestNewHumanReadable(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	l, err := New(Options{HumanReadable: true, Writer: buf})
	require.NoError(t, err)

	l.Info().Str("platform", "twitter").Msg("dispatched")
	out := buf.String()
	require.Contains(t, out, "dispatched")
	require.Contains(t, out, "platform=")
	require.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "chatty"})
	require.Error(t, err)
}
