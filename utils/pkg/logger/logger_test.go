package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOrderLake_Logger_FormatRFC3339Millis(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 5, 7, 8, 9, 123_456_789, time.FixedZone("IST", 5*3600+1800))
	require.Equal(t, "2025-03-05T01:38:09.123Z", formatRFC3339Millis(ts))
}

func TestOrderLake_Logger_New(t *testing.T) {
	t.Parallel()

	t.Run("info level drops debug records", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := New(&buf, false)
		log.Debug("hidden")
		require.Empty(t, buf.String())
		log.Info("shown", "rows", 3)
		require.Contains(t, buf.String(), "shown")
		require.Contains(t, buf.String(), "rows")
	})

	t.Run("verbose enables debug and drops empty string attrs", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := New(&buf, true)
		log.Debug("detail", "empty", "", "kept", "x")
		out := buf.String()
		require.Contains(t, out, "detail")
		require.Contains(t, out, "kept")
		require.NotContains(t, out, "empty")
	})
}
