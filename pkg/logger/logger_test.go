// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogInit(t *testing.T) {
	tests := []struct {
		name  string
		dbg   bool
		lines int
	}{
		{name: "Info level", dbg: false, lines: 1},
		{name: "Debug level", dbg: true, lines: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := LogInit(&buf, tt.dbg)
			l.Debug("skip unknown TLV", zap.Int("offset", 4))
			l.Info("LSDB updated", zap.Int("entries", 3))

			lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
			require.Len(t, lines, tt.lines)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
			assert.Equal(t, "LSDB updated", entry["msg"])
			assert.Equal(t, float64(3), entry["entries"])
			assert.Equal(t, "info", entry["level"])
		})
	}
}

func TestNewRotateWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	w, err := NewRotateWriter(dir, "bgplsd.log", 24*time.Hour, time.Hour)
	require.NoError(t, err)
	defer w.Close()

	l := LogInit(w, false)
	l.Info("started")

	matches, err := filepath.Glob(filepath.Join(dir, "bgplsd.log.*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	b, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"started"`)
}
