package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nttcom/bgpls/internal/pkg/transcode"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Config
		wantErr  bool
	}{
		{
			name:     "Empty file",
			input:    "",
			expected: defaultConfig(),
		},
		{
			name: "Partial override",
			input: `
global:
  log:
    path: /tmp/bgplsd/
    debug: true
    maxAge: 48h
  gobgp:
    address: 127.0.0.1
    interval: 10s
`,
			expected: func() Config {
				c := defaultConfig()
				c.Global.Log.Path = "/tmp/bgplsd/"
				c.Global.Log.Debug = true
				c.Global.Log.MaxAge = 48 * time.Hour
				c.Global.Gobgp.Address = "127.0.0.1"
				c.Global.Gobgp.Interval = 10 * time.Second
				return c
			}(),
		},
		{
			name: "Static TE links",
			input: `
teLinks:
  - protocol: ospfv2
    asn: 65001
    localRouterID: 192.0.2.1
    remoteRouterID: 192.0.2.2
    igpMetric: 10
`,
			expected: func() Config {
				c := defaultConfig()
				metric := uint32(10)
				c.TELinks = []transcode.TELink{{
					Protocol:       "ospfv2",
					ASN:            65001,
					LocalRouterID:  "192.0.2.1",
					RemoteRouterID: "192.0.2.2",
					IGPMetric:      &metric,
				}}
				return c
			}(),
		},
		{
			name:    "Bad duration",
			input:   "global:\n  gobgp:\n    interval: soon\n",
			wantErr: true,
		},
		{
			name:    "Zero interval",
			input:   "global:\n  gobgp:\n    interval: 0s\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestReadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bgplsd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("global:\n  metrics:\n    address: 0.0.0.0\n"), 0o644))

	c, err := ReadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", c.Global.Metrics.Address)
	assert.Equal(t, "9100", c.Global.Metrics.Port)

	_, err = ReadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
