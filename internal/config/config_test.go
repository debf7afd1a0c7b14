package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AllFieldsPopulated(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Auth.ClientID)
	assert.Empty(t, cfg.Auth.TokenURL)

	assert.Equal(t, "root", cfg.Drive.RootFolderID)
	assert.Equal(t, "https://www.googleapis.com/drive/v3", cfg.Drive.APIURL)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "10s", cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, "30s", cfg.Server.ShutdownTimeout)

	assert.Equal(t, 15, cfg.Copy.PollAttempts)
	assert.Equal(t, "1500ms", cfg.Copy.PollInterval)
	assert.Equal(t, "1h", cfg.Copy.FolderBudget)
	assert.Equal(t, 64, cfg.Copy.MaxDepth)

	assert.Equal(t, "256KiB", cfg.Proxy.BufferSize)

	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "auto", cfg.Logging.LogFormat)

	assert.Equal(t, "10s", cfg.Network.ConnectTimeout)
	assert.Equal(t, "60s", cfg.Network.DataTimeout)
	assert.Equal(t, "drivegate", cfg.Network.UserAgent)
	assert.Zero(t, cfg.Network.MaxRetries)
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestTypedAccessors(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1500*time.Millisecond, cfg.Copy.PollIntervalDuration())
	assert.Equal(t, time.Hour, cfg.Copy.FolderBudgetDuration())
	assert.Equal(t, 256*1024, cfg.Proxy.BufferBytes())
	assert.Equal(t, 10*time.Second, cfg.Server.ReadHeaderTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeoutDuration())
	assert.Equal(t, 10*time.Second, cfg.Network.ConnectTimeoutDuration())
	assert.Equal(t, time.Minute, cfg.Network.DataTimeoutDuration())
}

func TestTypedAccessors_FallBackOnGarbage(t *testing.T) {
	c := CopyConfig{PollInterval: "soon", FolderBudget: "later"}
	assert.Equal(t, 1500*time.Millisecond, c.PollIntervalDuration())
	assert.Zero(t, c.FolderBudgetDuration())

	p := ProxyConfig{BufferSize: "lots"}
	assert.Equal(t, 256*1024, p.BufferBytes())
}
