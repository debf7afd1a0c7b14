package config

import "time"

// Default values for configuration options. These are "layer 0" of the
// override chain and let the gateway start with only credentials set.
const (
	defaultAPIURL            = "https://www.googleapis.com/drive/v3"
	defaultRootFolderID      = "root"
	defaultListen            = ":8080"
	defaultReadHeaderTimeout = "10s"
	defaultShutdownTimeout   = "30s"
	defaultPollAttempts      = 15
	defaultPollInterval      = "1500ms"
	defaultFolderBudget      = "1h"
	defaultMaxDepth          = 64
	defaultBufferSize        = "256KiB"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultConnectTimeout    = "10s"
	defaultDataTimeout       = "60s"
	defaultUserAgent         = "drivegate"

	defaultPollIntervalDur = 1500 * time.Millisecond
	defaultBufferBytes     = 256 * kibibyte
)

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding, so unset fields keep their
// defaults, and the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Drive: DriveConfig{
			RootFolderID: defaultRootFolderID,
			APIURL:       defaultAPIURL,
		},
		Server: ServerConfig{
			Listen:            defaultListen,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
		},
		Copy: CopyConfig{
			PollAttempts: defaultPollAttempts,
			PollInterval: defaultPollInterval,
			FolderBudget: defaultFolderBudget,
			MaxDepth:     defaultMaxDepth,
		},
		Proxy: ProxyConfig{
			BufferSize: defaultBufferSize,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Network: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
			UserAgent:      defaultUserAgent,
		},
	}
}
