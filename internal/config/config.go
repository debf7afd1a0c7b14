// Package config implements TOML configuration loading, validation, live
// reload and platform-specific path resolution for drivegate. Values resolve
// through a four-layer override chain: defaults -> config file ->
// environment -> CLI flags.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
// Durations and sizes are kept as the strings the user wrote so Validate can
// report them verbatim; the typed accessors below parse them.
type Config struct {
	Auth    AuthConfig    `toml:"auth"`
	Drive   DriveConfig   `toml:"drive"`
	Server  ServerConfig  `toml:"server"`
	Copy    CopyConfig    `toml:"copy"`
	Proxy   ProxyConfig   `toml:"proxy"`
	Logging LoggingConfig `toml:"logging"`
	Network NetworkConfig `toml:"network"`
}

// AuthConfig holds the OAuth client and the long-lived refresh token used to
// mint access tokens. An empty token_url means Google's endpoint.
type AuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	TokenURL     string `toml:"token_url"`
}

// DriveConfig names the folder that acts as the gateway's root and the
// Drive API endpoint.
type DriveConfig struct {
	RootFolderID string `toml:"root_folder_id"`
	APIURL       string `toml:"api_url"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Listen            string `toml:"listen"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// CopyConfig tunes server-side copies: readiness polling for files, and the
// depth and wall-time limits for folder trees.
type CopyConfig struct {
	PollAttempts int    `toml:"poll_attempts"`
	PollInterval string `toml:"poll_interval"`
	FolderBudget string `toml:"folder_budget"`
	MaxDepth     int    `toml:"max_depth"`
}

// ProxyConfig controls download streaming.
type ProxyConfig struct {
	BufferSize string `toml:"buffer_size"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls the outbound HTTP client. max_retries applies to
// Drive API calls only; media streams are never retried.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	UserAgent      string `toml:"user_agent"`
	MaxRetries     int    `toml:"max_retries"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath   string  // --config flag (empty = use default)
	Listen       *string // --listen flag
	RootFolderID *string // --root flag
}

// PollIntervalDuration returns copy.poll_interval. Invalid values fall back to the
// default; Validate reports them.
func (c *CopyConfig) PollIntervalDuration() time.Duration {
	return durationOr(c.PollInterval, defaultPollIntervalDur)
}

// FolderBudgetDuration returns copy.folder_budget; zero means unbounded.
func (c *CopyConfig) FolderBudgetDuration() time.Duration {
	return durationOr(c.FolderBudget, 0)
}

// BufferBytes returns proxy.buffer_size in bytes.
func (p *ProxyConfig) BufferBytes() int {
	n, err := ParseSize(p.BufferSize)
	if err != nil || n <= 0 {
		return defaultBufferBytes
	}

	return int(n)
}

// ReadHeaderTimeoutDuration returns server.read_header_timeout.
func (s *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return durationOr(s.ReadHeaderTimeout, 0)
}

// ShutdownTimeoutDuration returns server.shutdown_timeout.
func (s *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return durationOr(s.ShutdownTimeout, 0)
}

// ConnectTimeoutDuration returns network.connect_timeout.
func (n *NetworkConfig) ConnectTimeoutDuration() time.Duration {
	return durationOr(n.ConnectTimeout, 0)
}

// DataTimeoutDuration returns network.data_timeout, the time allowed for
// response headers after a request is sent.
func (n *NetworkConfig) DataTimeoutDuration() time.Duration {
	return durationOr(n.DataTimeout, 0)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}

	return d
}
