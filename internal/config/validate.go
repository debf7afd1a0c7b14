package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minPollAttempts      = 1
	maxPollAttempts      = 100
	minPollInterval      = 100 * time.Millisecond
	minMaxDepth          = 1
	maxMaxDepth          = 256
	minBufferBytes       = 4 * kibibyte
	maxBufferBytes       = 16 * mebibyte
	minShutdownTimeout   = 1 * time.Second
	minReadHeaderTimeout = 1 * time.Second
	minConnectTimeout    = 1 * time.Second
	minDataTimeout       = 5 * time.Second
	maxRetries           = 10
)

// ErrMissingCredentials is returned by ValidateCredentials when any of the
// OAuth client ID, client secret or refresh token is unset.
var ErrMissingCredentials = errors.New("missing credentials")

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateDrive(&cfg.Drive)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateCopy(&cfg.Copy)...)
	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

// ValidateCredentials checks that everything needed to mint access tokens
// is present. Commands that never call Drive skip it.
func ValidateCredentials(cfg *Config) error {
	var missing []error

	for _, f := range []struct{ name, env, value string }{
		{"auth.client_id", EnvClientID, cfg.Auth.ClientID},
		{"auth.client_secret", EnvClientSecret, cfg.Auth.ClientSecret},
		{"auth.refresh_token", EnvRefreshToken, cfg.Auth.RefreshToken},
	} {
		if f.value == "" {
			missing = append(missing, fmt.Errorf("%w: %s (or %s) must be set", ErrMissingCredentials, f.name, f.env))
		}
	}

	return errors.Join(missing...)
}

func validateAuth(a *AuthConfig) []error {
	if a.TokenURL == "" {
		return nil
	}

	return validateHTTPURL("auth.token_url", a.TokenURL)
}

func validateDrive(d *DriveConfig) []error {
	var errs []error

	if d.RootFolderID == "" {
		errs = append(errs, errors.New("drive.root_folder_id: must not be empty"))
	}

	errs = append(errs, validateHTTPURL("drive.api_url", d.APIURL)...)

	return errs
}

func validateHTTPURL(field, raw string) []error {
	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", field, err)}
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []error{fmt.Errorf("%s: must be an absolute http or https URL, got %q", field, raw)}
	}

	return nil
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		errs = append(errs, fmt.Errorf("server.listen: %w", err))
	}

	errs = append(errs, validateDurationMin("server.read_header_timeout", s.ReadHeaderTimeout, minReadHeaderTimeout)...)
	errs = append(errs, validateDurationMin("server.shutdown_timeout", s.ShutdownTimeout, minShutdownTimeout)...)

	return errs
}

func validateCopy(c *CopyConfig) []error {
	var errs []error

	if c.PollAttempts < minPollAttempts || c.PollAttempts > maxPollAttempts {
		errs = append(errs, fmt.Errorf("copy.poll_attempts: must be between %d and %d, got %d",
			minPollAttempts, maxPollAttempts, c.PollAttempts))
	}

	if c.MaxDepth < minMaxDepth || c.MaxDepth > maxMaxDepth {
		errs = append(errs, fmt.Errorf("copy.max_depth: must be between %d and %d, got %d",
			minMaxDepth, maxMaxDepth, c.MaxDepth))
	}

	errs = append(errs, validateDurationMin("copy.poll_interval", c.PollInterval, minPollInterval)...)
	errs = append(errs, validateDurationNonNeg("copy.folder_budget", c.FolderBudget)...)

	return errs
}

func validateProxy(p *ProxyConfig) []error {
	n, err := ParseSize(p.BufferSize)
	if err != nil {
		return []error{fmt.Errorf("proxy.buffer_size: %w", err)}
	}

	if n < minBufferBytes || n > maxBufferBytes {
		return []error{fmt.Errorf("proxy.buffer_size: must be between 4KiB and 16MiB, got %s", p.BufferSize)}
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)}
	}

	return nil
}

func validateDurationNonNeg(field, value string) []error {
	return validateDurationMin(field, value, 0)
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("network.connect_timeout", n.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("network.data_timeout", n.DataTimeout, minDataTimeout)...)

	if n.MaxRetries < 0 || n.MaxRetries > maxRetries {
		errs = append(errs, fmt.Errorf("network.max_retries: must be between 0 and %d, got %d",
			maxRetries, n.MaxRetries))
	}

	return errs
}
