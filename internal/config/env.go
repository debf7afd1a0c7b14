package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "DRIVEGATE_CONFIG"
	EnvClientID     = "DRIVEGATE_CLIENT_ID"
	EnvClientSecret = "DRIVEGATE_CLIENT_SECRET"
	EnvRefreshToken = "DRIVEGATE_REFRESH_TOKEN"
	EnvRootFolderID = "DRIVEGATE_ROOT_FOLDER_ID"
	EnvListen       = "DRIVEGATE_LISTEN"
)

// EnvOverrides holds values derived from environment variables. Secrets are
// usually supplied this way rather than written to the config file.
type EnvOverrides struct {
	ConfigPath   string
	ClientID     string
	ClientSecret string
	RefreshToken string
	RootFolderID string
	Listen       string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the non-empty fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		RefreshToken: os.Getenv(EnvRefreshToken),
		RootFolderID: os.Getenv(EnvRootFolderID),
		Listen:       os.Getenv(EnvListen),
	}
}

// apply copies every non-empty override onto cfg.
func (e EnvOverrides) apply(cfg *Config) {
	setIfNonEmpty(&cfg.Auth.ClientID, e.ClientID)
	setIfNonEmpty(&cfg.Auth.ClientSecret, e.ClientSecret)
	setIfNonEmpty(&cfg.Auth.RefreshToken, e.RefreshToken)
	setIfNonEmpty(&cfg.Drive.RootFolderID, e.RootFolderID)
	setIfNonEmpty(&cfg.Server.Listen, e.Listen)
}

func setIfNonEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
