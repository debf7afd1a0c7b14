package main

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tonimelisma/drivegate/internal/config"
	"github.com/tonimelisma/drivegate/internal/gdrive"
	"github.com/tonimelisma/drivegate/internal/metrics"
)

// metadataTimeout bounds a whole metadata request. Media streams have no
// overall limit; they are bounded by the caller's context instead.
const metadataTimeout = 30 * time.Second

// session holds the authenticated Drive clients built from one config
// snapshot. API serves metadata calls; Media streams file content.
type session struct {
	API    *gdrive.Client
	Media  *gdrive.Client
	Tokens *gdrive.TokenCache
}

// newSession wires the token cache and both clients. m may be nil.
func newSession(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *session {
	transport := newTransport(&cfg.Network)

	tokens := gdrive.NewTokenCache(gdrive.TokenConfig{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		RefreshToken: cfg.Auth.RefreshToken,
		TokenURL:     cfg.Auth.TokenURL,
	}, &http.Client{Transport: transport, Timeout: metadataTimeout}, logger)
	tokens.OnRefresh = m.RecordTokenRefresh

	api := gdrive.NewClient(cfg.Drive.APIURL,
		&http.Client{Transport: transport, Timeout: metadataTimeout},
		tokens, logger, cfg.Network.UserAgent)
	api.SetMaxRetries(cfg.Network.MaxRetries)

	media := gdrive.NewClient(cfg.Drive.APIURL,
		&http.Client{Transport: transport},
		tokens, logger, cfg.Network.UserAgent)

	return &session{API: api, Media: media, Tokens: tokens}
}

// newTransport applies the connect and response-header timeouts to a clone
// of the default transport.
func newTransport(n *config.NetworkConfig) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()

	t.DialContext = (&net.Dialer{
		Timeout:   n.ConnectTimeoutDuration(),
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.TLSHandshakeTimeout = n.ConnectTimeoutDuration()
	t.ResponseHeaderTimeout = n.DataTimeoutDuration()

	return t
}
