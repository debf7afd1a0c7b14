package gdrive

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// expirySafetyMargin is subtracted from the reported token lifetime so a
// token is never presented in its final minute.
const expirySafetyMargin = 60 * time.Second

// defaultTokenLifetime applies when the token endpoint omits expires_in.
const defaultTokenLifetime = time.Hour

// DriveScope is the scope the refresh token must carry for copy to work.
const DriveScope = "https://www.googleapis.com/auth/drive"

// TokenConfig holds the OAuth client and the long-lived refresh token.
// TokenURL defaults to Google's token endpoint.
type TokenConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// Credential is a bearer token and the instant after which it is not reused.
type Credential struct {
	AccessToken string
	Expiry      time.Time
}

// validAt reports whether the credential can still be used at t.
func (c *Credential) validAt(t time.Time) bool {
	return c != nil && c.AccessToken != "" && t.Before(c.Expiry)
}

// TokenCache hands out access tokens obtained by a refresh-token exchange
// and reuses them until shortly before they expire.
//
// There is no lock. Concurrent callers that all see an expired credential
// each refresh; every result is independently valid and the last store wins.
type TokenCache struct {
	oauth        *oauth2.Config
	refreshToken string
	httpClient   *http.Client
	logger       *slog.Logger
	cached       atomic.Pointer[Credential]

	// nowFunc returns the current time. Tests override it.
	nowFunc func() time.Time

	// OnRefresh, if set, is called after every refresh attempt with its error.
	OnRefresh func(err error)
}

// NewTokenCache creates an empty cache. The first Token call refreshes.
func NewTokenCache(cfg TokenConfig, httpClient *http.Client, logger *slog.Logger) *TokenCache {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &TokenCache{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{DriveScope},
		},
		refreshToken: cfg.RefreshToken,
		httpClient:   httpClient,
		logger:       logger,
		nowFunc:      time.Now,
	}
}

// Token returns a valid access token, refreshing it if needed.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	cred, err := c.Credential(ctx)
	if err != nil {
		return "", err
	}

	return cred.AccessToken, nil
}

// Credential returns the cached credential while it is still valid and
// otherwise performs exactly one refresh-token exchange.
func (c *TokenCache) Credential(ctx context.Context) (Credential, error) {
	if cur := c.cached.Load(); cur.validAt(c.nowFunc()) {
		return *cur, nil
	}

	cred, err := c.refresh(ctx)
	if c.OnRefresh != nil {
		c.OnRefresh(err)
	}

	if err != nil {
		c.logger.Warn("token refresh failed", slog.String("error", err.Error()))
		return Credential{}, err
	}

	c.cached.Store(cred)

	c.logger.Debug("token refreshed", slog.Time("expiry", cred.Expiry))

	return *cred, nil
}

// refresh exchanges the refresh token for a new access token. The token
// passed to the oauth2 source has no access token, so the source always hits
// the endpoint once.
func (c *TokenCache) refresh(ctx context.Context) (*Credential, error) {
	if c.refreshToken == "" {
		return nil, &AuthError{Err: errors.New("no refresh token configured")}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	issued := c.nowFunc()

	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: c.refreshToken}).Token()
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	if tok.AccessToken == "" {
		return nil, &AuthError{Err: errors.New("token response has no access_token")}
	}

	return &Credential{
		AccessToken: tok.AccessToken,
		Expiry:      issued.Add(tokenLifetime(tok, issued) - expirySafetyMargin),
	}, nil
}

// tokenLifetime prefers the wire expires_in value and falls back to the
// absolute expiry, measured from issued.
func tokenLifetime(tok *oauth2.Token, issued time.Time) time.Duration {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second
	}

	if !tok.Expiry.IsZero() {
		return tok.Expiry.Sub(issued)
	}

	return defaultTokenLifetime
}
