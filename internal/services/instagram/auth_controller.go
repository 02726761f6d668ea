package instagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"igmirror/internal/kvstore"
	"igmirror/internal/logging"
	"igmirror/internal/metrics"
	"igmirror/internal/services"
)

// Store keys for the token record.
const (
	TokenKey        = "instagram_access_token"
	TokenUpdatedKey = "instagram_token_updated"
)

// RefreshAfterDays is the token age, in whole days, that triggers a refresh.
const RefreshAfterDays = 60

var authScopes = []string{"user_profile,user_media"}

// Credentials identify the registered Instagram app.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Missing lists the names of empty credential fields.
func (c Credentials) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		missing = append(missing, "redirect_uri")
	}
	return missing
}

// AuthController obtains, persists and refreshes the long-lived access token.
type AuthController struct {
	creds      Credentials
	store      kvstore.Store
	oauth      *oauth2.Config
	httpClient *http.Client
	graph      *GraphClient
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu    sync.Mutex
	token string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// NewAuthController builds a controller backed by store. A nil store keeps
// tokens in memory only.
func NewAuthController(creds Credentials, store kvstore.Store, opts ...Option) *AuthController {
	o := applyOptions(opts)
	if store == nil {
		store = kvstore.NewMemoryStore()
	}
	logger := logging.NewComponentLogger(o.logger, "instagram-auth")
	return &AuthController{
		creds: creds,
		store: store,
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       authScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   o.oauthBaseURL + "/oauth/authorize",
				TokenURL:  o.oauthBaseURL + "/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: o.httpClient,
		graph:      NewGraphClient(o.graphBaseURL, o.httpClient, logger, o.metrics),
		now:        o.now,
		logger:     logger,
		metrics:    o.metrics,
	}
}

// AuthorizationURL returns the page the account owner visits to grant access.
func (c *AuthController) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Authenticate exchanges an authorization code for a long-lived token and
// persists it. Nothing is stored unless both exchange steps succeed.
func (c *AuthController) Authenticate(ctx context.Context, code string) (err error) {
	defer func() {
		c.metrics.RecordTokenOperation("authenticate", err)
	}()

	if missing := c.creds.Missing(); len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "instagram", "authenticate",
			"missing credentials: "+strings.Join(missing, ", "), nil)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return services.Wrap(services.ErrValidation, "instagram", "authenticate", "authorization code is empty", nil)
	}

	shortLived, err := c.exchangeCode(ctx, code)
	if err != nil {
		return err
	}

	var long tokenResponse
	params := url.Values{
		"grant_type":    {"ig_exchange_token"},
		"client_secret": {c.creds.ClientSecret},
		"access_token":  {shortLived},
	}
	if err := c.graph.GetJSON(ctx, "access_token", params, &long); err != nil {
		return fmt.Errorf("exchange for long-lived token: %w", err)
	}
	if strings.TrimSpace(long.AccessToken) == "" {
		return fmt.Errorf("exchange for long-lived token: %w", ErrMissingAccessToken)
	}

	if err := c.persist(ctx, long.AccessToken); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "instagram account linked",
		logging.String(logging.FieldEventType, "token_authenticated"),
		logging.String("token", logging.MaskToken(long.AccessToken)),
		logging.Duration("expires_in", time.Duration(long.ExpiresIn)*time.Second),
	)
	return nil
}

// exchangeCode performs the form POST that yields the short-lived token.
func (c *AuthController) exchangeCode(ctx context.Context, code string) (string, error) {
	start := time.Now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauth.Exchange(ctx, code)
	c.metrics.ObserveAPIRequest("oauth/access_token", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", translateOAuthError(err))
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return "", fmt.Errorf("exchange authorization code: %w", ErrMissingAccessToken)
	}
	if userID := token.Extra("user_id"); userID != nil {
		c.logger.DebugContext(ctx, "short-lived token issued", logging.Any("user_id", userID))
	}
	return token.AccessToken, nil
}

// AccessToken returns the current token, loading it from the store when it is
// not held in memory. It returns "" and a nil error when no token exists.
func (c *AuthController) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	value, ok, err := c.store.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("load access token: %w", err)
	}
	if !ok || value == "" {
		return "", nil
	}
	c.token = value
	return c.token, nil
}

// LastRefreshed returns when the stored token was issued or last refreshed.
func (c *AuthController) LastRefreshed(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := c.store.Get(ctx, TokenUpdatedKey)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load token timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return time.Time{}, false, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse token timestamp %q: %w", raw, err)
	}
	return time.Unix(secs, 0), true, nil
}

// NeedsTokenRefresh reports whether no timestamp is recorded or the token is
// at least RefreshAfterDays whole days old.
func (c *AuthController) NeedsTokenRefresh(ctx context.Context) bool {
	last, ok, err := c.LastRefreshed(ctx)
	if err != nil {
		logging.WarnWithContext(ctx, c.logger, "token timestamp unreadable; treating token as stale", "token_timestamp_invalid",
			logging.Error(err),
			logging.String(logging.FieldImpact, "token will be refreshed"),
		)
		return true
	}
	if !ok {
		return true
	}
	age := c.now().Sub(last)
	c.metrics.SetTokenAge(age)
	return int64(age/(24*time.Hour)) >= RefreshAfterDays
}

// RefreshToken trades the current long-lived token for a new one.
func (c *AuthController) RefreshToken(ctx context.Context) (err error) {
	defer func() {
		c.metrics.RecordTokenOperation("refresh", err)
	}()

	current, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		return ErrNotAuthenticated
	}

	var refreshed tokenResponse
	params := url.Values{
		"grant_type":   {"ig_refresh_token"},
		"access_token": {current},
	}
	if err := c.graph.GetJSON(ctx, "refresh_access_token", params, &refreshed); err != nil {
		return fmt.Errorf("refresh access token: %w", err)
	}
	if strings.TrimSpace(refreshed.AccessToken) == "" {
		return fmt.Errorf("refresh access token: %w", ErrMissingAccessToken)
	}

	if err := c.persist(ctx, refreshed.AccessToken); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "instagram token refreshed",
		logging.String(logging.FieldEventType, "token_refreshed"),
		logging.String("token", logging.MaskToken(refreshed.AccessToken)),
	)
	return nil
}

// Invalidate drops the in-memory token so the next AccessToken call reloads
// it from the store.
func (c *AuthController) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// persist writes the token and its timestamp together. Stores without
// kvstore.Batcher get the previous token written back if the timestamp write
// fails, so a token is never left without its timestamp.
func (c *AuthController) persist(ctx context.Context, token string) error {
	stamp := strconv.FormatInt(c.now().Unix(), 10)
	if batcher, ok := c.store.(kvstore.Batcher); ok {
		err := batcher.SetMany(ctx, map[string]string{TokenKey: token, TokenUpdatedKey: stamp})
		if err != nil {
			return fmt.Errorf("store access token: %w", err)
		}
	} else if err := c.persistSequential(ctx, token, stamp); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.metrics.SetTokenAge(0)
	return nil
}

func (c *AuthController) persistSequential(ctx context.Context, token, stamp string) error {
	previous, _, err := c.store.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("read previous access token: %w", err)
	}
	if err := c.store.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := c.store.Set(ctx, TokenUpdatedKey, stamp); err != nil {
		if restoreErr := c.store.Set(ctx, TokenKey, previous); restoreErr != nil {
			logging.ErrorWithContext(ctx, c.logger, "restore previous token failed", "token_restore_failed",
				logging.Error(restoreErr),
				logging.String(logging.FieldImpact, "stored token has no timestamp and will be refreshed"),
			)
		}
		return fmt.Errorf("store token timestamp: %w", err)
	}
	return nil
}

// translateOAuthError maps oauth2 failures onto this package's error types.
func translateOAuthError(err error) error {
	if retrieveErr, ok := errors.AsType[*oauth2.RetrieveError](err); ok {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		apiErr := decodeAPIError("oauth/access_token", status, retrieveErr.Body)
		if apiErr.Message == "" {
			apiErr.Message = retrieveErr.ErrorDescription
		}
		return apiErr
	}
	if strings.Contains(err.Error(), "missing access_token") {
		return ErrMissingAccessToken
	}
	return services.Wrap(services.ErrTransient, "instagram", "oauth/access_token", "request failed", err)
}
