package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Client credentials are not
// required here because commands such as `media fetch` only need a stored
// token; use RequireCredentials before starting the OAuth exchange.
func (c *Config) Validate() error {
	if err := c.validateInstagram(); err != nil {
		return err
	}
	if err := c.validateTokenStore(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	return c.validateLogging()
}

// RequireCredentials returns an error naming the first missing OAuth credential.
func (c *Config) RequireCredentials() error {
	missing := make([]string, 0, 3)
	if c.Instagram.ClientID == "" {
		missing = append(missing, "instagram.client_id")
	}
	if c.Instagram.ClientSecret == "" {
		missing = append(missing, "instagram.client_secret")
	}
	if c.Instagram.RedirectURI == "" {
		missing = append(missing, "instagram.redirect_uri")
	}
	if len(missing) == 0 {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("%s required. Set INSTAGRAM_CLIENT_ID/INSTAGRAM_CLIENT_SECRET/INSTAGRAM_REDIRECT_URI or edit %s (create with 'igmirror config init')",
		strings.Join(missing, ", "), defaultPath)
}

func (c *Config) validateInstagram() error {
	for name, raw := range map[string]string{
		"instagram.oauth_base_url": c.Instagram.OAuthBaseURL,
		"instagram.graph_base_url": c.Instagram.GraphBaseURL,
	} {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must be an http(s) url, got %q", name, raw)
		}
	}
	return nil
}

func (c *Config) validateTokenStore() error {
	switch c.TokenStore.Backend {
	case BackendSQLite, BackendFile:
		if c.TokenStore.Path == "" {
			return fmt.Errorf("token_store.path must be set for the %s backend", c.TokenStore.Backend)
		}
	case BackendPostgres:
		if c.TokenStore.DSN == "" {
			return fmt.Errorf("token_store.dsn must be set for the postgres backend (or export %s)", defaultPostgresDSNEnvName)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("token_store.backend: unsupported value %q", c.TokenStore.Backend)
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.DefaultCount < 1 {
		return errors.New("media.default_count must be at least 1")
	}
	if c.Media.DownloadsPerSecond < 0 {
		return errors.New("media.downloads_per_second must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
