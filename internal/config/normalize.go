package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeInstagram()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTokenStore(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeInstagram() {
	c.Instagram.ClientID = envFallback(c.Instagram.ClientID, "INSTAGRAM_CLIENT_ID")
	c.Instagram.ClientSecret = envFallback(c.Instagram.ClientSecret, "INSTAGRAM_CLIENT_SECRET")
	c.Instagram.RedirectURI = envFallback(c.Instagram.RedirectURI, "INSTAGRAM_REDIRECT_URI")

	c.Instagram.OAuthBaseURL = strings.TrimRight(strings.TrimSpace(c.Instagram.OAuthBaseURL), "/")
	if c.Instagram.OAuthBaseURL == "" {
		c.Instagram.OAuthBaseURL = defaultOAuthBaseURL
	}
	c.Instagram.GraphBaseURL = strings.TrimRight(strings.TrimSpace(c.Instagram.GraphBaseURL), "/")
	if c.Instagram.GraphBaseURL == "" {
		c.Instagram.GraphBaseURL = defaultGraphBaseURL
	}
	if c.Instagram.RequestTimeout <= 0 {
		c.Instagram.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTokenStore() error {
	c.TokenStore.Backend = strings.ToLower(strings.TrimSpace(c.TokenStore.Backend))
	if c.TokenStore.Backend == "" {
		c.TokenStore.Backend = defaultTokenStoreBackend
	}

	c.TokenStore.DSN = envFallback(c.TokenStore.DSN, defaultPostgresDSNEnvName)

	c.TokenStore.Path = strings.TrimSpace(c.TokenStore.Path)
	if c.TokenStore.Path == "" {
		switch c.TokenStore.Backend {
		case BackendSQLite:
			c.TokenStore.Path = filepath.Join(c.Paths.StateDir, defaultSQLiteFileName)
		case BackendFile:
			c.TokenStore.Path = filepath.Join(c.Paths.StateDir, defaultJSONStoreFileName)
		}
	}
	if c.TokenStore.Path != "" {
		var err error
		if c.TokenStore.Path, err = expandPath(c.TokenStore.Path); err != nil {
			return fmt.Errorf("token_store.path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	c.Metrics.Textfile = strings.TrimSpace(c.Metrics.Textfile)
	if c.Metrics.Textfile == "" {
		return nil
	}
	var err error
	if c.Metrics.Textfile, err = expandPath(c.Metrics.Textfile); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Dir = strings.TrimSpace(c.Logging.Dir)
	if c.Logging.Dir != "" {
		var err error
		if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}

func envFallback(value, envName string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(envName); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
