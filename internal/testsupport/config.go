package testsupport

import (
	"path/filepath"
	"testing"

	"igmirror/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials are filled with fixed test values and the token store uses the
// JSON file backend so tests need no database.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Instagram.ClientID = "test-client"
	cfgVal.Instagram.ClientSecret = "test-secret"
	cfgVal.Instagram.RedirectURI = "https://example.test/callback"
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.TokenStore.Backend = config.BackendFile
	cfgVal.TokenStore.Path = filepath.Join(base, "state", "tokens.json")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIBaseURL points both the OAuth and Graph endpoints at baseURL,
// typically an httptest server.
func WithAPIBaseURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Instagram.OAuthBaseURL = baseURL
		b.cfg.Instagram.GraphBaseURL = baseURL
	}
}

// WithSQLiteStore switches the token store to SQLite under the temp dir.
func WithSQLiteStore() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TokenStore.Backend = config.BackendSQLite
		b.cfg.TokenStore.Path = filepath.Join(b.baseDir, "state", "tokens.db")
	}
}

// WithMetricsTextfile enables the Prometheus textfile export under the temp dir.
func WithMetricsTextfile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Textfile = filepath.Join(b.baseDir, "metrics", "igmirror.prom")
	}
}
