package config

const (
	defaultConfigPath         = "~/.config/igmirror/config.toml"
	defaultStateDir           = "~/.local/share/igmirror"
	defaultOAuthBaseURL       = "https://api.instagram.com"
	defaultGraphBaseURL       = "https://graph.instagram.com"
	defaultRequestTimeout     = 30
	defaultTokenStoreBackend  = BackendSQLite
	defaultSQLiteFileName     = "tokens.db"
	defaultJSONStoreFileName  = "tokens.json"
	defaultMediaCount         = 10
	defaultLockCache          = true
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultPostgresDSNEnvName = "IGMIRROR_POSTGRES_DSN"
)

// Token store backends understood by kvstore.Open.
const (
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Instagram: Instagram{
			OAuthBaseURL:   defaultOAuthBaseURL,
			GraphBaseURL:   defaultGraphBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Paths: Paths{
			CacheDir: defaultCacheDir(),
			StateDir: defaultStateDir,
		},
		TokenStore: TokenStore{
			Backend: defaultTokenStoreBackend,
		},
		Media: Media{
			DefaultCount: defaultMediaCount,
			LockCache:    defaultLockCache,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
