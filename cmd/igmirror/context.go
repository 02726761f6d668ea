package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"igmirror/internal/config"
	"igmirror/internal/kvstore"
	"igmirror/internal/logging"
	"igmirror/internal/metrics"
	"igmirror/internal/services"
	"igmirror/internal/services/instagram"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = level
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = format
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// session bundles the per-command dependencies.
type session struct {
	cfg        *config.Config
	baseLogger *slog.Logger
	logger     *slog.Logger
	metrics    *metrics.Metrics
	httpClient *http.Client
	store      kvstore.Store
	auth       *instagram.AuthController
}

// withSession opens the token store and builds the auth controller for the
// duration of fn. Metrics are exported afterwards even when fn fails.
func (c *commandContext) withSession(cmd *cobra.Command, operation string, fn func(context.Context, *session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	baseLogger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger := logging.NewComponentLogger(baseLogger, "cli").With(logging.String("operation", operation))

	ctx := services.WithOperation(cmd.Context(), operation)
	ctx = services.WithRequestID(ctx, uuid.NewString())

	store, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logging.WarnWithContext(ctx, logger, "token store close failed", "token_store_close_failed", logging.Error(closeErr))
		}
	}()

	m := metrics.New()
	client := &http.Client{Timeout: cfg.RequestTimeout()}
	s := &session{
		cfg:        cfg,
		baseLogger: baseLogger,
		logger:     logger,
		metrics:    m,
		httpClient: client,
		store:      store,
		auth: instagram.NewAuthController(credentialsFrom(cfg), store,
			instagram.WithHTTPClient(client),
			instagram.WithOAuthBaseURL(cfg.Instagram.OAuthBaseURL),
			instagram.WithGraphBaseURL(cfg.Instagram.GraphBaseURL),
			instagram.WithLogger(baseLogger),
			instagram.WithMetrics(m),
		),
	}

	runErr := fn(ctx, s)
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logging.WarnWithContext(ctx, logger, "metrics export failed", "metrics_export_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "textfile collector shows stale values"),
		)
	}
	return runErr
}

func (s *session) mediaRetriever(token string) *instagram.MediaRetriever {
	return instagram.NewMediaRetriever(token, s.cfg.Paths.CacheDir,
		instagram.WithHTTPClient(s.httpClient),
		instagram.WithGraphBaseURL(s.cfg.Instagram.GraphBaseURL),
		instagram.WithLogger(s.baseLogger),
		instagram.WithMetrics(s.metrics),
		instagram.WithDownloadRate(s.cfg.Media.DownloadsPerSecond),
		instagram.WithCacheLocking(s.cfg.Media.LockCache),
	)
}

func credentialsFrom(cfg *config.Config) instagram.Credentials {
	return instagram.Credentials{
		ClientID:     cfg.Instagram.ClientID,
		ClientSecret: cfg.Instagram.ClientSecret,
		RedirectURI:  cfg.Instagram.RedirectURI,
	}
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
