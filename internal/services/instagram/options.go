package instagram

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"igmirror/internal/logging"
	"igmirror/internal/metrics"
)

// Option customises AuthController and MediaRetriever construction.
type Option func(*options)

type options struct {
	httpClient         *http.Client
	oauthBaseURL       string
	graphBaseURL       string
	now                func() time.Time
	logger             *slog.Logger
	metrics            *metrics.Metrics
	downloadsPerSecond float64
	lockCache          bool
}

func defaultOptions() options {
	return options{
		oauthBaseURL: DefaultOAuthBaseURL,
		graphBaseURL: DefaultGraphBaseURL,
		now:          time.Now,
		logger:       logging.NewNop(),
		lockCache:    true,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return o
}

// WithHTTPClient overrides the HTTP client used for every request.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithOAuthBaseURL overrides the OAuth host (used in tests).
func WithOAuthBaseURL(baseURL string) Option {
	return func(o *options) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			o.oauthBaseURL = trimmed
		}
	}
}

// WithGraphBaseURL overrides the Graph host (used in tests).
func WithGraphBaseURL(baseURL string) Option {
	return func(o *options) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			o.graphBaseURL = trimmed
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records request and token metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDownloadRate caps media downloads per second. Zero means unlimited.
func WithDownloadRate(perSecond float64) Option {
	return func(o *options) {
		o.downloadsPerSecond = perSecond
	}
}

// WithCacheLocking toggles the cross-process cache lock.
func WithCacheLocking(enabled bool) Option {
	return func(o *options) {
		o.lockCache = enabled
	}
}
