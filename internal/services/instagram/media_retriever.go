package instagram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"igmirror/internal/logging"
	"igmirror/internal/mediacache"
	"igmirror/internal/metrics"
	"igmirror/internal/services"
)

const mediaFields = "id,media_type,media_url,thumbnail_url"

// MediaRecord describes one media item and where its binary is cached.
type MediaRecord struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Filename  string `json:"filename"`
}

type mediaItem struct {
	ID           string `json:"id"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type mediaListResponse struct {
	Data *[]mediaItem `json:"data"`
}

// MediaRetriever lists recent media and mirrors the binaries into a cache
// directory.
type MediaRetriever struct {
	accessToken string
	cacheDir    string
	graph       *GraphClient
	limiter     *rate.Limiter
	lockCache   bool
	logger      *slog.Logger
	metrics     *metrics.Metrics

	cacheOnce sync.Once
	cache     *mediacache.Cache
	cacheErr  error
}

// NewMediaRetriever builds a retriever that authenticates with accessToken and
// writes into cacheDir.
func NewMediaRetriever(accessToken, cacheDir string, opts ...Option) *MediaRetriever {
	o := applyOptions(opts)
	logger := logging.NewComponentLogger(o.logger, "instagram-media")

	var limiter *rate.Limiter
	if o.downloadsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.downloadsPerSecond), 1)
	}
	return &MediaRetriever{
		accessToken: accessToken,
		cacheDir:    cacheDir,
		graph:       NewGraphClient(o.graphBaseURL, o.httpClient, logger, o.metrics),
		limiter:     limiter,
		lockCache:   o.lockCache,
		logger:      logger,
		metrics:     o.metrics,
	}
}

// GetMedia returns up to count media records, downloading any binary that is
// not cached yet. A response without a data field yields ErrMissingData.
//
// A failed download is logged and counted, and its record is still returned.
// In that case Filename names where the file will be written but nothing
// exists there until a later call downloads it. Items whose id cannot form a
// file name are logged and left out.
func (r *MediaRetriever) GetMedia(ctx context.Context, count int) ([]MediaRecord, error) {
	if count <= 0 {
		return nil, services.Wrap(services.ErrValidation, "instagram", "me/media", strconv.Itoa(count), ErrInvalidCount)
	}
	cache, err := r.mediaCache()
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"fields":       {mediaFields},
		"access_token": {r.accessToken},
		"limit":        {strconv.Itoa(count)},
	}
	var listing mediaListResponse
	if err := r.graph.GetJSON(ctx, "me/media", params, &listing); err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	if listing.Data == nil {
		return nil, ErrMissingData
	}

	items := *listing.Data
	if len(items) > count {
		items = items[:count]
	}

	records := make([]MediaRecord, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := MediaFileName(item.ID, item.MediaURL)
		if name == "" {
			r.metrics.RecordMediaItem(metrics.ResultFailure, 0)
			logging.WarnWithContext(ctx, r.logger, "media item skipped", "media_item_skipped",
				logging.String(logging.FieldMediaID, item.ID),
				logging.String(logging.FieldErrorHint, "the API returned an id that is not a usable file name"),
				logging.String(logging.FieldImpact, "item omitted from the result"),
			)
			continue
		}
		records = append(records, MediaRecord{
			ID:        item.ID,
			Type:      item.MediaType,
			URL:       item.MediaURL,
			Thumbnail: item.ThumbnailURL,
			Filename:  cache.Path(name),
		})
		r.mirror(ctx, cache, name, item)
	}

	r.logger.InfoContext(ctx, "media listing processed",
		logging.String(logging.FieldEventType, "media_fetched"),
		logging.Int("requested", count),
		logging.Int("returned", len(records)),
	)
	return records, nil
}

func (r *MediaRetriever) mirror(ctx context.Context, cache *mediacache.Cache, name string, item mediaItem) {
	res, err := cache.Ensure(ctx, name, func(ctx context.Context, w io.Writer) error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		_, err := r.graph.Download(ctx, item.MediaURL, w)
		return err
	})
	if err != nil {
		r.metrics.RecordMediaItem(metrics.ResultFailure, 0)
		logging.WarnWithContext(ctx, r.logger, "media download failed", "media_download_failed",
			logging.String(logging.FieldMediaID, item.ID),
			logging.String("url", logging.RedactURL(item.MediaURL)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the download is retried on the next fetch"),
			logging.String(logging.FieldImpact, "record returned without a cached file"),
		)
		return
	}
	if res.Downloaded {
		r.metrics.RecordMediaItem(metrics.ResultDownloaded, res.Bytes)
		r.logger.DebugContext(ctx, "media downloaded",
			logging.String(logging.FieldMediaID, item.ID),
			logging.Int64("bytes", res.Bytes),
		)
		return
	}
	r.metrics.RecordMediaItem(metrics.ResultCached, 0)
}

func (r *MediaRetriever) mediaCache() (*mediacache.Cache, error) {
	r.cacheOnce.Do(func() {
		opts := []mediacache.Option{mediacache.WithLogger(r.logger)}
		if !r.lockCache {
			opts = append(opts, mediacache.WithoutLocking())
		}
		r.cache, r.cacheErr = mediacache.New(r.cacheDir, opts...)
	})
	return r.cache, r.cacheErr
}

// MediaFileName returns "<id>.<ext>" where ext is the extension of the media
// URL path, or just "<id>" when the path has none. It returns "" when the id
// is empty after sanitizing.
func MediaFileName(id, mediaURL string) string {
	name := mediacache.SanitizeName(id)
	if name == "" {
		return ""
	}
	ext := ""
	if parsed, err := url.Parse(mediaURL); err == nil {
		ext = strings.TrimPrefix(path.Ext(parsed.Path), ".")
	}
	ext = mediacache.SanitizeName(ext)
	if ext == "" {
		return name
	}
	return name + "." + ext
}
