package mediacache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"igmirror/internal/logging"
)

const (
	lockFileName  = ".igmirror.lock"
	tempSuffix    = ".part"
	lockRetryWait = 50 * time.Millisecond
)

// FetchFunc streams the content of a missing entry into w.
type FetchFunc func(ctx context.Context, w io.Writer) error

// Result describes the outcome of Ensure.
type Result struct {
	Path       string
	Downloaded bool
	Bytes      int64
}

// Stats summarizes the cache contents.
type Stats struct {
	Files int
	Bytes int64
}

// Cache is a directory of media files.
type Cache struct {
	dir    string
	lock   *flock.Flock
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithoutLocking disables the cross-process lock.
func WithoutLocking() Option {
	return func(c *Cache) {
		c.lock = nil
	}
}

// New prepares a cache rooted at dir, creating it when missing.
func New(dir string, opts ...Option) (*Cache, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("mediacache: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mediacache: ensure directory: %w", err)
	}
	c := &Cache{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, lockFileName)),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the absolute location of name inside the cache.
func (c *Cache) Path(name string) string {
	return filepath.Join(c.dir, SanitizeName(name))
}

// Exists reports whether name is already cached.
func (c *Cache) Exists(name string) (bool, error) {
	info, err := os.Stat(c.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("mediacache: stat %s: %w", name, err)
	}
	return info.Mode().IsRegular(), nil
}

// Ensure returns the path of name, calling fetch to populate it when the file
// is not cached yet.
func (c *Cache) Ensure(ctx context.Context, name string, fetch FetchFunc) (Result, error) {
	name = SanitizeName(name)
	if name == "" {
		return Result{}, errors.New("mediacache: entry name is empty")
	}
	if fetch == nil {
		return Result{}, errors.New("mediacache: fetch function is nil")
	}

	unlock, err := c.acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	target := filepath.Join(c.dir, name)
	exists, err := c.Exists(name)
	if err != nil {
		return Result{}, err
	}
	if exists {
		c.logger.DebugContext(ctx, "media already cached", logging.String("path", target))
		return Result{Path: target}, nil
	}

	written, err := c.writeAtomic(ctx, name, fetch)
	if err != nil {
		return Result{}, err
	}
	c.logger.DebugContext(ctx, "media cached",
		logging.String("path", target),
		logging.Int64("bytes", written),
	)
	return Result{Path: target, Downloaded: true, Bytes: written}, nil
}

// Stats counts cached files, ignoring temp and lock files.
func (c *Cache) Stats() (Stats, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return Stats{}, fmt.Errorf("mediacache: read directory: %w", err)
	}
	var stats Stats
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Files++
		stats.Bytes += info.Size()
	}
	return stats, nil
}

// SanitizeName reduces name to a single path element.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "").Replace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

func (c *Cache) acquire(ctx context.Context) (func(), error) {
	if c.lock == nil {
		return func() {}, nil
	}
	ok, err := c.lock.TryLockContext(ctx, lockRetryWait)
	if err != nil {
		return nil, fmt.Errorf("mediacache: acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("mediacache: cache is locked by another process")
	}
	return func() {
		if err := c.lock.Unlock(); err != nil {
			c.logger.Warn("failed to release cache lock", logging.Error(err))
		}
	}, nil
}

func (c *Cache) writeAtomic(ctx context.Context, name string, fetch FetchFunc) (int64, error) {
	tmp := filepath.Join(c.dir, "."+name+"."+uuid.NewString()+tempSuffix)
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("mediacache: create temp file: %w", err)
	}

	counter := &countingWriter{w: file}
	fetchErr := fetch(ctx, counter)
	closeErr := file.Close()
	if fetchErr != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("mediacache: fetch %s: %w", name, fetchErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("mediacache: close temp file: %w", closeErr)
	}
	if err := os.Rename(tmp, filepath.Join(c.dir, name)); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("mediacache: rename %s: %w", name, err)
	}
	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
