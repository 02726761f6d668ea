package kvstore

import (
	"context"
	"fmt"

	"igmirror/internal/config"
)

// Store persists named string values. Get reports ok=false for names that were
// never set. Implementations own their durability and locking semantics.
type Store interface {
	Get(ctx context.Context, name string) (value string, ok bool, err error)
	Set(ctx context.Context, name, value string) error
}

// Batcher is implemented by stores that can write several values in one
// atomic step. Either every value lands or none does.
type Batcher interface {
	SetMany(ctx context.Context, values map[string]string) error
}

// CloseableStore is a Store holding resources that must be released.
type CloseableStore interface {
	Store
	Close() error
}

// Open builds the store selected by cfg.TokenStore.
func Open(ctx context.Context, cfg *config.Config) (CloseableStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("open token store: config is nil")
	}
	switch cfg.TokenStore.Backend {
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.TokenStore.Path)
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.TokenStore.DSN)
	case config.BackendFile:
		return NewFileStore(cfg.TokenStore.Path), nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("open token store: unsupported backend %q", cfg.TokenStore.Backend)
	}
}
