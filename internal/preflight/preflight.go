package preflight

import (
	"context"
	"net/http"

	"igmirror/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the preflight checks for the given config. The Graph probe
// only runs when token is non-empty.
func RunAll(ctx context.Context, cfg *config.Config, client *http.Client, token string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCredentials(cfg),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
	}

	// The state directory only matters for on-disk token stores.
	switch cfg.TokenStore.Backend {
	case config.BackendSQLite, config.BackendFile:
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}

	if token != "" {
		results = append(results, CheckGraphToken(ctx, client, cfg.Instagram.GraphBaseURL, token))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
