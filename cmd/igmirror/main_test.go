package main

import (
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"igmirror/internal/services"
	"igmirror/internal/services/instagram"
	"igmirror/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	for _, name := range []string{"INSTAGRAM_CLIENT_ID", "INSTAGRAM_CLIENT_SECRET", "INSTAGRAM_REDIRECT_URI"} {
		t.Setenv(name, "")
	}
	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	requireContains(t, out, "Token store:    sqlite")
	requireContains(t, out, "Next: ")
	requireFile(t, target)

	home, _ := os.UserHomeDir()
	if info, err := os.Stat(filepath.Join(home, ".local", "share", "igmirror")); err != nil || !info.IsDir() {
		t.Fatalf("expected state dir created under HOME: %v", err)
	}

	_, _, err = runCLI(t, []string{"config", "init", target}, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected config init to refuse overwriting without --overwrite, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--overwrite"}, target); err != nil {
		t.Fatalf("config init --overwrite via --config: %v", err)
	}
}

func TestAuthURLIncludesState(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "auth", "url", "--state", "abc123")
	firstLine := strings.SplitN(out, "\n", 2)[0]
	parsed, err := url.Parse(firstLine)
	if err != nil {
		t.Fatalf("parse authorization url %q: %v", firstLine, err)
	}
	if parsed.Path != "/oauth/authorize" {
		t.Fatalf("unexpected path %q", parsed.Path)
	}
	q := parsed.Query()
	if q.Get("state") != "abc123" || q.Get("client_id") != env.cfg.Instagram.ClientID {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestAuthExchangeAndTokenShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "auth", "exchange", "code-xyz#_")
	requireContains(t, out, "Instagram account linked")
	if strings.Contains(out, "IGQVJlong-lived-token-abcd") {
		t.Fatalf("exchange output leaked the token: %q", out)
	}

	out = mustRunCLI(t, env, "token", "show")
	requireContains(t, out, "IGQV********abcd")
	requireContains(t, out, "Needs refresh:  no")

	out = mustRunCLI(t, env, "token", "show", "--reveal")
	requireContains(t, out, "IGQVJlong-lived-token-abcd")
}

func TestAuthExchangeWithSQLiteStore(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSQLiteStore())

	mustRunCLI(t, env, "auth", "exchange", "code-xyz")
	requireFile(t, env.cfg.TokenStore.Path)

	out := mustRunCLI(t, env, "token", "show")
	requireContains(t, out, "Store:          sqlite")
	requireContains(t, out, "IGQV********abcd")
}

func TestTokenRefreshIfNeeded(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "auth", "exchange", "code-xyz")

	out := mustRunCLI(t, env, "token", "refresh", "--if-needed")
	requireContains(t, out, "no refresh needed")
	if hits := env.refreshCount(); hits != 0 {
		t.Fatalf("expected no refresh call, got %d", hits)
	}

	out = mustRunCLI(t, env, "token", "refresh")
	requireContains(t, out, "Token refreshed")
	if hits := env.refreshCount(); hits != 1 {
		t.Fatalf("expected one refresh call, got %d", hits)
	}

	out = mustRunCLI(t, env, "token", "show", "--reveal")
	requireContains(t, out, "IGQVJrefreshed-token-wxyz")
}

func TestMediaFetchWithoutTokenFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"media", "fetch"}, env.configPath)
	if !errors.Is(err, instagram.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if hits := env.mediaCount(); hits != 0 {
		t.Fatalf("expected no media request, got %d", hits)
	}
}

func TestMediaFetchJSONAndTable(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "auth", "exchange", "code-xyz")

	out := mustRunCLI(t, env, "media", "fetch", "--count", "2", "--json")
	var records []instagram.MediaRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode json output: %v (%q)", err, out)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Filename != filepath.Join(env.cfg.Paths.CacheDir, "101.jpg") {
		t.Fatalf("unexpected filename %q", records[0].Filename)
	}
	for _, rec := range records {
		requireFile(t, rec.Filename)
	}
	if got := string(testsupport.ReadFile(t, records[1].Filename)); got != "bytes for /cdn/102.png" {
		t.Fatalf("unexpected cached content %q", got)
	}

	out = mustRunCLI(t, env, "media", "fetch", "--count", "3")
	requireContains(t, out, "Carousel Album")
	requireContains(t, out, "103.mp4")
	requireContains(t, out, "3 of 3 items cached")

	metricsOut := string(testsupport.ReadFile(t, env.cfg.Metrics.Textfile))
	requireContains(t, metricsOut, `igmirror_media_items_total{result="cached"} 2`)
	requireContains(t, metricsOut, `igmirror_media_items_total{result="downloaded"} 1`)
}

func TestStatusReportsTokenAndChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "status")
	requireContains(t, out, "No token linked")

	mustRunCLI(t, env, "auth", "exchange", "code-xyz")
	out = mustRunCLI(t, env, "status")
	requireContains(t, out, "Token refreshed 0 days ago")
	requireContains(t, out, "Reachable (@mirror_test)")
	requireContains(t, out, "Cache directory")
	requireContains(t, out, "Media cache")
}

func TestDisplayHelpers(t *testing.T) {
	cases := map[string]string{
		"IMAGE":          "Image",
		"CAROUSEL_ALBUM": "Carousel Album",
		"":               "-",
	}
	for in, want := range cases {
		if got := displayMediaType(in); got != want {
			t.Errorf("displayMediaType(%q) = %q, want %q", in, got, want)
		}
	}
	if got := formatBytes(512); got != "512 B" {
		t.Errorf("formatBytes(512) = %q", got)
	}
	if got := formatBytes(1536); got != "1.5 KiB" {
		t.Errorf("formatBytes(1536) = %q", got)
	}
	if got := normalizeCode(" abc#_ "); got != "abc" {
		t.Errorf("normalizeCode = %q", got)
	}
}
