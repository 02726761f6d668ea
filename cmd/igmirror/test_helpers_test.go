package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"igmirror/internal/config"
	"igmirror/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server

	mu          sync.Mutex
	refreshHits int
	mediaHits   int
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(homeDir, ".cache"))

	env := &cliTestEnv{}
	env.server = httptest.NewServer(http.HandlerFunc(env.handle))
	t.Cleanup(env.server.Close)

	opts = append([]testsupport.ConfigOption{
		testsupport.WithAPIBaseURL(env.server.URL),
		testsupport.WithMetricsTextfile(),
	}, opts...)
	env.cfg = testsupport.NewConfig(t, opts...)
	env.configPath = filepath.Join(homeDir, ".config", "igmirror", "config.toml")
	writeTestConfig(t, env.configPath, env.cfg)
	return env
}

func (e *cliTestEnv) handle(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch r.URL.Path {
	case "/oauth/access_token":
		writeTestJSON(w, `{"access_token":"short-lived","user_id":42}`)
	case "/access_token":
		writeTestJSON(w, `{"access_token":"IGQVJlong-lived-token-abcd","token_type":"bearer","expires_in":5183944}`)
	case "/refresh_access_token":
		e.refreshHits++
		writeTestJSON(w, `{"access_token":"IGQVJrefreshed-token-wxyz","token_type":"bearer","expires_in":5183944}`)
	case "/me":
		writeTestJSON(w, `{"id":"42","username":"mirror_test"}`)
	case "/me/media":
		e.mediaHits++
		writeTestJSON(w, fmt.Sprintf(`{"data":[
			{"id":"101","media_type":"IMAGE","media_url":"%[1]s/cdn/101.jpg","thumbnail_url":""},
			{"id":"102","media_type":"CAROUSEL_ALBUM","media_url":"%[1]s/cdn/102.png","thumbnail_url":""},
			{"id":"103","media_type":"VIDEO","media_url":"%[1]s/cdn/103.mp4","thumbnail_url":"%[1]s/cdn/103-thumb.jpg"}
		]}`, e.server.URL))
	default:
		if strings.HasPrefix(r.URL.Path, "/cdn/") {
			_, _ = w.Write([]byte("bytes for " + r.URL.Path))
			return
		}
		http.NotFound(w, r)
	}
}

func (e *cliTestEnv) refreshCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshHits
}

func (e *cliTestEnv) mediaCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mediaHits
}

func writeTestJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	testsupport.WriteFile(t, path, data)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("igmirror %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s: %v", path, err)
	}
}
