package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"igmirror/internal/config"
)

const probeTimeout = 10 * time.Second

// CheckCredentials verifies that the OAuth client credentials are configured.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Instagram credentials"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if err := cfg.RequireCredentials(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("client %s", cfg.Instagram.ClientID)}
}

// CheckGraphToken verifies that the Graph API accepts the access token by
// requesting the account id and username.
func CheckGraphToken(ctx context.Context, client *http.Client, baseURL, token string) Result {
	const name = "Instagram Graph API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing graph_base_url"}
	}
	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "no access token (run igmirror auth exchange)"}
	}
	if client == nil {
		client = &http.Client{Timeout: probeTimeout}
	}

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	query := url.Values{"fields": {"id,username"}, "access_token": {token}}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/me?"+query.Encode(), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("token check failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	switch {
	case resp.StatusCode == http.StatusOK:
		var me struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		}
		if err := json.Unmarshal(body, &me); err != nil || me.ID == "" {
			return Result{Name: name, Detail: "unexpected response from /me"}
		}
		if me.Username != "" {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (@%s)", me.Username)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (id %s)", me.ID)}
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "token rejected (re-link the account)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("token check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeError produces a human-readable summary for probe failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "token check timed out (Graph API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "token check timed out (Graph API unreachable)"
	}
	// url.Error repeats the request URL, which carries the token.
	if urlErr, ok := errors.AsType[*url.Error](err); ok {
		err = urlErr.Err
	}
	return fmt.Sprintf("token check failed (%v)", err)
}
