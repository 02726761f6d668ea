package instagram_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// fakeAPI serves the OAuth, Graph and media hosts from one httptest server.
type fakeAPI struct {
	t      *testing.T
	server *httptest.Server

	mu             sync.Mutex
	hits           map[string]int
	codeForm       url.Values
	exchangeQuery  url.Values
	refreshQuery   url.Values
	mediaQuery     url.Values
	shortResponse  string
	longResponse   string
	refreshBody    string
	refreshStatus  int
	mediaBody      string
	mediaStatus    int
	binaryStatus   int
	binaryRequests []string
	override       http.HandlerFunc
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{
		t:             t,
		hits:          make(map[string]int),
		shortResponse: `{"access_token":"short-token","user_id":17841400000}`,
		longResponse:  `{"access_token":"long-lived-token-0001","token_type":"bearer","expires_in":5183944}`,
		refreshBody:   `{"access_token":"refreshed-token-0002","token_type":"bearer","expires_in":5183944}`,
		refreshStatus: http.StatusOK,
		mediaStatus:   http.StatusOK,
		binaryStatus:  http.StatusOK,
	}
	api.server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) URL() string {
	return a.server.URL
}

func (a *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hits[r.URL.Path]++
	if a.override != nil {
		a.override(w, r)
		return
	}

	switch r.URL.Path {
	case "/oauth/access_token":
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.codeForm = r.PostForm
		writeJSON(w, http.StatusOK, a.shortResponse)
	case "/access_token":
		a.exchangeQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, a.longResponse)
	case "/refresh_access_token":
		a.refreshQuery = r.URL.Query()
		writeJSON(w, a.refreshStatus, a.refreshBody)
	case "/me/media":
		a.mediaQuery = r.URL.Query()
		writeJSON(w, a.mediaStatus, a.mediaBody)
	default:
		a.binaryRequests = append(a.binaryRequests, r.URL.Path)
		if a.binaryStatus != http.StatusOK {
			http.Error(w, "unavailable", a.binaryStatus)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("binary:" + r.URL.Path))
	}
}

func (a *fakeAPI) Hits(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[path]
}

func (a *fakeAPI) BinaryRequests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.binaryRequests...)
}

func (a *fakeAPI) set(fn func(*fakeAPI)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a)
}

// Client routes every request, whatever its host, to the fake server.
func (a *fakeAPI) Client() *http.Client {
	target, err := url.Parse(a.server.URL)
	if err != nil {
		a.t.Fatalf("parse server url: %v", err)
	}
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: rewriteTransport{
			target: target,
			base:   a.server.Client().Transport,
		},
	}
}

type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = rt.target.Scheme
	clone.URL.Host = rt.target.Host
	clone.Host = rt.target.Host
	return rt.base.RoundTrip(clone)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
