package instagram_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igmirror/internal/metrics"
	"igmirror/internal/services/instagram"
)

func mediaListing(n int) string {
	items := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, fmt.Sprintf(
			`{"id":"%d","media_type":"IMAGE","media_url":"https://cdn.test/media/%d.jpg?stp=dst","thumbnail_url":"https://cdn.test/thumb/%d.jpg"}`,
			i, i, i))
	}
	return `{"data":[` + strings.Join(items, ",") + `],"paging":{}}`
}

func newRetriever(api *fakeAPI, cacheDir string, extra ...instagram.Option) *instagram.MediaRetriever {
	opts := []instagram.Option{
		instagram.WithHTTPClient(api.Client()),
		instagram.WithGraphBaseURL(api.URL()),
	}
	return instagram.NewMediaRetriever("long-lived-token", cacheDir, append(opts, extra...)...)
}

func TestGetMediaTruncatesAndCaches(t *testing.T) {
	api := newFakeAPI(t)
	api.set(func(a *fakeAPI) { a.mediaBody = mediaListing(5) })
	cacheDir := t.TempDir()
	m := metrics.New()
	retriever := newRetriever(api, cacheDir, instagram.WithMetrics(m))
	ctx := context.Background()

	records, err := retriever.GetMedia(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		id := fmt.Sprint(i + 1)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, "IMAGE", rec.Type)
		assert.Equal(t, filepath.Join(cacheDir, id+".jpg"), rec.Filename)
		assert.Equal(t, "https://cdn.test/thumb/"+id+".jpg", rec.Thumbnail)

		data, err := os.ReadFile(rec.Filename)
		require.NoError(t, err)
		assert.Equal(t, "binary:/media/"+id+".jpg", string(data))
	}
	assert.Len(t, api.BinaryRequests(), 3)

	api.set(func(a *fakeAPI) {
		assert.Equal(t, "id,media_type,media_url,thumbnail_url", a.mediaQuery.Get("fields"))
		assert.Equal(t, "long-lived-token", a.mediaQuery.Get("access_token"))
		assert.Equal(t, "3", a.mediaQuery.Get("limit"))
	})

	again, err := retriever.GetMedia(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, records, again)
	assert.Len(t, api.BinaryRequests(), 3, "second call must not download anything")

	assertMediaItems(t, m, `
igmirror_media_items_total{result="cached"} 3
igmirror_media_items_total{result="downloaded"} 3
`)
}

func TestGetMediaConcreteFilename(t *testing.T) {
	api := newFakeAPI(t)
	api.set(func(a *fakeAPI) {
		a.mediaBody = `{"data":[{"id":"123","media_type":"IMAGE","media_url":"https://x/y.jpg","thumbnail_url":"https://x/y_t.jpg"}]}`
	})
	cacheDir := t.TempDir()

	records, err := newRetriever(api, cacheDir).GetMedia(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []instagram.MediaRecord{{
		ID:        "123",
		Type:      "IMAGE",
		URL:       "https://x/y.jpg",
		Thumbnail: "https://x/y_t.jpg",
		Filename:  filepath.Join(cacheDir, "123.jpg"),
	}}, records)
	assert.FileExists(t, records[0].Filename)
	assert.Equal(t, []string{"/y.jpg"}, api.BinaryRequests())
}

func TestGetMediaMissingData(t *testing.T) {
	for name, body := range map[string]string{
		"absent": `{"paging":{}}`,
		"null":   `{"data":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			api := newFakeAPI(t)
			api.set(func(a *fakeAPI) { a.mediaBody = body })

			records, err := newRetriever(api, t.TempDir()).GetMedia(context.Background(), 5)
			assert.Nil(t, records)
			assert.ErrorIs(t, err, instagram.ErrMissingData)
		})
	}
}

func TestGetMediaEmptyData(t *testing.T) {
	api := newFakeAPI(t)
	api.set(func(a *fakeAPI) { a.mediaBody = `{"data":[]}` })

	records, err := newRetriever(api, t.TempDir()).GetMedia(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestGetMediaRejectsNonPositiveCount(t *testing.T) {
	api := newFakeAPI(t)
	retriever := newRetriever(api, t.TempDir())

	for _, count := range []int{0, -1} {
		records, err := retriever.GetMedia(context.Background(), count)
		assert.Nil(t, records)
		assert.ErrorIs(t, err, instagram.ErrInvalidCount)
	}
	assert.Zero(t, api.Hits("/me/media"))
}

func TestGetMediaAPIErrorFailsWholeCall(t *testing.T) {
	api := newFakeAPI(t)
	api.set(func(a *fakeAPI) {
		a.mediaStatus = http.StatusBadRequest
		a.mediaBody = `{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190,"fbtrace_id":"x1"}}`
	})

	records, err := newRetriever(api, t.TempDir()).GetMedia(context.Background(), 2)
	assert.Nil(t, records)
	require.Error(t, err)
	assert.True(t, instagram.IsTokenError(err))
	assert.Empty(t, api.BinaryRequests())
}

func TestGetMediaDownloadFailureStillReturnsRecord(t *testing.T) {
	api := newFakeAPI(t)
	api.set(func(a *fakeAPI) {
		a.mediaBody = mediaListing(2)
		a.binaryStatus = http.StatusServiceUnavailable
	})
	cacheDir := t.TempDir()
	m := metrics.New()
	retriever := newRetriever(api, cacheDir, instagram.WithMetrics(m), instagram.WithCacheLocking(false))

	records, err := retriever.GetMedia(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.NoFileExists(t, rec.Filename)
	}
	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed downloads must not leave partial files")
	assertMediaItems(t, m, `
igmirror_media_items_total{result="failure"} 2
`)

	// The next call retries the missing files.
	api.set(func(a *fakeAPI) { a.binaryStatus = http.StatusOK })
	_, err = retriever.GetMedia(context.Background(), 2)
	require.NoError(t, err)
	for _, rec := range records {
		assert.FileExists(t, rec.Filename)
	}
	assert.Len(t, api.BinaryRequests(), 4)
}

func TestGetMediaSkipsItemsWithoutUsableID(t *testing.T) {
	api := newFakeAPI(t)
	api.set(func(a *fakeAPI) {
		a.mediaBody = `{"data":[` +
			`{"id":"","media_type":"IMAGE","media_url":"https://x/noext"},` +
			`{"id":"..","media_type":"IMAGE","media_url":"https://x/a.jpg"},` +
			`{"id":"42","media_type":"VIDEO","media_url":"https://x/clip.mp4"}]}`
	})
	cacheDir := t.TempDir()
	m := metrics.New()

	records, err := newRetriever(api, cacheDir, instagram.WithMetrics(m)).GetMedia(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "42", records[0].ID)
	assert.Equal(t, filepath.Join(cacheDir, "42.mp4"), records[0].Filename)
	assert.Equal(t, []string{"/clip.mp4"}, api.BinaryRequests())
	assertMediaItems(t, m, `
igmirror_media_items_total{result="downloaded"} 1
igmirror_media_items_total{result="failure"} 2
`)
}

func TestGetMediaWithRateLimit(t *testing.T) {
	api := newFakeAPI(t)
	api.set(func(a *fakeAPI) { a.mediaBody = mediaListing(2) })

	records, err := newRetriever(api, t.TempDir(), instagram.WithDownloadRate(1000)).GetMedia(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Len(t, api.BinaryRequests(), 2)
}

func TestMediaFileName(t *testing.T) {
	tests := []struct {
		id, url, want string
	}{
		{"123", "https://x/y.jpg", "123.jpg"},
		{"9", "https://cdn.test/v/clip.mp4?efg=abc&oh=1", "9.mp4"},
		{"7", "https://cdn.test/no-extension", "7"},
		{"a/b", "https://cdn.test/p.png", "a_b.png"},
		{"5", "::not a url", "5"},
		{"", "https://x/noext", ""},
		{"..", "https://x/a.jpg", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, instagram.MediaFileName(tt.id, tt.url), "id=%s url=%s", tt.id, tt.url)
	}
}

func assertMediaItems(t *testing.T, m *metrics.Metrics, series string) {
	t.Helper()
	expected := `
# HELP igmirror_media_items_total Media items processed by cache result
# TYPE igmirror_media_items_total counter
` + strings.TrimLeft(series, "\n")
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "igmirror_media_items_total"))
}
