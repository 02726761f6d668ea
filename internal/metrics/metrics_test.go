package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"igmirror/internal/metrics"
)

func TestRecordTokenOperationLabelsResult(t *testing.T) {
	m := metrics.New()
	m.RecordTokenOperation("refresh", nil)
	m.RecordTokenOperation("refresh", errors.New("boom"))
	m.RecordTokenOperation("authenticate", nil)

	expected := `
# HELP igmirror_token_operations_total Token exchanges and refreshes by operation and result
# TYPE igmirror_token_operations_total counter
igmirror_token_operations_total{operation="authenticate",result="success"} 1
igmirror_token_operations_total{operation="refresh",result="failure"} 1
igmirror_token_operations_total{operation="refresh",result="success"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "igmirror_token_operations_total"); err != nil {
		t.Fatal(err)
	}
}

func TestRecordMediaItemCountsBytes(t *testing.T) {
	m := metrics.New()
	m.RecordMediaItem(metrics.ResultDownloaded, 100)
	m.RecordMediaItem(metrics.ResultDownloaded, 50)
	m.RecordMediaItem(metrics.ResultCached, 0)

	count, err := testutil.GatherAndCount(m.Registry(), "igmirror_media_items_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two result series, got %d", count)
	}
	expected := `
# HELP igmirror_media_bytes_downloaded_total Total bytes written to the media cache
# TYPE igmirror_media_bytes_downloaded_total counter
igmirror_media_bytes_downloaded_total 150
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "igmirror_media_bytes_downloaded_total"); err != nil {
		t.Fatal(err)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.RecordTokenOperation("refresh", nil)
	m.SetTokenAge(time.Hour)
	m.ObserveAPIRequest("me/media", time.Second, nil)
	m.RecordMediaItem(metrics.ResultCached, 10)
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("nil WriteTextfile: %v", err)
	}
	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}

func TestWriteTextfile(t *testing.T) {
	m := metrics.New()
	m.SetTokenAge(90 * time.Second)
	m.ObserveAPIRequest("refresh_access_token", 200*time.Millisecond, nil)

	path := filepath.Join(t.TempDir(), "collector", "igmirror.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "igmirror_token_age_seconds 90") {
		t.Fatalf("expected token age in textfile, got:\n%s", out)
	}
	if !strings.Contains(out, `igmirror_api_request_duration_seconds_count{endpoint="refresh_access_token",result="success"} 1`) {
		t.Fatalf("expected request histogram in textfile, got:\n%s", out)
	}
}
