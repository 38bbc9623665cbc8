package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Namespace != "redishandles" {
		t.Errorf("expected namespace redishandles, got %s", cfg.Namespace)
	}
	if cfg.MetricsPath != "/metrics" {
		t.Errorf("expected /metrics, got %s", cfg.MetricsPath)
	}
}

func TestRecordBuild(t *testing.T) {
	c := New()
	c.RecordBuild(42, 2, 5*time.Millisecond)

	if got := testutil.ToFloat64(c.Handles); got != 42 {
		t.Errorf("expected 42 handles, got %v", got)
	}
	if got := testutil.ToFloat64(c.DuplicateSignatures); got != 2 {
		t.Errorf("expected 2 duplicates, got %v", got)
	}
}

func TestRecordBuildFailure(t *testing.T) {
	c := New()
	c.RecordBuildFailure("type")
	c.RecordBuildFailure("type")

	if got := testutil.ToFloat64(c.BuildFailures.WithLabelValues("type")); got != 2 {
		t.Errorf("expected 2 failures, got %v", got)
	}
}

func TestRecordDispatch(t *testing.T) {
	c := New()
	c.RecordDispatch("Set", "ok", time.Millisecond)
	c.RecordDispatch("Set", "error", time.Millisecond)
	c.RecordDispatch("Set", "ok", time.Millisecond)

	if got := testutil.ToFloat64(c.Dispatches.WithLabelValues("Set", "ok")); got != 2 {
		t.Errorf("expected 2 ok dispatches, got %v", got)
	}
	if got := testutil.ToFloat64(c.Dispatches.WithLabelValues("Set", "error")); got != 1 {
		t.Errorf("expected 1 failed dispatch, got %v", got)
	}
}

func TestDisabledGroupsAreNoops(t *testing.T) {
	c := NewWithConfig(Config{Namespace: "x"})
	c.RecordBuild(1, 0, time.Millisecond)
	c.RecordBuildFailure("type")
	c.RecordDispatch("Get", "ok", time.Millisecond)

	var nilCollector *Collector
	nilCollector.RecordDispatch("Get", "ok", time.Millisecond)
}

func TestHandler(t *testing.T) {
	c := New()
	c.RecordBuild(7, 0, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "redishandles_registry_handles 7") {
		t.Errorf("expected handles gauge in output, got:\n%s", rec.Body.String())
	}
}
