package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	c := NewCollector()
	c.ObserveOperation("organize", "ok", 120*time.Millisecond)
	c.ObserveOperation("organize", "ok", 80*time.Millisecond)
	c.ObserveOperation("organize", "rejected", 0)

	if got := testutil.ToFloat64(c.operations.WithLabelValues("organize", "ok")); got != 2 {
		t.Fatalf("ok count=%v", got)
	}
	if got := testutil.ToFloat64(c.operations.WithLabelValues("organize", "rejected")); got != 1 {
		t.Fatalf("rejected count=%v", got)
	}
	if n := testutil.CollectAndCount(c.opDuration); n != 1 {
		t.Fatalf("histogram series=%d", n)
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.ObserveChatChunk()
	a.ObserveChatChunk()
	if got := testutil.ToFloat64(b.chatChunks); got != 0 {
		t.Fatalf("second collector saw %v chunks", got)
	}
	if got := testutil.ToFloat64(a.chatChunks); got != 2 {
		t.Fatalf("chunks=%v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.ObserveHTTP("GET", "/api/state", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `lumina_http_requests_total{method="GET",route="/api/state",status="200"} 1`) {
		t.Fatalf("exposition missing request counter:\n%s", body)
	}
}
