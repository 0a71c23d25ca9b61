package observability

import (
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCollect(t *testing.T) {
    m := NewMetrics()
    m.Commands.WithLabelValues("job").Inc()
    m.Commands.WithLabelValues("job").Inc()
    m.ParseErrors.Inc()
    m.StoreBytes.Set(64)

    if v := testutil.ToFloat64(m.Commands.WithLabelValues("job")); v != 2 { t.Fatalf("commands = %v", v) }
    if v := testutil.ToFloat64(m.ParseErrors); v != 1 { t.Fatalf("parse errors = %v", v) }
    if v := testutil.ToFloat64(m.StoreBytes); v != 64 { t.Fatalf("store bytes = %v", v) }

    rec := httptest.NewRecorder()
    m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
    body := rec.Body.String()
    if !strings.Contains(body, `beamlink_commands_total{kind="job"} 2`) { t.Fatalf("scrape missing commands:\n%s", body) }
}
