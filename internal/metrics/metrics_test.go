package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Upstream(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveUpstream("pubmed", true, 200*time.Millisecond)
	c.ObserveUpstream("pubmed", false, time.Second)
	c.ObserveUpstream("pubmed", false, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamCalls.WithLabelValues("pubmed", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.upstreamCalls.WithLabelValues("pubmed", "failure")))
}

func TestCollector_BreakerState(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.SetBreakerState("trials", gobreaker.StateOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.breakerState.WithLabelValues("trials")))

	c.SetBreakerState("trials", gobreaker.StateHalfOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.breakerState.WithLabelValues("trials")))

	c.SetBreakerState("trials", gobreaker.StateClosed)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.breakerState.WithLabelValues("trials")))
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveSummaryCache(true)
	c.ObserveSummaryCache(false)
	c.ObserveSummaryCache(false)
	c.ObserveFallback("trials")
	c.ObserveTask("forum_cleanup", true, 1)
	c.ObserveTask("notification_email", false, 5)
	c.ObserveHTTP("GET", "/api/forums", 200, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.summaryCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.summaryCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fallbacks.WithLabelValues("trials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasks.WithLabelValues("forum_cleanup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasks.WithLabelValues("notification_email", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/forums", "200")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveFallback("publications")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `curalink_discovery_fallbacks_total{category="publications"} 1`)
}
