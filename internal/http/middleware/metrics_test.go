package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabelAndInflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/sessions/:sender", func(c *gin.Context) {
		if got := testutil.ToFloat64(httpInflight); got < 1 {
			t.Errorf("inflight = %v during request", got)
		}
		c.String(http.StatusOK, "ok")
	})

	okBefore := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/sessions/:sender", "200"))
	missBefore := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "unmatched", "404"))

	serve(r, http.MethodGet, "/sessions/5511999990001", nil)
	serve(r, http.MethodGet, "/sessions/5511999990002", nil)
	serve(r, http.MethodGet, "/nope", nil)

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/sessions/:sender", "200")) - okBefore; got != 2 {
		t.Fatalf("route counter delta = %v; want 2", got)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "unmatched", "404")) - missBefore; got != 1 {
		t.Fatalf("unmatched counter delta = %v; want 1", got)
	}
	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("inflight = %v after requests", got)
	}
	if n := testutil.CollectAndCount(httpLat); n == 0 {
		t.Fatalf("latency histogram has no series")
	}
}
