package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStage(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordStage("image_analyzed", true)
	m.RecordStage("image_analyzed", false)
	m.RecordStage("image_analyzed", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pipelineStagesTotal.WithLabelValues("image_analyzed", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pipelineStagesTotal.WithLabelValues("image_analyzed", "failed")))
}

func TestMonitorMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(nil)

	r := gin.New()
	r.Use(MonitorMiddleware(m))
	r.GET("/api/system/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/system/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `http_requests_total{method="GET",path="/api/system/health",status="200"} 1`))
}
