package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRecordRouter mimics the record routes: known kinds answer 200, anything else 400.
func newRecordRouter(t *testing.T) (*gin.Engine, *Provider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("test_app")
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	})

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "test_app"))
	router.GET("/v1/records/:kind/:id", func(c *gin.Context) {
		if c.Param("kind") != "batch" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	router.POST("/v1/sync", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})
	return router, provider
}

func get(router *gin.Engine, method, path string) int {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w.Code
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	t.Run("Success_CountsByRoutePattern", func(t *testing.T) {
		router, provider := newRecordRouter(t)

		assert.Equal(t, http.StatusOK, get(router, http.MethodGet, "/v1/records/batch/1"))
		assert.Equal(t, http.StatusOK, get(router, http.MethodGet, "/v1/records/batch/2"))
		assert.Equal(t, http.StatusOK, get(router, http.MethodPost, "/v1/sync"))

		output := scrape(t, provider)
		assertBizMetricLine(t, output, `test_app_http_requests_total`,
			`kind="batch",method="GET",path="/v1/records/:kind/:id",status_code="200"`, `2`)
		assertBizMetricLine(t, output, `test_app_http_requests_total`,
			`method="POST",path="/v1/sync",status_code="200"`, `1`)
		assertBizMetricLine(t, output, `test_app_http_request_duration_seconds_count`,
			`path="/v1/sync"`, `1`)
		assert.Contains(t, output, `le="60"`)
	})

	t.Run("Success_RejectedKindIsNotALabel", func(t *testing.T) {
		router, provider := newRecordRouter(t)

		assert.Equal(t, http.StatusBadRequest, get(router, http.MethodGet, "/v1/records/shipment/1"))

		output := scrape(t, provider)
		assertBizMetricLine(t, output, `test_app_http_requests_total`,
			`method="GET",path="/v1/records/:kind/:id",status_code="400"`, `1`)
		assert.NotContains(t, output, `kind="shipment"`)
	})

	t.Run("Success_UnmatchedRouteIsUnknown", func(t *testing.T) {
		router, provider := newRecordRouter(t)

		assert.Equal(t, http.StatusNotFound, get(router, http.MethodGet, "/v1/nope"))

		assertBizMetricLine(t, scrape(t, provider), `test_app_http_requests_total`,
			`path="unknown",status_code="404"`, `1`)
	})

	t.Run("Success_InFlightReturnsToZero", func(t *testing.T) {
		router, provider := newRecordRouter(t)

		get(router, http.MethodPost, "/v1/sync")

		assertBizMetricLine(t, scrape(t, provider), `test_app_http_requests_in_flight`,
			`path="/v1/sync"`, `0`)
	})
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/records/:kind/:id", routeLabel("/v1/records/:kind/:id"))
	assert.Equal(t, "unknown", routeLabel(""))
}
