package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// requestDurationBuckets reach past the ledger submit timeout; sync triggers wait on it.
var requestDurationBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

type httpInstruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter, namespace string) (*httpInstruments, error) {
	requests, errRequests := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	duration, errDuration := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestDurationBuckets...),
	)
	inFlight, errInFlight := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_http_requests_in_flight", namespace),
		metric.WithDescription("Number of HTTP requests being served"),
		metric.WithUnit("{request}"),
	)
	if err := errors.Join(errRequests, errDuration, errInFlight); err != nil {
		return nil, err
	}
	return &httpInstruments{requests: requests, duration: duration, inFlight: inFlight}, nil
}

// HTTPMetricsMiddleware returns a Gin middleware counting and timing requests by method,
// route pattern and status code. Record routes that succeed also carry their kind label;
// rejected kinds are left out so arbitrary path segments cannot grow the series set.
// Instrument creation failures degrade to a pass-through middleware.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	instruments, err := newHTTPInstruments(meterProvider.Meter(namespace), namespace)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		route := routeLabel(c.FullPath())
		inFlight := metric.WithAttributes(attribute.String("path", route))

		instruments.inFlight.Add(ctx, 1, inFlight)
		start := time.Now()

		c.Next()

		elapsed := time.Since(start)
		instruments.inFlight.Add(ctx, -1, inFlight)

		attrs := metric.WithAttributes(requestAttributes(c, route)...)
		instruments.requests.Add(ctx, 1, attrs)
		instruments.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func requestAttributes(c *gin.Context, route string) []attribute.KeyValue {
	status := c.Writer.Status()
	attrs := []attribute.KeyValue{
		attribute.String("method", c.Request.Method),
		attribute.String("path", route),
		attribute.String("status_code", strconv.Itoa(status)),
	}
	if kind := c.Param("kind"); kind != "" && status < http.StatusBadRequest {
		attrs = append(attrs, attribute.String("kind", kind))
	}
	return attrs
}

// routeLabel is the matched route pattern, or "unknown" when no route matched.
func routeLabel(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}
