package xgin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, *tracetest.InMemoryExporter) {
	t.Helper()

	spans := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	mw, err := Middleware(WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)

	r := gin.New()
	r.Use(mw)
	return r, spans
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMiddlewareRouteTemplate(t *testing.T) {
	r, spans := newRouter(t)
	r.GET("/users/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	got := spans.GetSpans()
	require.Len(t, got, 1)
	assert.Equal(t, "/users/:id", got[0].Name, "跨度名称为 Gin 路由模板")

	route, ok := attrValue(got[0].Attributes, "http.route")
	require.True(t, ok)
	assert.Equal(t, "/users/:id", route.AsString())

	path, ok := attrValue(got[0].Attributes, "url.path")
	require.True(t, ok)
	assert.Equal(t, "/users/42", path.AsString())
}

func TestMiddlewareUnregisteredRouteFallback(t *testing.T) {
	r, spans := newRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	got := spans.GetSpans()
	require.Len(t, got, 1)
	assert.Equal(t, "HTTP", got[0].Name, "未注册路由退回固定名称")
	_, ok := attrValue(got[0].Attributes, "http.route")
	assert.False(t, ok)
}

func TestMiddlewareStatusClassification(t *testing.T) {
	r, spans := newRouter(t)
	r.GET("/fail", func(c *gin.Context) {
		c.String(http.StatusBadGateway, "bad")
	})
	r.GET("/missing", func(c *gin.Context) {
		c.String(http.StatusNotFound, "nope")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	got := spans.GetSpans()
	require.Len(t, got, 2)
	assert.Equal(t, codes.Error, got[0].Status.Code, "5xx 标错")
	assert.Equal(t, codes.Unset, got[1].Status.Code, "4xx 不标错")
}

func TestMiddlewarePanicFinalizesAndRepanics(t *testing.T) {
	r, spans := newRouter(t)
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	assert.PanicsWithValue(t, "boom", func() {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))
	})

	got := spans.GetSpans()
	require.Len(t, got, 1)
	assert.Equal(t, codes.Error, got[0].Status.Code)
}
