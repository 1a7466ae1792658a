package xhttp

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// roundTripFunc 把函数适配成 http.RoundTripper。
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubResponse(status int) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Body:          io.NopCloser(strings.NewReader("")),
		ContentLength: 0,
	}
}

func TestTransportInjectsIntoClone(t *testing.T) {
	backend := newTestBackend(t)

	var seen *http.Request
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return stubResponse(http.StatusOK), nil
	})

	transport, err := NewTransport(base,
		append(backend.options(), WithPropagator(propagation.TraceContext{}))...)
	require.NoError(t, err)

	original, err := http.NewRequest(http.MethodGet, "https://example.com/items", nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(original)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NotNil(t, seen)
	assert.NotEmpty(t, seen.Header.Get("traceparent"), "传播上下文注入到发出的请求")
	assert.Empty(t, original.Header.Get("traceparent"), "原始请求不被修改")
}

func TestTransportSpanAttributes(t *testing.T) {
	backend := newTestBackend(t)

	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusOK), nil
	})
	transport, err := NewTransport(base, backend.options()...)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "https://example.com/items?page=2", nil)
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	spans := backend.endedSpans(t)
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP request", spans[0].Name, "客户端跨度名称固定")
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)

	full, ok := attrValue(spans[0].Attributes, "url.full")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/items?page=2", full.AsString())

	// 未显式指定端口时回退到 scheme 默认端口。
	port, ok := attrValue(spans[0].Attributes, "server.port")
	require.True(t, ok)
	assert.Equal(t, int64(443), port.AsInt64())
}

func TestTransportStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		wantCode codes.Code
	}{
		{http.StatusOK, codes.Unset},
		// 客户端跨度的 4xx 同样不是错误。
		{http.StatusNotFound, codes.Unset},
		{http.StatusServiceUnavailable, codes.Error},
	}

	for _, tt := range tests {
		backend := newTestBackend(t)
		base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return stubResponse(tt.status), nil
		})
		transport, err := NewTransport(base, backend.options()...)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
		require.NoError(t, err)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()

		spans := backend.endedSpans(t)
		require.Len(t, spans, 1)
		assert.Equal(t, tt.wantCode, spans[0].Status.Code, "状态码 %d", tt.status)
	}
}

func TestTransportTransportError(t *testing.T) {
	backend := newTestBackend(t)

	wantErr := errors.New("connection refused")
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, wantErr
	})
	transport, err := NewTransport(base, backend.options()...)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)
	_, err = transport.RoundTrip(req)
	require.ErrorIs(t, err, wantErr, "错误原样返回给调用方")

	spans := backend.endedSpans(t)
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 1, "传输层错误记录为跨度事件")
	_, ok := attrValue(spans[0].Attributes, "http.response.status_code")
	assert.False(t, ok, "失败路径没有状态码属性")
}
