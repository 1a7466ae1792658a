package xspan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattiapenati/otelware/pkg/telemetry/xmeter"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type testBackend struct {
	spans       *tracetest.InMemoryExporter
	reader      *sdkmetric.ManualReader
	tracer      trace.Tracer
	instruments *xmeter.Instruments
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()

	spans := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	instruments, err := xmeter.NewHTTPServer(mp.Meter("test"))
	require.NoError(t, err)

	return &testBackend{
		spans:       spans,
		reader:      reader,
		tracer:      tp.Tracer("test"),
		instruments: instruments,
	}
}

func (b *testBackend) requestTotal(t *testing.T) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, b.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http.server.request.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestOpenEndExactlyOnce(t *testing.T) {
	backend := newTestBackend(t)

	_, h := Open(context.Background(), Config{
		Tracer:      backend.tracer,
		Name:        "/orders/{id}",
		Kind:        trace.SpanKindServer,
		MetricAttrs: []attribute.KeyValue{attribute.String("http.request.method", "GET")},
		ActiveLen:   1,
		Recorder:    backend.instruments,
		RequestSize: -1,
	})

	outcome := Outcome{Status: codes.Unset, ResponseSize: -1}
	h.End(outcome)
	h.End(outcome)
	h.End(outcome)

	spans := backend.spans.GetSpans()
	require.Len(t, spans, 1, "重复 End 不产生第二个跨度")
	assert.Equal(t, int64(1), backend.requestTotal(t), "重复 End 不重复记录指标")
}

func TestEndConcurrent(t *testing.T) {
	backend := newTestBackend(t)

	_, h := Open(context.Background(), Config{
		Tracer:      backend.tracer,
		Name:        "x",
		Recorder:    backend.instruments,
		RequestSize: -1,
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.End(Outcome{ResponseSize: -1})
		}()
	}
	wg.Wait()

	require.Len(t, backend.spans.GetSpans(), 1)
	assert.Equal(t, int64(1), backend.requestTotal(t))
}

func TestEnrichBeforeAndAfterEnd(t *testing.T) {
	backend := newTestBackend(t)

	_, h := Open(context.Background(), Config{Tracer: backend.tracer, Name: "x", RequestSize: -1})
	h.Enrich(attribute.String("early", "yes"))
	h.End(Outcome{ResponseSize: -1})
	h.Enrich(attribute.String("late", "no"))

	spans := backend.spans.GetSpans()
	require.Len(t, spans, 1)

	keys := make(map[string]bool)
	for _, kv := range spans[0].Attributes {
		keys[string(kv.Key)] = true
	}
	assert.True(t, keys["early"], "关闭前的 Enrich 生效")
	assert.False(t, keys["late"], "关闭后的 Enrich 是无操作")
}

func TestEndOutcomeStatus(t *testing.T) {
	backend := newTestBackend(t)

	_, h := Open(context.Background(), Config{Tracer: backend.tracer, Name: "x", RequestSize: -1})
	h.End(Outcome{
		Status:       codes.Error,
		Desc:         "boom",
		Err:          assert.AnError,
		Attrs:        []attribute.KeyValue{attribute.Int("http.response.status_code", 500)},
		ResponseSize: -1,
	})

	spans := backend.spans.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1, "错误记录为跨度事件")

	status, ok := findAttr(spans[0].Attributes, "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(500), status.AsInt64())
}

func TestEndOnDoneFiresOnCancel(t *testing.T) {
	backend := newTestBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	ctx, h := Open(ctx, Config{Tracer: backend.tracer, Name: "x", Recorder: backend.instruments, RequestSize: -1})
	h.EndOnDone(ctx, Canceled())

	cancel()
	require.Eventually(t, func() bool {
		return len(backend.spans.GetSpans()) == 1
	}, time.Second, time.Millisecond)

	spans := backend.spans.GetSpans()
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "canceled", spans[0].Status.Description)

	// 钩子触发后的显式 End 是无操作。
	h.End(Outcome{ResponseSize: -1})
	assert.Len(t, backend.spans.GetSpans(), 1)
	assert.Equal(t, int64(1), backend.requestTotal(t))
}

func TestEndBeforeDoneWinsOverHook(t *testing.T) {
	backend := newTestBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	ctx, h := Open(ctx, Config{Tracer: backend.tracer, Name: "x", Recorder: backend.instruments, RequestSize: -1})
	h.EndOnDone(ctx, Canceled())

	h.End(Outcome{Status: codes.Unset, ResponseSize: -1})
	cancel()

	// 给钩子一个触发窗口，然后确认它没有覆盖正常结局。
	time.Sleep(10 * time.Millisecond)
	spans := backend.spans.GetSpans()
	require.Len(t, spans, 1)
	assert.NotEqual(t, "canceled", spans[0].Status.Description)
	assert.Equal(t, int64(1), backend.requestTotal(t))
}

func TestOpenNilTracerAndRecorder(t *testing.T) {
	ctx, h := Open(context.Background(), Config{Name: "x", RequestSize: -1})
	require.NotNil(t, ctx)
	assert.NotPanics(t, func() {
		h.Enrich(attribute.String("k", "v"))
		h.End(Outcome{ResponseSize: -1})
	})
}

func TestNilHandleSafe(t *testing.T) {
	var h *Handle
	assert.NotPanics(t, func() {
		h.Enrich(attribute.String("k", "v"))
		h.End(Outcome{})
		h.EndOnDone(context.Background(), Canceled())
	})
}

func findAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}
