package httpcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mattiapenati/otelware/pkg/semconv/xconv"
	"github.com/mattiapenati/otelware/pkg/telemetry/xmeter"
	"github.com/mattiapenati/otelware/pkg/telemetry/xspan"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// 跨度名称的固定回退值。
// 路由模板缺失时使用，避免原始路径进入跨度名称造成基数爆炸。
const (
	FallbackServerSpanName = "HTTP"
	ClientSpanName         = "HTTP request"
)

// Core 持有一份构造期确定的 HTTP 观测配置与共享仪表。
//
// 由 xhttp / xgin 的选项装配，构造后只读，被所有并发调用共享。
type Core struct {
	ServiceName    string
	Tracer         trace.Tracer
	Instruments    *xmeter.Instruments
	Propagator     propagation.TextMapPropagator
	SchemeFallback string
	ClientAddress  bool
	Logger         *slog.Logger
}

// StartServer 为一次服务端调用提取传播上下文、装配属性并开启跨度。
//
// route 为路由模板，空串表示缺失（跨度名称退回固定值）。
// 返回的 context 携带跨度，必须传给内层处理器。
func (c *Core) StartServer(r *http.Request, route string) (context.Context, *xspan.Handle) {
	ctx := r.Context()
	if c.Propagator != nil {
		ctx = c.Propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
	}

	metricAttrs, activeLen, spanAttrs := c.serverAttrs(r, route)

	name := route
	if name == "" {
		name = FallbackServerSpanName
	}

	return xspan.Open(ctx, xspan.Config{
		Tracer:      c.Tracer,
		Name:        name,
		Kind:        trace.SpanKindServer,
		Attrs:       append(metricAttrs[:len(metricAttrs):len(metricAttrs)], spanAttrs...),
		MetricAttrs: metricAttrs,
		ActiveLen:   activeLen,
		Recorder:    c.Instruments,
		RequestSize: r.ContentLength,
		Logger:      c.Logger,
	})
}

// serverAttrs 装配服务端请求期属性。
//
// 返回的 metricAttrs 前 activeLen 个构成在途请求数的标签前缀，
// 全部 metricAttrs 是指标标签，spanAttrs 是仅跨度可见的补充属性。
// 装配故障被隔离：panic 只丢掉本次调用的部分属性，绝不影响请求本身。
func (c *Core) serverAttrs(r *http.Request, route string) (metricAttrs []attribute.KeyValue, activeLen int, spanAttrs []attribute.KeyValue) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logf("httpcore: server attribute assembly failed", rec)
		}
	}()

	method, methodOriginal, hasOriginal := xconv.MethodAttrs(r.Method)
	scheme := xconv.SchemeFromHeaders(r.Header, c.SchemeFallback)

	// 在途请求数的标签前缀：低基数且开启时即确定的维度。
	metricAttrs = make([]attribute.KeyValue, 0, 8)
	metricAttrs = append(metricAttrs, method, attribute.String(xconv.KeyURLScheme, scheme))
	metricAttrs = append(metricAttrs, xconv.ServerAttrsFromHost(r.Host)...)
	if c.ServiceName != "" {
		metricAttrs = append(metricAttrs, attribute.String(xconv.KeyServiceName, c.ServiceName))
	}
	activeLen = len(metricAttrs)

	metricAttrs = append(metricAttrs, attribute.String(xconv.KeyNetworkProtocolName, "http"))
	if v, ok := xconv.ProtocolVersion(r.ProtoMajor, r.ProtoMinor); ok {
		metricAttrs = append(metricAttrs, attribute.String(xconv.KeyNetworkProtocolVersion, v))
	}
	if route != "" {
		metricAttrs = append(metricAttrs, attribute.String(xconv.KeyHTTPRoute, route))
	}

	// 仅跨度可见的高基数属性。
	spanAttrs = make([]attribute.KeyValue, 0, 4)
	if r.URL != nil {
		if r.URL.Path != "" {
			spanAttrs = append(spanAttrs, attribute.String(xconv.KeyURLPath, r.URL.Path))
		}
		if r.URL.RawQuery != "" {
			spanAttrs = append(spanAttrs, attribute.String(xconv.KeyURLQuery, r.URL.RawQuery))
		}
	}
	if hasOriginal {
		spanAttrs = append(spanAttrs, methodOriginal)
	}
	if c.ClientAddress {
		if addr, ok := xconv.ClientAddress(r.RemoteAddr); ok {
			spanAttrs = append(spanAttrs, addr)
		}
	}
	return metricAttrs, activeLen, spanAttrs
}

// StartClient 为一次客户端调用开启跨度并把传播上下文注入请求头。
//
// 返回注入后的请求副本，原始请求不被修改。
func (c *Core) StartClient(r *http.Request) (*http.Request, *xspan.Handle) {
	metricAttrs, activeLen, spanAttrs := c.clientAttrs(r)

	ctx, h := xspan.Open(r.Context(), xspan.Config{
		Tracer:      c.Tracer,
		Name:        ClientSpanName,
		Kind:        trace.SpanKindClient,
		Attrs:       append(metricAttrs[:len(metricAttrs):len(metricAttrs)], spanAttrs...),
		MetricAttrs: metricAttrs,
		ActiveLen:   activeLen,
		Recorder:    c.Instruments,
		RequestSize: r.ContentLength,
		Logger:      c.Logger,
	})

	r = r.Clone(ctx)
	if c.Propagator != nil {
		c.Propagator.Inject(ctx, propagation.HeaderCarrier(r.Header))
	}
	return r, h
}

// clientAttrs 装配客户端请求期属性，故障隔离策略与 serverAttrs 相同。
func (c *Core) clientAttrs(r *http.Request) (metricAttrs []attribute.KeyValue, activeLen int, spanAttrs []attribute.KeyValue) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logf("httpcore: client attribute assembly failed", rec)
		}
	}()

	method, methodOriginal, hasOriginal := xconv.MethodAttrs(r.Method)

	metricAttrs = make([]attribute.KeyValue, 0, 8)
	metricAttrs = append(metricAttrs, method)
	if r.URL != nil && r.URL.Scheme != "" {
		metricAttrs = append(metricAttrs, attribute.String(xconv.KeyURLScheme, r.URL.Scheme))
	}
	metricAttrs = append(metricAttrs, xconv.ServerAttrsFromURL(r.URL)...)
	if c.ServiceName != "" {
		metricAttrs = append(metricAttrs, attribute.String(xconv.KeyServiceName, c.ServiceName))
	}
	activeLen = len(metricAttrs)

	metricAttrs = append(metricAttrs, attribute.String(xconv.KeyNetworkProtocolName, "http"))
	if v, ok := xconv.ProtocolVersion(r.ProtoMajor, r.ProtoMinor); ok {
		metricAttrs = append(metricAttrs, attribute.String(xconv.KeyNetworkProtocolVersion, v))
	}

	spanAttrs = make([]attribute.KeyValue, 0, 2)
	if r.URL != nil {
		spanAttrs = append(spanAttrs, attribute.String(xconv.KeyURLFull, r.URL.String()))
	}
	if hasOriginal {
		spanAttrs = append(spanAttrs, methodOriginal)
	}
	return metricAttrs, activeLen, spanAttrs
}

// FinishStatus 以 HTTP 状态码收尾：状态分类与状态码属性一并落盘。
//
// extra 为分发后才可知的响应期属性（如迟到的 http.route），
// 同时追加到跨度与指标标签。
func FinishStatus(h *xspan.Handle, status int, responseSize int64, extra ...attribute.KeyValue) {
	code, desc := xconv.ClassifyHTTPStatus(status)
	h.End(xspan.Outcome{
		Status:       code,
		Desc:         desc,
		Attrs:        append([]attribute.KeyValue{xconv.StatusCodeAttr(status)}, extra...),
		ResponseSize: responseSize,
	})
}

// FinishError 以传输层错误收尾（未拿到任何 HTTP 状态码的失败路径）。
func FinishError(h *xspan.Handle, err error) {
	h.End(xspan.Outcome{
		Status:       codes.Error,
		Desc:         err.Error(),
		Err:          err,
		Attrs:        []attribute.KeyValue{attribute.String(xconv.KeyErrorType, errorType(err))},
		ResponseSize: -1,
	})
}

// FinishCanceled 以取消结局收尾（调用方早退、响应未产生）。
func FinishCanceled(h *xspan.Handle) {
	h.End(CanceledOutcome())
}

// CanceledOutcome 返回 HTTP 取消结局，供 EndOnDone 挂钩使用。
func CanceledOutcome() xspan.Outcome {
	return xspan.Canceled(attribute.String(xconv.KeyErrorType, xconv.ErrorTypeCanceled))
}

// errorType 返回 error.type 的低基数取值。
//
// context 取消/超时归入固定桶，其余错误用 Go 类型名，
// 绝不把 err.Error() 文本放进指标标签。
func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return xconv.ErrorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return fmt.Sprintf("%T", err)
	}
}

func (c *Core) logf(msg string, rec any) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(msg, slog.Any("panic", rec))
}
