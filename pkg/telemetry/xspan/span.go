package xspan

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattiapenati/otelware/pkg/telemetry/xmeter"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config 描述一次跨度开启所需的全部输入。
type Config struct {
	// Tracer 为 nil 时使用无操作 Tracer，调用照常进行。
	Tracer trace.Tracer
	// Name 为跨度名称，必须在开启时同步可知且低基数。
	Name string
	// Kind 为跨度类型（服务端/客户端）。
	Kind trace.SpanKind
	// Attrs 为跨度的请求期属性（可含仅跨度可见的高基数属性）。
	Attrs []attribute.KeyValue
	// MetricAttrs 为指标标签用的低基数属性子集。
	MetricAttrs []attribute.KeyValue
	// ActiveLen 为 MetricAttrs 中用于在途请求数的前缀长度。
	ActiveLen int
	// Recorder 为共享指标仪表，可为 nil（只产跨度不产指标）。
	Recorder *xmeter.Instruments
	// RequestSize 为请求体字节数，负值表示未知。
	RequestSize int64
	// Logger 用于记录仪表故障，nil 时使用 slog.Default。
	Logger *slog.Logger
}

// Outcome 描述一次调用的结局。
type Outcome struct {
	// Status 为分类后的跨度状态（Unset/Ok/Error）。
	Status codes.Code
	// Desc 为 Status 为 Error 时的描述。
	Desc string
	// Err 为传输层错误，记录到跨度事件中。
	Err error
	// Attrs 为响应期属性（低基数），同时追加到跨度与指标标签。
	Attrs []attribute.KeyValue
	// ResponseSize 为响应体字节数，负值表示未知。
	ResponseSize int64
}

// Canceled 返回取消结局。
//
// attrs 携带协议相关的取消标记（error.type 或 rpc.grpc.status_code）。
// 取消按保守原则记为错误状态，避免静默吞掉真实失败。
func Canceled(attrs ...attribute.KeyValue) Outcome {
	return Outcome{
		Status:       codes.Error,
		Desc:         "canceled",
		Attrs:        attrs,
		ResponseSize: -1,
	}
}

// Handle 是一个已开启跨度的独占句柄。
//
// 每个句柄只属于一次调用，绝不跨调用共享。零值与 nil 句柄安全无操作。
type Handle struct {
	span        trace.Span
	ctx         context.Context
	rec         *xmeter.Instruments
	metricAttrs []attribute.KeyValue
	activeLen   int
	requestSize int64
	start       time.Time
	logger      *slog.Logger

	closed  atomic.Bool
	endOnce sync.Once
}

// Open 开启跨度、登记在途请求并返回携带跨度的 context 与句柄。
//
// 开启-先于-分发的顺序由调用方保证：Open 必须在把调用交给内层之前执行。
func Open(ctx context.Context, cfg Config) (context.Context, *Handle) {
	if ctx == nil {
		ctx = context.Background()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, span := tracer.Start(ctx, cfg.Name,
		trace.WithSpanKind(cfg.Kind),
		trace.WithAttributes(cfg.Attrs...),
	)

	activeLen := cfg.ActiveLen
	if activeLen < 0 || activeLen > len(cfg.MetricAttrs) {
		activeLen = len(cfg.MetricAttrs)
	}
	cfg.Recorder.Begin(ctx, cfg.MetricAttrs[:activeLen])

	return ctx, &Handle{
		span:        span,
		ctx:         ctx,
		rec:         cfg.Recorder,
		metricAttrs: cfg.MetricAttrs,
		activeLen:   activeLen,
		requestSize: cfg.RequestSize,
		start:       time.Now(),
		logger:      logger,
	}
}

// SetName 在跨度关闭前改写跨度名称；关闭后为无操作。
//
// 供路由模板在分发后才可知的场景使用：开启时先用低基数回退名称，
// 模板确定后再改写。name 必须仍是低基数模板。
func (h *Handle) SetName(name string) {
	if h == nil || h.closed.Load() || name == "" {
		return
	}
	h.span.SetName(name)
}

// Enrich 在跨度关闭前追加属性；关闭后为无操作。
func (h *Handle) Enrich(attrs ...attribute.KeyValue) {
	if h == nil || h.closed.Load() || len(attrs) == 0 {
		return
	}
	h.span.SetAttributes(attrs...)
}

// End 以给定结局收尾，恰好执行一次。
//
// 重复调用是无操作。收尾内部的任何故障都被隔离：最多丢掉这次
// 调用的遥测，绝不向被包装的调用传播。
func (h *Handle) End(o Outcome) {
	if h == nil {
		return
	}
	h.endOnce.Do(func() {
		h.closed.Store(true)
		defer func() {
			if r := recover(); r != nil {
				h.logger.Warn("xspan: telemetry finalization failed", slog.Any("panic", r))
			}
		}()

		elapsed := time.Since(h.start)

		if o.Err != nil {
			h.span.RecordError(o.Err)
		}
		switch o.Status {
		case codes.Error:
			h.span.SetStatus(codes.Error, o.Desc)
		case codes.Ok:
			h.span.SetStatus(codes.Ok, "")
		}
		if len(o.Attrs) > 0 {
			h.span.SetAttributes(o.Attrs...)
		}
		h.span.End()

		attrs := h.metricAttrs
		if len(o.Attrs) > 0 {
			attrs = append(attrs[:len(attrs):len(attrs)], o.Attrs...)
		}
		h.rec.End(h.ctx, xmeter.Sample{
			Elapsed:      elapsed,
			Attrs:        attrs,
			ActiveAttrs:  h.metricAttrs[:h.activeLen],
			RequestSize:  h.requestSize,
			ResponseSize: o.ResponseSize,
		})
	})
}

// EndOnDone 把取消收尾挂到 ctx 上：ctx 结束且句柄尚未关闭时，
// 以 canceled 结局收尾。正常路径先 End 则此钩子降级为无操作。
//
// 返回的 stop 与 context.AfterFunc 语义一致，通常无需调用；
// 一次性收尾保证了重复触发无害。
func (h *Handle) EndOnDone(ctx context.Context, canceled Outcome) (stop func() bool) {
	if h == nil || ctx == nil {
		return func() bool { return false }
	}
	return context.AfterFunc(ctx, func() {
		h.End(canceled)
	})
}
