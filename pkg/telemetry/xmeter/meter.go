package xmeter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// durationBoundaries 是请求时延直方图的显式桶边界（秒）。
var durationBoundaries = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1.0, 2.5, 5.0, 7.5, 10.0,
}

// Instruments 持有一组请求指标仪表。
//
// 一个 Instruments 对应一侧（服务端或客户端）一种协议（HTTP 或 RPC），
// 构造一次后由任意数量的并发调用共享。
type Instruments struct {
	total        metric.Int64Counter
	duration     metric.Float64Histogram
	active       metric.Int64UpDownCounter
	requestSize  metric.Int64Histogram // 可为 nil（RPC 不记录报文体大小）
	responseSize metric.Int64Histogram // 可为 nil
}

// NewHTTPServer 创建 HTTP 服务端指标仪表。
func NewHTTPServer(meter metric.Meter) (*Instruments, error) {
	return newInstruments(meter, "http.server", true)
}

// NewHTTPClient 创建 HTTP 客户端指标仪表。
func NewHTTPClient(meter metric.Meter) (*Instruments, error) {
	return newInstruments(meter, "http.client", true)
}

// NewRPCServer 创建 RPC 服务端指标仪表。
func NewRPCServer(meter metric.Meter) (*Instruments, error) {
	return newInstruments(meter, "rpc.server", false)
}

// NewRPCClient 创建 RPC 客户端指标仪表。
func NewRPCClient(meter metric.Meter) (*Instruments, error) {
	return newInstruments(meter, "rpc.client", false)
}

func newInstruments(meter metric.Meter, prefix string, bodySize bool) (*Instruments, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	total, err := meter.Int64Counter(
		prefix+".request.total",
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}

	duration, err := meter.Float64Histogram(
		prefix+".request.duration",
		metric.WithDescription("Duration of requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	active, err := meter.Int64UpDownCounter(
		prefix+".active_requests",
		metric.WithDescription("Number of active requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateUpDownCounter, err)
	}

	inst := &Instruments{
		total:    total,
		duration: duration,
		active:   active,
	}

	if bodySize {
		inst.requestSize, err = meter.Int64Histogram(
			prefix+".request.body.size",
			metric.WithDescription("Size of request body"),
			metric.WithUnit("By"),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
		}
		inst.responseSize, err = meter.Int64Histogram(
			prefix+".response.body.size",
			metric.WithDescription("Size of response body"),
			metric.WithUnit("By"),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
		}
	}

	return inst, nil
}

// Begin 在调用分发前登记一次在途请求。
//
// activeAttrs 必须与之后 End 时 Sample.ActiveAttrs 完全一致，
// 加减两侧才会落在同一标签组合上。nil Instruments 安全无操作。
func (i *Instruments) Begin(ctx context.Context, activeAttrs []attribute.KeyValue) {
	if i == nil {
		return
	}
	i.active.Add(ctx, 1, metric.WithAttributes(activeAttrs...))
}

// Sample 描述一次已完成调用的观测值。
type Sample struct {
	// Elapsed 为调用总时延。
	Elapsed time.Duration
	// Attrs 为完整的低基数指标标签（含响应期属性）。
	Attrs []attribute.KeyValue
	// ActiveAttrs 为在途请求数使用的标签前缀，与 Begin 时相同。
	ActiveAttrs []attribute.KeyValue
	// RequestSize / ResponseSize 为报文体字节数，负值表示未知。
	RequestSize  int64
	ResponseSize int64
}

// End 记录一次已完成调用：计数器加一、时延入直方图、在途请求数减一。
//
// 每次 Begin 必须恰好对应一次 End，一一配对由跨度控制器的
// 一次性收尾保证，本方法自身不做去重。
//
// 使用不可取消的 context 记录，确保请求 context 已取消/超时时
// 指标仍能正确落盘。context.WithoutCancel 会保留 context 中的 values。
func (i *Instruments) End(ctx context.Context, s Sample) {
	if i == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	opt := metric.WithAttributes(s.Attrs...)
	i.total.Add(ctx, 1, opt)
	i.duration.Record(ctx, s.Elapsed.Seconds(), opt)
	i.active.Add(ctx, -1, metric.WithAttributes(s.ActiveAttrs...))

	if i.requestSize != nil && s.RequestSize >= 0 {
		i.requestSize.Record(ctx, s.RequestSize, opt)
	}
	if i.responseSize != nil && s.ResponseSize >= 0 {
		i.responseSize.Record(ctx, s.ResponseSize, opt)
	}
}
