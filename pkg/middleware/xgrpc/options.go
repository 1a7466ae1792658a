package xgrpc

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// scopeName 是本包的仪表作用域名称。
const scopeName = "github.com/mattiapenati/otelware/pkg/middleware/xgrpc"

// config 持有拦截器的可配置项。
type config struct {
	serviceName    string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	clientAddress  bool
	logger         *slog.Logger
}

func defaultConfig() *config {
	return &config{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		propagator:     otel.GetTextMapPropagator(),
		logger:         slog.Default(),
	}
}

// Option 配置拦截器的单个选项。
type Option func(*config)

// WithServiceName 设置 service.name 指标标签；空串表示不产出该标签。
func WithServiceName(name string) Option {
	return func(c *config) { c.serviceName = name }
}

// WithTracerProvider 设置 TracerProvider，默认使用全局 Provider。
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认使用全局 Provider。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// WithPropagator 设置传播器，默认使用全局传播器。
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *config) {
		if p != nil {
			c.propagator = p
		}
	}
}

// WithClientAddress 开启服务端跨度的 client.address 采集。
//
// 来源仅为 gRPC 连接的对端地址，绝不采信任何可伪造的 metadata。
func WithClientAddress() Option {
	return func(c *config) { c.clientAddress = true }
}

// WithLogger 设置故障日志的 logger，默认 slog.Default。
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
