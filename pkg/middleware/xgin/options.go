package xgin

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// scopeName 是本包的仪表作用域名称。
const scopeName = "github.com/mattiapenati/otelware/pkg/middleware/xgin"

// config 持有中间件的可配置项。
type config struct {
	serviceName    string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	clientAddress  bool
	schemeFallback string
	logger         *slog.Logger
}

func defaultConfig() *config {
	return &config{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		propagator:     otel.GetTextMapPropagator(),
		schemeFallback: "http",
		logger:         slog.Default(),
	}
}

// Option 配置中间件的单个选项。
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

// WithClientAddress 开启 client.address 采集，来源仅为连接级对端地址。
func WithClientAddress() Option {
	return func(c *config) { c.clientAddress = true }
}

// WithSchemeFallback 设置转发头缺失时 url.scheme 的回退值。
// 仅接受 http/https，其余值忽略。
func WithSchemeFallback(scheme string) Option {
	return func(c *config) {
		if scheme == "http" || scheme == "https" {
			c.schemeFallback = scheme
		}
	}
}

// WithLogger 设置故障日志的 logger，默认 slog.Default。
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
