package xhttp

import (
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// scopeName 是本包的仪表作用域名称。
const scopeName = "github.com/mattiapenati/otelware/pkg/middleware/xhttp"

// config 持有中间件的可配置项。
type config struct {
	serviceName    string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	clientAddress  bool
	schemeFallback string
	routeExtractor func(*http.Request) string
	logger         *slog.Logger
}

// defaultConfig 返回默认配置：全局 otel Provider、http 回退协议、
// 不采集对端地址。
func defaultConfig() *config {
	return &config{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		propagator:     otel.GetTextMapPropagator(),
		schemeFallback: "http",
		routeExtractor: defaultRouteExtractor,
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

// WithClientAddress 开启 client.address 采集。
//
// 来源仅为连接级对端地址，可伪造的转发头绝不采信。
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

// WithRouteExtractor 设置路由模板提取函数。
//
// 返回空串表示模板缺失。默认从 Go 1.22+ 的 r.Pattern 提取。
func WithRouteExtractor(fn func(*http.Request) string) Option {
	return func(c *config) {
		if fn != nil {
			c.routeExtractor = fn
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

// defaultRouteExtractor 从 http.ServeMux 的匹配模式提取路由模板。
//
// r.Pattern 形如 "GET /users/{id}" 或 "/users/{id}"，
// 方法前缀被剥离，只保留路径模板部分。
func defaultRouteExtractor(r *http.Request) string {
	pattern := r.Pattern
	if pattern == "" {
		return ""
	}
	if method, route, ok := strings.Cut(pattern, " "); ok && !strings.Contains(method, "/") {
		return route
	}
	return pattern
}
