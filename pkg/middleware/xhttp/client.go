package xhttp

import (
	"fmt"
	"net/http"

	"github.com/mattiapenati/otelware/internal/httpcore"
	"github.com/mattiapenati/otelware/pkg/telemetry/xmeter"
)

// Transport 是 HTTP 客户端观测包装，实现 http.RoundTripper。
//
// 构造一次后并发安全。
type Transport struct {
	core *httpcore.Core
	base http.RoundTripper
}

// NewTransport 创建客户端观测包装。base 为 nil 时使用 http.DefaultTransport。
func NewTransport(base http.RoundTripper, opts ...Option) (*Transport, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if base == nil {
		base = http.DefaultTransport
	}

	instruments, err := xmeter.NewHTTPClient(cfg.meterProvider.Meter(scopeName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitInstruments, err)
	}

	return &Transport{
		core: &httpcore.Core{
			ServiceName: cfg.serviceName,
			Tracer:      cfg.tracerProvider.Tracer(scopeName),
			Instruments: instruments,
			Propagator:  cfg.propagator,
			Logger:      cfg.logger,
		},
		base: base,
	}, nil
}

// RoundTrip 为每次调用开启客户端跨度、注入传播上下文并按结果收尾。
//
// 注入发生在请求副本上，调用方持有的原始请求不被修改。
// 拿到响应头即收尾（不等待响应体读完），传输层错误以错误结局收尾。
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	req, h := t.core.StartClient(r)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		httpcore.FinishError(h, err)
		return nil, err
	}

	httpcore.FinishStatus(h, resp.StatusCode, resp.ContentLength)
	return resp, nil
}
