package xhttp

import (
	"fmt"
	"net/http"

	"github.com/mattiapenati/otelware/internal/httpcore"
	"github.com/mattiapenati/otelware/pkg/semconv/xconv"
	"github.com/mattiapenati/otelware/pkg/telemetry/xmeter"

	"go.opentelemetry.io/otel/attribute"
)

// Server 是 HTTP 服务端观测中间件。
//
// 构造一次后并发安全，可包装任意数量的 Handler。
type Server struct {
	core           *httpcore.Core
	routeExtractor func(*http.Request) string
}

// NewServer 创建服务端中间件。
func NewServer(opts ...Option) (*Server, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	instruments, err := xmeter.NewHTTPServer(cfg.meterProvider.Meter(scopeName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitInstruments, err)
	}

	return &Server{
		core: &httpcore.Core{
			ServiceName:    cfg.serviceName,
			Tracer:         cfg.tracerProvider.Tracer(scopeName),
			Instruments:    instruments,
			Propagator:     cfg.propagator,
			SchemeFallback: cfg.schemeFallback,
			ClientAddress:  cfg.clientAddress,
			Logger:         cfg.logger,
		},
		routeExtractor: cfg.routeExtractor,
	}, nil
}

// Middleware 包装 next，为每次请求提供跨度与指标观测。
//
// 收尾恰好一次：正常返回按状态码分类，处理器 panic 以错误结局
// 收尾后原样重新抛出，调用方早退且无响应写入时按取消收尾。
//
// ServeMux 的路由匹配发生在 next 内部，因此 r.Pattern 在开启时
// 通常为空：跨度先以回退名称开启，分发返回后若模板可知再改写
// 名称并把 http.route 补进响应期属性。
func (s *Server) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeFromRequest(r, s.routeExtractor)
		ctx, h := s.core.StartServer(r, route)
		rw := &responseWriter{ResponseWriter: w}
		inner := r.WithContext(ctx)

		defer func() {
			var lateAttrs []attribute.KeyValue
			if route == "" {
				// ServeMux 在分发中就地填充 r.Pattern。
				if late := routeFromRequest(inner, s.routeExtractor); late != "" {
					h.SetName(late)
					lateAttrs = append(lateAttrs, attribute.String(xconv.KeyHTTPRoute, late))
				}
			}

			if rec := recover(); rec != nil {
				httpcore.FinishError(h, fmt.Errorf("panic: %v", rec))
				panic(rec)
			}
			switch {
			case rw.status != 0:
				httpcore.FinishStatus(h, rw.status, rw.bytes, lateAttrs...)
			case r.Context().Err() != nil:
				// 处理器因取消早退且从未写响应。
				httpcore.FinishCanceled(h)
			default:
				// 处理器返回且未显式写状态，net/http 隐式发送 200。
				httpcore.FinishStatus(h, http.StatusOK, rw.bytes, lateAttrs...)
			}
		}()

		next.ServeHTTP(rw, inner)
	})
}
