package xgin

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/mattiapenati/otelware/internal/httpcore"
	"github.com/mattiapenati/otelware/pkg/telemetry/xmeter"
)

// Middleware 创建 Gin 观测中间件。
//
// 每次请求开启服务端跨度与指标观测，路由模板取自 c.FullPath()。
// 处理器 panic 以错误结局收尾后原样重新抛出，交给 gin.Recovery
// 或调用方自己的恢复中间件处理。
func Middleware(opts ...Option) (gin.HandlerFunc, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	instruments, err := xmeter.NewHTTPServer(cfg.meterProvider.Meter(scopeName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitInstruments, err)
	}

	core := &httpcore.Core{
		ServiceName:    cfg.serviceName,
		Tracer:         cfg.tracerProvider.Tracer(scopeName),
		Instruments:    instruments,
		Propagator:     cfg.propagator,
		SchemeFallback: cfg.schemeFallback,
		ClientAddress:  cfg.clientAddress,
		Logger:         cfg.logger,
	}

	return func(c *gin.Context) {
		ctx, h := core.StartServer(c.Request, c.FullPath())
		c.Request = c.Request.WithContext(ctx)

		defer func() {
			if rec := recover(); rec != nil {
				httpcore.FinishError(h, fmt.Errorf("panic: %v", rec))
				panic(rec)
			}
			switch {
			case !c.Writer.Written() && c.Request.Context().Err() != nil:
				httpcore.FinishCanceled(h)
			default:
				size := int64(c.Writer.Size())
				if size < 0 {
					size = -1
				}
				httpcore.FinishStatus(h, c.Writer.Status(), size)
			}
		}()

		c.Next()
	}, nil
}
