package xgrpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattiapenati/otelware/pkg/semconv/xconv"
	"github.com/mattiapenati/otelware/pkg/telemetry/xmeter"
	"github.com/mattiapenati/otelware/pkg/telemetry/xspan"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Server 是 gRPC 服务端观测拦截器的工厂。
//
// 构造一次后并发安全，Unary 与 Stream 共享同一组指标仪表。
type Server struct {
	serviceName   string
	tracer        trace.Tracer
	instruments   *xmeter.Instruments
	propagator    propagation.TextMapPropagator
	clientAddress bool
	logger        *slog.Logger
}

// NewServer 创建服务端拦截器工厂。
func NewServer(opts ...Option) (*Server, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	instruments, err := xmeter.NewRPCServer(cfg.meterProvider.Meter(scopeName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitInstruments, err)
	}

	return &Server{
		serviceName:   cfg.serviceName,
		tracer:        cfg.tracerProvider.Tracer(scopeName),
		instruments:   instruments,
		propagator:    cfg.propagator,
		clientAddress: cfg.clientAddress,
		logger:        cfg.logger,
	}, nil
}

// Unary 返回一元调用拦截器。
func (s *Server) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		ctx, h := s.start(ctx, info.FullMethod)
		defer func() {
			if rec := recover(); rec != nil {
				finish(h, status.Errorf(grpccodes.Internal, "panic: %v", rec))
				panic(rec)
			}
			finish(h, err)
		}()

		return handler(ctx, req)
	}
}

// Stream 返回流式调用拦截器。
//
// 收尾发生在 handler 返回时：此刻流已结束，状态码已确定。
func (s *Server) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		ctx, h := s.start(ss.Context(), info.FullMethod)
		defer func() {
			if rec := recover(); rec != nil {
				finish(h, status.Errorf(grpccodes.Internal, "panic: %v", rec))
				panic(rec)
			}
			finish(h, err)
		}()

		return handler(srv, &serverStream{ServerStream: ss, ctx: ctx})
	}
}

// start 提取传播上下文、装配属性并开启服务端跨度。
func (s *Server) start(ctx context.Context, fullMethod string) (context.Context, *xspan.Handle) {
	if s.propagator != nil {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			ctx = s.propagator.Extract(ctx, metadataCarrier(md))
		}
	}

	name, attrs := xconv.RPCRequestAttrs(fullMethod)
	if s.serviceName != "" {
		attrs = append(attrs, attribute.String(xconv.KeyServiceName, s.serviceName))
	}

	// client.address 是高基数属性，只进跨度、不进指标标签。
	spanAttrs := attrs
	if s.clientAddress {
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			if addr, ok := xconv.ClientAddress(p.Addr.String()); ok {
				spanAttrs = append(attrs[:len(attrs):len(attrs)], addr)
			}
		}
	}

	return xspan.Open(ctx, xspan.Config{
		Tracer:      s.tracer,
		Name:        name,
		Kind:        trace.SpanKindServer,
		Attrs:       spanAttrs,
		MetricAttrs: attrs,
		ActiveLen:   len(attrs),
		Recorder:    s.instruments,
		RequestSize: -1,
		Logger:      s.logger,
	})
}

// serverStream 包装 ServerStream，让 handler 看到携带跨度的 context。
type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *serverStream) Context() context.Context { return s.ctx }

// finish 按调用结果收尾：状态码解析、分类、完整状态码属性落盘。
func finish(h *xspan.Handle, err error) {
	code := statusCode(err)
	spanCode, desc := xconv.ClassifyGRPCCode(code)
	h.End(xspan.Outcome{
		Status:       spanCode,
		Desc:         desc,
		Err:          err,
		Attrs:        []attribute.KeyValue{xconv.GRPCStatusAttr(code)},
		ResponseSize: -1,
	})
}

// canceledOutcome 返回弃流兜底收尾用的取消结局。
func canceledOutcome() xspan.Outcome {
	return xspan.Canceled(xconv.GRPCStatusAttr(grpccodes.Canceled))
}

// statusCode 从错误解析 gRPC 状态码。
//
// 非 status 错误按 context 取消/超时归类，其余归入 Unknown。
func statusCode(err error) grpccodes.Code {
	if err == nil {
		return grpccodes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return grpccodes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return grpccodes.DeadlineExceeded
	}
	return grpccodes.Unknown
}
