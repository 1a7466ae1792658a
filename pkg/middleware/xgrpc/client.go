package xgrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mattiapenati/otelware/pkg/semconv/xconv"
	"github.com/mattiapenati/otelware/pkg/telemetry/xmeter"
	"github.com/mattiapenati/otelware/pkg/telemetry/xspan"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client 是 gRPC 客户端观测拦截器的工厂。
//
// 构造一次后并发安全，Unary 与 Stream 共享同一组指标仪表。
type Client struct {
	serviceName string
	tracer      trace.Tracer
	instruments *xmeter.Instruments
	propagator  propagation.TextMapPropagator
	logger      *slog.Logger
}

// NewClient 创建客户端拦截器工厂。
func NewClient(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	instruments, err := xmeter.NewRPCClient(cfg.meterProvider.Meter(scopeName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitInstruments, err)
	}

	return &Client{
		serviceName: cfg.serviceName,
		tracer:      cfg.tracerProvider.Tracer(scopeName),
		instruments: instruments,
		propagator:  cfg.propagator,
		logger:      cfg.logger,
	}, nil
}

// Unary 返回一元调用拦截器。
func (c *Client) Unary() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, h := c.start(ctx, method)
		err := invoker(ctx, method, req, reply, cc, opts...)
		finish(h, err)
		return err
	}
}

// Stream 返回流式调用拦截器。
//
// 流的生命周期由调用方驱动，收尾时机有三种：RecvMsg 返回 io.EOF
// （正常结束）、流错误（按状态码分类）、调用方弃流（context 取消钩子
// 兜底，以取消结局收尾）。三者经由一次性收尾互斥，恰好一个生效。
func (c *Client) Stream() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx, h := c.start(ctx, method)

		stream, err := streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			finish(h, err)
			return nil, err
		}

		h.EndOnDone(ctx, canceledOutcome())
		return &clientStream{
			ClientStream:  stream,
			handle:        h,
			serverStreams: desc.ServerStreams,
		}, nil
	}
}

// start 装配属性、开启客户端跨度并把传播上下文注入出站 metadata。
func (c *Client) start(ctx context.Context, fullMethod string) (context.Context, *xspan.Handle) {
	name, attrs := xconv.RPCRequestAttrs(fullMethod)
	if c.serviceName != "" {
		attrs = append(attrs, attribute.String(xconv.KeyServiceName, c.serviceName))
	}

	ctx, h := xspan.Open(ctx, xspan.Config{
		Tracer:      c.tracer,
		Name:        name,
		Kind:        trace.SpanKindClient,
		Attrs:       attrs,
		MetricAttrs: attrs,
		ActiveLen:   len(attrs),
		Recorder:    c.instruments,
		RequestSize: -1,
		Logger:      c.logger,
	})

	if c.propagator != nil {
		md, ok := metadata.FromOutgoingContext(ctx)
		if ok {
			md = md.Copy()
		} else {
			md = metadata.MD{}
		}
		c.propagator.Inject(ctx, metadataCarrier(md))
		ctx = metadata.NewOutgoingContext(ctx, md)
	}
	return ctx, h
}

// clientStream 包装 ClientStream，在流结束时收尾跨度。
type clientStream struct {
	grpc.ClientStream
	handle        *xspan.Handle
	serverStreams bool
}

func (s *clientStream) RecvMsg(m any) error {
	err := s.ClientStream.RecvMsg(m)
	switch {
	case errors.Is(err, io.EOF):
		// 服务端流正常耗尽。
		finish(s.handle, nil)
	case err != nil:
		finish(s.handle, err)
	case !s.serverStreams:
		// 一元响应流：首个消息即最后一个消息。
		finish(s.handle, nil)
	}
	return err
}

func (s *clientStream) SendMsg(m any) error {
	err := s.ClientStream.SendMsg(m)
	if err != nil && !errors.Is(err, io.EOF) {
		// io.EOF 表示流已被服务端终止，真实状态由随后的 RecvMsg 给出。
		finish(s.handle, err)
	}
	return err
}
