// Package xgrpc 提供 gRPC 的服务端与客户端观测拦截器。
//
// # 服务端
//
// NewServer 构造一次，Unary/Stream 返回标准拦截器：
// 每次调用从入站 metadata 提取传播上下文、开启服务端跨度，
// 处理结束后按 gRPC 状态码分类收尾。
//
// # 客户端
//
// NewClient 构造一次，Unary/Stream 返回标准拦截器：
// 开启客户端跨度、把传播上下文注入出站 metadata 副本。
// 流式调用在流结束（io.EOF、流错误）时收尾；调用方弃流早退时
// 由挂在 context 上的取消钩子兜底收尾，在途请求数保证回落。
//
// # 状态分类
//
// 仅服务端导致的失败标记跨度错误（Unknown、DeadlineExceeded、
// Internal、Unavailable、DataLoss）；Unimplemented 与客户端导致的
// 状态码不标错。完整 rpc.grpc.status_code 始终作为属性产出。
//
// # 使用示例
//
//	srv, err := xgrpc.NewServer(xgrpc.WithServiceName("orders"))
//	if err != nil { ... }
//	grpc.NewServer(
//		grpc.ChainUnaryInterceptor(srv.Unary()),
//		grpc.ChainStreamInterceptor(srv.Stream()),
//	)
package xgrpc
