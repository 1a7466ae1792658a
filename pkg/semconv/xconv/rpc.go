package xconv

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	grpccodes "google.golang.org/grpc/codes"
)

// =============================================================================
// RPC 方法标识解析
// =============================================================================

// ParseFullMethod 解析 gRPC 完整方法标识 "/package.Service/Method"。
//
// 前导斜杠可有可无。无分隔符的畸形标识返回 ok=false，
// 两个字段都省略，调用照常进行。
func ParseFullMethod(fullMethod string) (service, method string, ok bool) {
	name := strings.TrimPrefix(fullMethod, "/")
	service, method, ok = strings.Cut(name, "/")
	if !ok || service == "" || method == "" {
		return "", "", false
	}
	return service, method, true
}

// RPCRequestAttrs 返回 RPC 请求期属性与跨度名称。
//
// 跨度名称使用去除前导斜杠的完整方法标识；标识为空时
// 回退到固定桶 "RPC" 以约束基数。
func RPCRequestAttrs(fullMethod string) (name string, attrs []attribute.KeyValue) {
	attrs = append(attrs, attribute.String(KeyRPCSystem, "grpc"))

	name = strings.TrimPrefix(fullMethod, "/")
	if name == "" {
		name = "RPC"
	}
	if service, method, ok := ParseFullMethod(fullMethod); ok {
		attrs = append(attrs,
			attribute.String(KeyRPCService, service),
			attribute.String(KeyRPCMethod, method),
		)
	}
	return name, attrs
}

// GRPCStatusAttr 返回 rpc.grpc.status_code 属性。
func GRPCStatusAttr(code grpccodes.Code) attribute.KeyValue {
	return attribute.Int64(KeyRPCGRPCStatusCode, int64(code))
}

// =============================================================================
// gRPC 状态分类
// =============================================================================

// ClassifyGRPCCode 将 gRPC 状态码归类为跨度状态。
//
// 仅服务端导致的失败标记为跨度错误：Unknown、DeadlineExceeded、
// Internal、Unavailable、DataLoss。其余已定义状态码（包括
// Unimplemented 与全部客户端导致的状态码）不标记为错误。
// 已定义范围之外的状态码按保守原则归为错误。
func ClassifyGRPCCode(code grpccodes.Code) (codes.Code, string) {
	switch code {
	case grpccodes.Unknown,
		grpccodes.DeadlineExceeded,
		grpccodes.Internal,
		grpccodes.Unavailable,
		grpccodes.DataLoss:
		return codes.Error, code.String()
	case grpccodes.OK,
		grpccodes.Canceled,
		grpccodes.InvalidArgument,
		grpccodes.NotFound,
		grpccodes.AlreadyExists,
		grpccodes.PermissionDenied,
		grpccodes.ResourceExhausted,
		grpccodes.FailedPrecondition,
		grpccodes.Aborted,
		grpccodes.OutOfRange,
		grpccodes.Unimplemented,
		grpccodes.Unauthenticated:
		return codes.Unset, ""
	default:
		return codes.Error, "unrecognized gRPC status code"
	}
}
