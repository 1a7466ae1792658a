package xconv

// 语义约定属性名。
//
// 固定的版本化词汇表，跨度与指标共用。
// 这里不引入完整的 semconv 生成包，本仓库只使用以下子集。
const (
	KeyHTTPRequestMethod         = "http.request.method"
	KeyHTTPRequestMethodOriginal = "http.request.method_original"
	KeyHTTPResponseStatusCode    = "http.response.status_code"
	KeyHTTPRoute                 = "http.route"

	KeyURLScheme = "url.scheme"
	KeyURLPath   = "url.path"
	KeyURLQuery  = "url.query"
	KeyURLFull   = "url.full"

	KeyServerAddress = "server.address"
	KeyServerPort    = "server.port"
	KeyClientAddress = "client.address"

	KeyNetworkProtocolName    = "network.protocol.name"
	KeyNetworkProtocolVersion = "network.protocol.version"

	KeyRPCSystem         = "rpc.system"
	KeyRPCService        = "rpc.service"
	KeyRPCMethod         = "rpc.method"
	KeyRPCGRPCStatusCode = "rpc.grpc.status_code"

	KeyErrorType   = "error.type"
	KeyServiceName = "service.name"
)

// 输入长度上限。
//
// Header 值视为不可信输入，超限即整体丢弃而非截断后使用，
// 避免攻击者控制的超长值进入属性集。
const (
	maxMethodLen = 64
	maxHostLen   = 256
)

// ErrorTypeCanceled 是取消结局使用的 error.type 取值。
const ErrorTypeCanceled = "canceled"
