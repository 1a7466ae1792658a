package xconv

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// =============================================================================
// HTTP 方法规范化
// =============================================================================

// knownMethods 是语义约定的已知方法集合。
// 集合外的方法归入 _OTHER 桶以约束基数。
var knownMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodDelete:  {},
	http.MethodConnect: {},
	http.MethodOptions: {},
	http.MethodTrace:   {},
	http.MethodPatch:   {},
}

// NormalizeMethod 返回规范化后的 HTTP 方法。
// 已知方法原样返回；未知方法返回 "_OTHER" 与 false。
func NormalizeMethod(method string) (string, bool) {
	if _, ok := knownMethods[method]; ok {
		return method, true
	}
	return "_OTHER", false
}

// MethodAttrs 返回方法相关属性。
//
// 第一个返回值是低基数的 http.request.method，适合作为指标标签；
// 未知方法时第二个返回值携带原始值（http.request.method_original，
// 超长则丢弃），仅用于跨度，不参与指标。
func MethodAttrs(method string) (normalized attribute.KeyValue, original attribute.KeyValue, hasOriginal bool) {
	m, known := NormalizeMethod(method)
	normalized = attribute.String(KeyHTTPRequestMethod, m)
	if !known && method != "" && len(method) <= maxMethodLen {
		return normalized, attribute.String(KeyHTTPRequestMethodOriginal, method), true
	}
	return normalized, attribute.KeyValue{}, false
}

// =============================================================================
// url.scheme 推导
// =============================================================================

// SchemeFromHeaders 推导服务端请求的 url.scheme。
//
// 优先级：X-Forwarded-Proto > Forwarded 的 proto 参数 > fallback。
// 两个头同时存在且冲突时以 X-Forwarded-Proto 为准（与原有行为一致，
// 见 DESIGN.md）。头中只接受 http/https（大小写不敏感），其余值忽略。
func SchemeFromHeaders(h http.Header, fallback string) string {
	if proto, ok := normalizeProto(h.Get("X-Forwarded-Proto")); ok {
		return proto
	}
	if proto, ok := forwardedProto(h.Get("Forwarded")); ok {
		return proto
	}
	return fallback
}

// normalizeProto 校验并规范化协议名，仅接受 http/https。
func normalizeProto(v string) (string, bool) {
	switch {
	case strings.EqualFold(v, "http"):
		return "http", true
	case strings.EqualFold(v, "https"):
		return "https", true
	default:
		return "", false
	}
}

// forwardedProto 从标准 Forwarded 头（RFC 7239）提取 proto 参数。
//
// 头格式为逗号分隔的多代理段，每段内以分号分隔指令。
// 只取第一个出现的 proto 指令；解析失败返回 false，不报错。
func forwardedProto(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	for _, segment := range strings.Split(value, ",") {
		for _, directive := range strings.Split(segment, ";") {
			directive = strings.TrimSpace(directive)
			if len(directive) < 6 || !strings.EqualFold(directive[:6], "proto=") {
				continue
			}
			return normalizeProto(strings.Trim(directive[6:], `"`))
		}
	}
	return "", false
}

// =============================================================================
// server.address / server.port
// =============================================================================

// ServerAttrsFromHost 从服务端请求的 Host 头解析 server.address / server.port。
//
// 处理 IPv6 方括号语法；无端口时只产出地址；
// 畸形或超长输入返回空属性集，不报错。
func ServerAttrsFromHost(host string) []attribute.KeyValue {
	addr, port := splitHostPort(host)
	if addr == "" {
		return nil
	}
	attrs := []attribute.KeyValue{attribute.String(KeyServerAddress, addr)}
	if port > 0 {
		attrs = append(attrs, attribute.Int(KeyServerPort, port))
	}
	return attrs
}

// ServerAttrsFromURL 从客户端请求的目标 URL 解析 server.address / server.port。
// URL 未显式指定端口时回退到 scheme 默认端口（http=80，https=443）。
func ServerAttrsFromURL(u *url.URL) []attribute.KeyValue {
	if u == nil {
		return nil
	}
	addr, port := splitHostPort(u.Host)
	if addr == "" {
		return nil
	}
	if port <= 0 {
		switch u.Scheme {
		case "http":
			port = 80
		case "https":
			port = 443
		}
	}
	attrs := []attribute.KeyValue{attribute.String(KeyServerAddress, addr)}
	if port > 0 {
		attrs = append(attrs, attribute.Int(KeyServerPort, port))
	}
	return attrs
}

// splitHostPort 拆分 host[:port]，兼容 IPv6 方括号语法。
// 返回空地址表示输入不可用；端口缺失或非法时返回 0。
func splitHostPort(hostport string) (string, int) {
	if hostport == "" || len(hostport) > maxHostLen {
		return "", 0
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		// 无端口的裸主机名或 [IPv6]
		host = strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]")
		if host == "" || strings.ContainsAny(host, " \t") {
			return "", 0
		}
		return host, 0
	}
	if host == "" {
		return "", 0
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return host, 0
	}
	return host, port
}

// ClientAddress 从连接级对端地址解析 client.address。
//
// 仅用于显式开启对端地址能力的场景；可伪造的转发头绝不作为来源。
func ClientAddress(remoteAddr string) (attribute.KeyValue, bool) {
	addr, _ := splitHostPort(remoteAddr)
	if addr == "" {
		return attribute.KeyValue{}, false
	}
	return attribute.String(KeyClientAddress, addr), true
}

// =============================================================================
// 协议版本与响应属性
// =============================================================================

// ProtocolVersion 返回 network.protocol.version 取值。
func ProtocolVersion(major, minor int) (string, bool) {
	switch {
	case major == 0 && minor == 9:
		return "0.9", true
	case major == 1 && minor == 0:
		return "1.0", true
	case major == 1 && minor == 1:
		return "1.1", true
	case major == 2:
		return "2", true
	case major == 3:
		return "3", true
	default:
		return "", false
	}
}

// StatusCodeAttr 返回 http.response.status_code 属性。
func StatusCodeAttr(status int) attribute.KeyValue {
	return attribute.Int(KeyHTTPResponseStatusCode, status)
}

// ClassifyHTTPStatus 将 HTTP 状态码归类为跨度状态。
//
// 5xx 为跨度错误；1xx-4xx 不是错误（客户端导致的 4xx 不标错，
// 服务端与客户端跨度同一规则）。范围外的状态码按保守原则归为错误。
func ClassifyHTTPStatus(status int) (codes.Code, string) {
	switch {
	case status >= 100 && status < 500:
		return codes.Unset, ""
	case status >= 500 && status < 600:
		return codes.Error, "" // 状态码本身已在属性中，不重复写入描述
	default:
		return codes.Error, "invalid HTTP status code"
	}
}
