// Package xhttp 提供 net/http 的服务端与客户端观测中间件。
//
// # 服务端
//
// NewServer 构造一次、Middleware 包装任意 http.Handler：
// 每次请求开启服务端跨度、登记在途请求，处理结束后按状态码分类收尾。
// 路由模板来自 Go 1.22+ 的 r.Pattern，或由路由框架通过
// ContextWithRoute 显式提供；模板缺失时跨度名称退回 "HTTP"，
// 原始路径绝不进入跨度名称。
//
// # 客户端
//
// NewTransport 包装 http.RoundTripper：每次调用开启客户端跨度、
// 把传播上下文注入请求头副本（原始请求不被修改），拿到响应头后
// 按状态码收尾；传输层错误以错误结局收尾。
//
// # 故障隔离
//
// 观测路径的任何故障（属性装配 panic、仪表故障）最多丢掉本次
// 调用的部分遥测，绝不影响被包装的调用。处理器自身的 panic
// 以错误结局收尾后原样重新抛出。
//
// # 使用示例
//
//	srv, err := xhttp.NewServer(xhttp.WithServiceName("orders"))
//	if err != nil { ... }
//	http.ListenAndServe(":8080", srv.Middleware(mux))
package xhttp
