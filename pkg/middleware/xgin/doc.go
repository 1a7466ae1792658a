// Package xgin 提供 Gin 框架的 HTTP 服务端观测中间件。
//
// 与 xhttp 共用同一套观测内核：属性装配、跨度生命周期、指标
// 记录的语义完全一致。差异只有路由来源：模板取自 c.FullPath()，
// 未注册路由返回空串时跨度名称退回 "HTTP"。
//
// # 使用示例
//
//	mw, err := xgin.Middleware(xgin.WithServiceName("orders"))
//	if err != nil { ... }
//	r := gin.New()
//	r.Use(mw)
package xgin
