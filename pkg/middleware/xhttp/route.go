package xhttp

import (
	"context"
	"net/http"
)

type routeCtxKey struct{}

// ContextWithRoute 把路由模板放进 context，优先于 RouteExtractor 的结果。
//
// 供不暴露匹配模式的路由框架在匹配后、进入处理器前调用。
// route 必须是低基数模板（如 /users/{id}），绝不能是原始路径。
func ContextWithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeCtxKey{}, route)
}

// routeFromRequest 解析本次请求的路由模板，空串表示缺失。
func routeFromRequest(r *http.Request, extractor func(*http.Request) string) string {
	if route, ok := r.Context().Value(routeCtxKey{}).(string); ok && route != "" {
		return route
	}
	if extractor != nil {
		return extractor(r)
	}
	return ""
}
