// Package xmeter 管理进程级的请求指标仪表。
//
// # 设计理念
//
// 仪表（计数器、时延直方图、在途请求数）在中间件构造时创建一次，
// 进程生命周期内共享，之后只做追加式记录，不再结构性修改。
// 仪表通过依赖注入传给各调用包装器，不走全局环境变量，
// 便于用假的 MeterProvider 做测试。
//
// # 记录语义
//
// End 使用 context.WithoutCancel 记录指标：请求 context 已取消或超时
// 也能正确记录，失败/超时场景的可观测性依赖这一点。
// 指标标签只允许低基数属性子集；在途请求数使用请求期即可确定的
// 标签前缀，保证加减两侧标签一致。
package xmeter
