// Package xspan 管理单次调用的跨度生命周期。
//
// # 状态机
//
// 未开启 → 开启 → 关闭。Open 开启跨度并登记在途请求；
// Enrich 仅在开启状态有效；End 恰好执行一次收尾：
// 设置最终状态、追加响应期属性、结束跨度、记录指标、在途请求数减一。
//
// # 一次性收尾
//
// 重复 End 是结构性不可达的无操作而非运行时错误：整个收尾路径
// 包在一个 sync.Once 里，跨度关闭与指标记录要么全部发生一次，
// 要么（对重复调用）完全不发生。Enrich 在关闭后同样降级为无操作。
//
// # 保证式清理
//
// EndOnDone 通过 context.AfterFunc 把取消收尾挂到调用 context 上：
// 即使上游早退、再也无人触碰句柄，跨度也会以取消结局关闭、
// 在途请求数回落。这是生命周期结束的保证性副作用，不是尽力而为。
package xspan
