// Package xconv 提供符合 OpenTelemetry 语义约定的属性提取。
//
// # 设计理念
//
// xconv 只包含纯函数：输入请求/响应元数据，输出标准化属性集，
// 无副作用、不阻塞、不 panic。畸形输入一律降级为省略属性，
// 绝不让提取失败影响被观测的调用本身。
//
// 两类属性：
//   - 请求期属性：在调用分发前即可确定（方法、scheme、服务端地址、路由模板等）
//   - 响应期属性：调用完成后才可确定（状态码、错误类型）
//
// # 基数控制
//
// 所有可能出现在指标标签或跨度名称中的属性都是低基数的：
// 未知 HTTP 方法归入 _OTHER 桶，路由使用模板而非原始路径，
// 原始值只保留在不参与索引的伴随属性中。
//
// # 状态分类
//
// 分类的不对称性是语义约定的硬性要求：
// 服务端导致的失败（HTTP 5xx、gRPC Internal 等）标记为跨度错误；
// 客户端导致的 4xx 与 Unimplemented 不标记为错误。
// 无法识别的状态码按保守原则归类为错误。
package xconv
