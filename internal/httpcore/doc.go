// Package httpcore 是 xhttp 与 xgin 共用的 HTTP 观测内核：
// 请求期属性装配、跨度开启、结局收尾。
//
// 属性装配与分类故障在此统一隔离：提取代码 panic 只会丢掉
// 本次调用的部分遥测，绝不影响被包装的调用。
package httpcore
