// Package xotelconf 提供观测中间件的声明式配置加载。
//
// 配置可来自 YAML/JSON 文件或原始字节（K8s ConfigMap 等场景），
// 经校验后转换成 xhttp / xgrpc / xgin 的选项列表：
//
//	cfg, err := xotelconf.Load("observability.yaml")
//	if err != nil { ... }
//	srv, err := xhttp.NewServer(cfg.HTTPOptions()...)
//
// 配置只覆盖可声明的维度（服务名、对端地址开关、协议回退值）；
// Provider、传播器、logger 属于运行期对象，仍由代码注入。
package xotelconf
