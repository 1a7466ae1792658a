package xotelconf

import (
	"github.com/mattiapenati/otelware/pkg/middleware/xgin"
	"github.com/mattiapenati/otelware/pkg/middleware/xgrpc"
	"github.com/mattiapenati/otelware/pkg/middleware/xhttp"
)

// Config 是观测中间件的声明式配置。
type Config struct {
	// ServiceName 为 service.name 指标标签；空串表示不产出该标签。
	ServiceName string `koanf:"service_name"`
	// Attributes 声明本配置面向的属性集：http 或 rpc，
	// 空串表示默认值 http。
	Attributes string `koanf:"attributes"`
	// ClientAddress 开启 client.address 采集。
	ClientAddress bool `koanf:"client_address"`
	// SchemeFallback 为转发头缺失时 url.scheme 的回退值，
	// 仅接受 http/https，空串表示使用默认值 http。
	SchemeFallback string `koanf:"scheme_fallback"`
}

// Validate 校验配置取值。
func (c *Config) Validate() error {
	switch c.Attributes {
	case "", "http", "rpc":
	default:
		return ErrInvalidAttributes
	}
	switch c.SchemeFallback {
	case "", "http", "https":
		return nil
	default:
		return ErrInvalidScheme
	}
}

// HTTPOptions 把配置转换成 xhttp 选项列表。
func (c *Config) HTTPOptions() []xhttp.Option {
	opts := []xhttp.Option{xhttp.WithServiceName(c.ServiceName)}
	if c.ClientAddress {
		opts = append(opts, xhttp.WithClientAddress())
	}
	if c.SchemeFallback != "" {
		opts = append(opts, xhttp.WithSchemeFallback(c.SchemeFallback))
	}
	return opts
}

// GRPCOptions 把配置转换成 xgrpc 选项列表。
func (c *Config) GRPCOptions() []xgrpc.Option {
	opts := []xgrpc.Option{xgrpc.WithServiceName(c.ServiceName)}
	if c.ClientAddress {
		opts = append(opts, xgrpc.WithClientAddress())
	}
	return opts
}

// GinOptions 把配置转换成 xgin 选项列表。
func (c *Config) GinOptions() []xgin.Option {
	opts := []xgin.Option{xgin.WithServiceName(c.ServiceName)}
	if c.ClientAddress {
		opts = append(opts, xgin.WithClientAddress())
	}
	if c.SchemeFallback != "" {
		opts = append(opts, xgin.WithSchemeFallback(c.SchemeFallback))
	}
	return opts
}
