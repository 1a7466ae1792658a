package xotelconf

import "errors"

// 预定义错误变量，便于调用方使用 errors.Is 判断。
var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xotelconf: empty config path")
	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xotelconf: unsupported config format")
	// ErrLoadFailed 表示配置读取或解析失败。
	ErrLoadFailed = errors.New("xotelconf: load config failed")
	// ErrUnmarshalFailed 表示配置反序列化失败。
	ErrUnmarshalFailed = errors.New("xotelconf: unmarshal config failed")
	// ErrInvalidScheme 表示 scheme_fallback 不是 http/https。
	ErrInvalidScheme = errors.New("xotelconf: scheme_fallback must be http or https")
	// ErrInvalidAttributes 表示 attributes 不是 http/rpc。
	ErrInvalidAttributes = errors.New("xotelconf: attributes must be http or rpc")
)
