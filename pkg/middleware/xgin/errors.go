package xgin

import "errors"

// 预定义错误变量，便于调用方使用 errors.Is 判断。
var (
	// ErrInitInstruments 表示指标仪表创建失败。
	ErrInitInstruments = errors.New("xgin: init metric instruments")
)
