package xmeter

import "errors"

// New* 构造函数返回的错误。
var (
	// ErrCreateCounter 表示创建计数器失败。
	ErrCreateCounter = errors.New("xmeter: create counter failed")
	// ErrCreateHistogram 表示创建直方图失败。
	ErrCreateHistogram = errors.New("xmeter: create histogram failed")
	// ErrCreateUpDownCounter 表示创建在途请求计数器失败。
	ErrCreateUpDownCounter = errors.New("xmeter: create up-down counter failed")
	// ErrNilMeter 表示传入了 nil Meter。
	ErrNilMeter = errors.New("xmeter: nil meter")
)
