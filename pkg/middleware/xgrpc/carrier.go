package xgrpc

import (
	"google.golang.org/grpc/metadata"
)

// metadataCarrier 把 gRPC metadata 适配成传播器的文本载体。
//
// metadata 键为小写，Get 只取首个值，与 gRPC 自身的读取习惯一致。
type metadataCarrier metadata.MD

func (c metadataCarrier) Get(key string) string {
	values := metadata.MD(c).Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (c metadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
