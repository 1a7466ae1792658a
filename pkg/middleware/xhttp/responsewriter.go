package xhttp

import "net/http"

// responseWriter 包装 http.ResponseWriter，记录状态码与响应字节数。
//
// status 为 0 表示处理器从未显式写入状态码。
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

// Flush 透传流式刷写能力。
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		if w.status == 0 {
			w.status = http.StatusOK
		}
		f.Flush()
	}
}

// Unwrap 支持 http.ResponseController 访问底层 writer。
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
