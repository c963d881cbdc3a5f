package server

import (
	"fmt"
	"net/http"
)

// handleLogs 实时日志流
// 先订阅再返回响应头, 客户端收到响应头之后的日志都不会丢。
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	// 创建日志订阅通道
	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	// 设置响应头
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			// 写入失败说明客户端已断开
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}
