// monitor.go
package file

import (
	"BookingInsight/src/storage"
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控数据集文件, 文件被改写或替换后回调
type FileMonitor struct {
	watchDir string
	target   string
	watcher  *fsnotify.Watcher
	logger   *storage.Logger
	lastMod  time.Time
	mu       sync.Mutex
}

// NewFileMonitor 监控 path 所在目录, 只关心 path 本身的变化
// 编辑器和邮件附件落盘通常是"写临时文件再改名", 所以要监控目录而不是文件。
func NewFileMonitor(path string, logger *storage.Logger) (*FileMonitor, error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(target)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	m := &FileMonitor{
		watchDir: dir,
		target:   target,
		watcher:  watcher,
		logger:   logger,
	}
	if info, err := os.Stat(target); err == nil {
		m.lastMod = info.ModTime()
	}
	return m, nil
}

// Watch 阻塞直到 ctx 结束或 watcher 关闭, 每次检测到新版本调用一次 handler
// watcher 报告的错误(如事件队列溢出)只记日志, 不中断监控。
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != m.target {
				continue
			}
			info, err := os.Stat(name)
			if err != nil {
				continue
			}

			m.mu.Lock()
			changed := info.ModTime().After(m.lastMod) || event.Has(fsnotify.Create)
			if changed {
				m.lastMod = info.ModTime()
			}
			m.mu.Unlock()

			if changed {
				handler(name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warning("文件监控出错: " + err.Error())
		}
	}
}

// Close 停止监控
func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
