// monitor.go
package file

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控数据目录，数据文件被覆盖写入时触发回调
// 邮件附件保存和人工替换文件走同一条通知路径
type FileMonitor struct {
	watchDir string
	watcher  *fsnotify.Watcher
	lastMod  time.Time
	mu       sync.Mutex
}

func NewFileMonitor(dir string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileMonitor{
		watchDir: dir,
		watcher:  watcher,
	}, nil
}

// Watch 阻塞监听，targetFile为空时任何文件的写入都触发handler
func (m *FileMonitor) Watch(targetFile string, handler func(string)) error {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if targetFile != "" && filepath.Base(event.Name) != filepath.Base(targetFile) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}

			m.mu.Lock()
			if info.ModTime().After(m.lastMod) {
				m.lastMod = info.ModTime()
				go handler(event.Name)
			}
			m.mu.Unlock()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
