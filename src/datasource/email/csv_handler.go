// csv_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"PostsAnalytics/src/storage"
)

// CSVAttachmentHandler 把导出邮件里的CSV附件落盘到数据目录
// 落盘会触发文件监控，由监控一侧完成缓存失效和重载
type CSVAttachmentHandler struct {
	TargetSubject string
	DataDir       string
	processedUIDs map[uint32]bool
	mu            sync.RWMutex
}

func NewCSVAttachmentHandler(subject, dataDir string) *CSVAttachmentHandler {
	return &CSVAttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
	}
}

func (h *CSVAttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *CSVAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 处理单封导出邮件，同一UID只处理一次
func (h *CSVAttachmentHandler) Handle(e *Email, logger *storage.Logger) error {
	if e == nil || h.isProcessed(e.UID) {
		return nil
	}

	if !strings.Contains(e.Subject, h.TargetSubject) {
		logger.Debug("跳过主题不匹配的邮件: " + e.Subject)
		return nil
	}

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}

	saved := false
	for _, attachment := range e.Attachments {
		ext := strings.ToLower(filepath.Ext(attachment.Filename))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		filePath := filepath.Join(h.DataDir, attachment.Filename)
		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return fmt.Errorf("保存附件失败: %w", err)
		}

		logger.Info("附件已保存到: " + filePath)
		saved = true
	}

	// 只有真正落盘了导出文件才记为已处理
	if saved {
		h.markAsProcessed(e.UID)
	}
	return nil
}
