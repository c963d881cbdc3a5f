// email_handler.go
package email

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"BookingInsight/src/datasource/file"
	"BookingInsight/src/processor"
	"BookingInsight/src/storage"

	"github.com/go-gota/gota/dataframe"
)

// ====================== 邮件处理器实现 ======================

// DatasetExtensions 可以作为数据集的附件类型
var DatasetExtensions = []string{".csv", ".xlsx"}

// DatasetHandler 把主题匹配的邮件中的数据集附件保存到数据目录
// 只保存能读出来并且能完成清洗的附件。
type DatasetHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
	logger        *storage.Logger
}

func NewDatasetHandler(subject, dataDir string, logger *storage.Logger) *DatasetHandler {
	return &DatasetHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
		logger:        logger,
	}
}

// IsProcessed 检查邮件是否已处理过
func (h *DatasetHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *DatasetHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 保存数据集附件, 每个UID只处理一次
func (h *DatasetHandler) Handle(email *Email) ([]string, error) {
	if h.IsProcessed(email.UID) {
		return nil, nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		h.logger.Debug(fmt.Sprintf("跳过主题不匹配的邮件: %s", email.Subject))
		return nil, nil
	}

	h.logger.Info(fmt.Sprintf("处理邮件: %s 发件人: %s 日期: %s",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05")))

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	var saved []string
	for _, attachment := range email.Attachments {
		if !isDataset(attachment.Filename) {
			continue
		}
		// 读不出来的附件不能覆盖正在使用的数据集
		if err := validateDataset(attachment); err != nil {
			h.logger.Warning(fmt.Sprintf("附件 %s 不是有效的数据集: %v", attachment.Filename, err))
			continue
		}
		// 只取文件名, 防止附件名里带路径
		filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))
		if err := writeFileAtomic(filePath, attachment.Content); err != nil {
			return saved, fmt.Errorf("保存附件失败: %w", err)
		}
		h.logger.Info("附件已保存到: " + filePath)
		saved = append(saved, filePath)
	}

	// 没有数据集附件的邮件也不再重复检查
	h.markAsProcessed(email.UID)
	return saved, nil
}

func isDataset(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range DatasetExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// validateDataset 按数据集读取附件并试清洗一遍, 缺列或数值有误的附件不能落盘
func validateDataset(att *Attachment) error {
	var (
		df  dataframe.DataFrame
		err error
	)
	switch strings.ToLower(filepath.Ext(att.Filename)) {
	case ".csv":
		df, err = file.ReadCSV(bytes.NewReader(att.Content), file.LoadOptions{})
	case ".xlsx":
		df, err = file.ReadXLSXBytes(att.Content, file.LoadOptions{})
	default:
		return fmt.Errorf("不支持的附件类型: %s", att.Filename)
	}
	if err != nil {
		return err
	}
	_, _, err = processor.Clean(df)
	return err
}

// writeFileAtomic 先写同目录临时文件再改名, 读者不会看到写了一半的数据集
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
