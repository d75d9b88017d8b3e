// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BioB3/Flight-within-USA-Displayer/src/datasource/file"
	"github.com/BioB3/Flight-within-USA-Displayer/src/storage"
)

// ====================== 邮件处理器实现 ======================

// SourceFile 需要从邮件中获取的数据源文件及其必需列
type SourceFile struct {
	Name    string   // 保存的文件名，附件名不区分大小写匹配
	Columns []string // 保存前校验的列
}

// AttachmentHandler 将目标邮件中的数据源附件保存到数据目录
type AttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	Sources       []SourceFile    // 为空时保存全部csv/xlsx附件
	ReadOptions   file.ReadOptions
	logger        *storage.Logger
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

// NewAttachmentHandler 创建附件处理器
func NewAttachmentHandler(subject, dataDir string, logger *storage.Logger, sources ...SourceFile) *AttachmentHandler {
	if logger == nil {
		logger = storage.NewNopLogger()
	}
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		Sources:       sources,
		logger:        logger,
		processedUIDs: make(map[uint32]bool),
	}
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *AttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Query 按目标主题搜索，只需要配置的数据源附件
func (h *AttachmentHandler) Query() MailQuery {
	q := MailQuery{Subject: h.TargetSubject}
	for _, s := range h.Sources {
		q.Attachments = append(q.Attachments, s.Name)
	}
	return q
}

// staged 已校验、等待写入的附件
type staged struct {
	name string
	att  *Attachment
}

// Handle 处理单个邮件
// 全部附件校验通过且配置的数据源齐全后才写入，写入时先落临时文件再统一改名，
// 任何一步失败都不会改动已有的数据源
func (h *AttachmentHandler) Handle(email *Email) ([]string, error) {
	if email == nil || h.IsProcessed(email.UID) {
		return nil, nil
	}

	if !strings.Contains(strings.ToLower(email.Subject), strings.ToLower(h.TargetSubject)) {
		h.logger.Debug("跳过主题不匹配的邮件: " + email.Subject)
		return nil, nil
	}

	h.logger.Info(fmt.Sprintf("处理邮件: %s 发件人: %s 日期: %s",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05")))

	files, err := h.stage(email.Attachments)
	if err != nil || len(files) == 0 {
		return nil, err
	}

	saved, err := h.commit(files)
	if err != nil {
		return saved, err
	}
	h.markAsProcessed(email.UID)
	return saved, nil
}

// stage 选出并校验数据源附件，配置了Sources时要求每个数据源都存在
func (h *AttachmentHandler) stage(attachments []*Attachment) ([]staged, error) {
	var files []staged
	seen := make(map[string]bool)
	for _, attachment := range attachments {
		if !isSourceFile(attachment.Filename) {
			continue
		}

		name := filepath.Base(attachment.Filename)
		if len(h.Sources) > 0 {
			src, ok := h.match(name)
			if !ok {
				h.logger.Debug("跳过无关附件: " + name)
				continue
			}
			if err := attachment.Validate(h.ReadOptions, src.Columns...); err != nil {
				return nil, err
			}
			name = src.Name
		}
		if seen[strings.ToLower(name)] {
			h.logger.Warning("忽略重复的附件: " + attachment.Filename)
			continue
		}
		seen[strings.ToLower(name)] = true
		files = append(files, staged{name: name, att: attachment})
	}

	var missing []string
	for _, s := range h.Sources {
		if !seen[strings.ToLower(s.Name)] {
			missing = append(missing, s.Name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("邮件缺少数据源附件: %v", missing)
	}
	return files, nil
}

// commit 先把全部附件写入数据目录下的临时文件，都成功后再依次改名覆盖
func (h *AttachmentHandler) commit(files []staged) ([]string, error) {
	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	temps := make([]string, 0, len(files))
	cleanup := func() {
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}
	for _, f := range files {
		tmp, err := writeTemp(h.DataDir, f.name, f.att.Content)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("保存附件失败: %w", err)
		}
		temps = append(temps, tmp)
	}

	var saved []string
	for i, f := range files {
		filePath := filepath.Join(h.DataDir, f.name)
		if err := os.Rename(temps[i], filePath); err != nil {
			temps = temps[i:]
			cleanup()
			return saved, fmt.Errorf("保存附件失败: %w", err)
		}
		h.logger.Info("附件已保存到: " + filePath)
		saved = append(saved, filePath)
	}
	return saved, nil
}

func writeTemp(dir, name string, content []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+"-*")
	if err != nil {
		return "", err
	}
	_, err = f.Write(content)
	if err == nil {
		err = f.Chmod(0644)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (h *AttachmentHandler) match(name string) (SourceFile, bool) {
	for _, s := range h.Sources {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return SourceFile{}, false
}

func isSourceFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}
