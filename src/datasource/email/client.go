// client.go
package email

import (
	// 标准库导入
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	// 第三方库导入
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset" // 注册GBK等字符集，用于解码主题和附件名
	"github.com/emersion/go-message/mail"

	// 项目内部导入
	"github.com/BioB3/Flight-within-USA-Displayer/src/storage"
)

/******************** 常量定义 ********************/
const (
	MaxFetchMessages   = 20             // 单次最多获取的数据集邮件数量
	FetchBufferSize    = 4              // 邮件获取通道缓冲区大小
	RecentMailDuration = 24 * time.Hour // 未配置时只搜索这段时间内的邮件
)

/******************** 接口定义 ********************/

// MailService 邮件服务核心接口
type MailService interface {
	Connect() error
	Disconnect()

	// FetchDatasetEmails 在服务器端按主题搜索未读邮件，只返回需要的附件
	FetchDatasetEmails(q MailQuery) ([]*Email, error)
}

// EmailHandler 邮件处理器接口
type EmailHandler interface {
	// Query 处理器关心的邮件主题和附件
	Query() MailQuery

	// Handle 处理单个邮件，返回保存的文件路径
	Handle(email *Email) ([]string, error)
}

/******************** 数据结构 ********************/

// MailQuery 数据集邮件的搜索条件
type MailQuery struct {
	Subject     string   // 主题包含的关键词，由服务器匹配
	Attachments []string // 需要的附件名(不区分大小写)，为空时保留全部csv/xlsx附件
}

// wants 附件是否属于需要的数据源
func (q MailQuery) wants(filename string) bool {
	name := filepath.Base(filename)
	if len(q.Attachments) == 0 {
		return isSourceFile(name)
	}
	for _, a := range q.Attachments {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// Email 数据集邮件
type Email struct {
	UID         uint32
	Date        time.Time
	From        string
	Subject     string
	Attachments []*Attachment // 只包含MailQuery需要的附件
}

// Attachment 邮件附件
type Attachment struct {
	Filename string
	Content  []byte
}

/******************** 邮件客户端实现 ********************/

// EmailClient IMAP邮件客户端
type EmailClient struct {
	server    string
	username  string
	password  string
	since     time.Duration   // 只搜索这段时间内的邮件
	logger    *storage.Logger // 单封邮件解析失败时记录日志
	client    *client.Client
	mu        sync.Mutex
	connected bool
}

// NewEmailClient 创建邮件客户端，since<=0时使用RecentMailDuration，logger为nil时丢弃日志
func NewEmailClient(server, username, password string, since time.Duration, logger *storage.Logger) *EmailClient {
	if since <= 0 {
		since = RecentMailDuration
	}
	if logger == nil {
		logger = storage.NewNopLogger()
	}
	return &EmailClient{
		server:   server,
		username: username,
		password: password,
		since:    since,
		logger:   logger,
	}
}

// Connect 建立TLS连接并登录，已有连接可用时直接返回
func (s *EmailClient) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == "" {
		return fmt.Errorf("未配置邮件服务器")
	}
	if s.connected {
		if _, err := s.client.Capability(); err == nil {
			return nil
		}
		s.client.Logout()
		s.client, s.connected = nil, false
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}
	if err := c.Login(s.username, s.password); err != nil {
		c.Logout()
		return fmt.Errorf("登录失败: %w", err)
	}

	s.client, s.connected = c, true
	return nil
}

// Disconnect 退出登录
func (s *EmailClient) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Logout()
		s.client = nil
	}
	s.connected = false
}

// searchCriteria 未读、时间范围内且主题包含关键词的邮件
func searchCriteria(q MailQuery, since time.Time) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = since
	if q.Subject != "" {
		criteria.Header.Add("Subject", q.Subject)
	}
	return criteria
}

// FetchDatasetEmails 按UID搜索并获取数据集邮件，没有需要的附件的邮件被跳过
func (s *EmailClient) FetchDatasetEmails(q MailQuery) ([]*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, fmt.Errorf("未连接到邮件服务器")
	}
	if _, err := s.client.Select(imap.InboxName, false); err != nil {
		return nil, fmt.Errorf("选择邮箱失败: %w", err)
	}

	uids, err := s.client.UidSearch(searchCriteria(q, time.Now().Add(-s.since)))
	if err != nil {
		return nil, fmt.Errorf("搜索邮件失败: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > MaxFetchMessages {
		uids = uids[len(uids)-MaxFetchMessages:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, FetchBufferSize)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqset, items, messages)
	}()

	var emails []*Email
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			continue
		}
		email, err := ParseMessage(msg.Uid, r, q)
		if err != nil {
			s.logger.Warning(fmt.Sprintf("解析邮件失败(UID:%d): %v", msg.Uid, err))
			continue
		}
		if len(email.Attachments) == 0 {
			s.logger.Debug(fmt.Sprintf("邮件没有数据源附件(UID:%d)", msg.Uid))
			continue
		}
		emails = append(emails, email)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("获取邮件内容失败: %w", err)
	}
	return emails, nil
}

/******************** 邮件解析 ********************/

// ParseMessage 解析邮件头部，只读取q需要的附件
// 主题、发件人和附件名的RFC 2047编码由go-message解码
func ParseMessage(uid uint32, r io.Reader, q MailQuery) (*Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("创建邮件阅读器失败: %w", err)
	}
	defer mr.Close()

	email := &Email{UID: uid}
	email.Date, _ = mr.Header.Date()
	email.Subject, _ = mr.Header.Subject() // 未知字符集时保留原始内容
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		email.From = from[0].Address
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取邮件内容失败: %w", err)
		}

		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		name, err := h.Filename()
		if err != nil || !q.wants(name) {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, p.Body); err != nil {
			return nil, fmt.Errorf("读取附件 %s 失败: %w", name, err)
		}
		email.Attachments = append(email.Attachments, &Attachment{Filename: name, Content: buf.Bytes()})
	}
	return email, nil
}

/******************** 业务逻辑函数 ********************/

// LatestDatasetEmail 连接邮箱并返回q匹配的最新邮件，没有时为nil
func LatestDatasetEmail(svc MailService, q MailQuery, logger *storage.Logger) (*Email, error) {
	start := time.Now()
	logger.Info("开始检查邮箱...")

	if err := svc.Connect(); err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	defer svc.Disconnect()

	emails, err := svc.FetchDatasetEmails(q)
	if err != nil {
		return nil, fmt.Errorf("获取邮件失败: %w", err)
	}
	if len(emails) == 0 {
		logger.Info("没有目标邮件")
		return nil, nil
	}

	// 日期相同时保留UID较大的邮件
	sort.SliceStable(emails, func(i, j int) bool {
		if emails[i].Date.Equal(emails[j].Date) {
			return emails[i].UID > emails[j].UID
		}
		return emails[i].Date.After(emails[j].Date)
	})
	latest := emails[0]
	logger.Info(fmt.Sprintf("找到目标邮件: %s，耗时: %v", latest.Subject, time.Since(start)))
	return latest, nil
}
