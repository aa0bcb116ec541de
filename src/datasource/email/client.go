// client.go
package email

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"PostsAnalytics/src/storage"
)

const (
	MaxFetchMessages   = 100            // 单次最大获取邮件数量，防止内存溢出
	FetchBufferSize    = 10             // 邮件获取通道缓冲区大小
	RecentMailDuration = 24 * time.Hour // 判定为"新邮件"的时间范围
)

// MailService 邮件服务核心接口
type MailService interface {
	Connect() error
	Disconnect()
	FetchUnreadEmails() ([]*Email, error)
}

// Email 邮件基础数据结构
type Email struct {
	UID         uint32
	Date        time.Time
	From        string
	Subject     string
	Attachments []*Attachment
}

// Attachment 邮件附件
type Attachment struct {
	Filename string
	Content  []byte
}

// MailClient IMAP邮件客户端
// 平台的posts导出以CSV附件的形式定期发到指定邮箱
type MailClient struct {
	server   string
	username string
	password string
	client   *client.Client
}

func NewMailClient(server, username, password string) *MailClient {
	return &MailClient{
		server:   server,
		username: username,
		password: password,
	}
}

// Connect 建立TLS连接并登录
func (s *MailClient) Connect() error {
	if s.client != nil {
		if _, err := s.client.Capability(); err == nil {
			return nil
		}
		// 连接已失效则重置
		s.client.Logout()
		s.client = nil
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return fmt.Errorf("连接邮件服务器失败: %w", err)
	}

	if err := c.Login(s.username, s.password); err != nil {
		c.Logout()
		return fmt.Errorf("登录失败: %w", err)
	}

	s.client = c
	return nil
}

func (s *MailClient) Disconnect() {
	if s.client != nil {
		s.client.Logout()
		s.client = nil
	}
}

// FetchUnreadEmails 获取24小时内的未读邮件
func (s *MailClient) FetchUnreadEmails() ([]*Email, error) {
	if s.client == nil {
		return nil, fmt.Errorf("未连接到邮件服务器")
	}

	if _, err := s.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("选择邮箱失败: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Now().Add(-RecentMailDuration)

	ids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("搜索邮件失败: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxFetchMessages {
		ids = ids[:MaxFetchMessages]
	}

	return s.fetchMessages(ids)
}

func (s *MailClient) fetchMessages(ids []uint32) ([]*Email, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, FetchBufferSize)
	done := make(chan error, 1)

	go func() {
		done <- s.client.Fetch(seqset, items, messages)
	}()

	var emails []*Email
	for msg := range messages {
		e, err := parseEmail(msg, section)
		if err != nil {
			log.Printf("解析邮件失败: %v", err)
			continue
		}
		emails = append(emails, e)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("获取邮件内容失败: %w", err)
	}
	return emails, nil
}

// parseEmail 解析单个邮件的信封与附件
func parseEmail(msg *imap.Message, section *imap.BodySectionName) (*Email, error) {
	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("邮件正文为空")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("创建邮件阅读器失败: %w", err)
	}

	header := mr.Header
	date, _ := header.Date() // 日期解析失败不影响后续处理

	e := &Email{
		UID:     msg.Uid,
		Date:    date,
		From:    decodeHeader(header.Get("From")),
		Subject: decodeHeader(header.Get("Subject")),
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // 跳过解析失败的部分
		}

		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := h.Filename()
		if err != nil || filename == "" {
			continue
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, p.Body); err != nil {
			log.Printf("读取附件内容失败: %v", err)
			continue
		}
		e.Attachments = append(e.Attachments, &Attachment{
			Filename: decodeHeader(filename),
			Content:  buf.Bytes(),
		})
	}

	return e, nil
}

// decodeHeader 解码邮件头特殊编码(=?charset?encoding?...?=)
func decodeHeader(header string) string {
	decoder := mime.WordDecoder{
		CharsetReader: charsetReader,
	}

	decoded, err := decoder.DecodeHeader(header)
	if err != nil {
		return header // 解码失败返回原始内容
	}
	return decoded
}

// charsetReader 字符集转换器，GBK/GB2312自动转UTF-8
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "gbk", "gb2312":
		return transform.NewReader(input, simplifiedchinese.GBK.NewDecoder()), nil
	default:
		return input, nil
	}
}

// CheckForExport 检查邮箱里是否有新的posts导出邮件
// 返回主题匹配的最新一封，没有则返回nil
func CheckForExport(mailService MailService, targetSubject string, logger *storage.Logger) (*Email, error) {
	startTime := time.Now()
	logger.Info("开始检查邮箱...")

	if err := mailService.Connect(); err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	defer mailService.Disconnect()

	emails, err := mailService.FetchUnreadEmails()
	if err != nil {
		return nil, fmt.Errorf("获取邮件失败: %w", err)
	}
	if len(emails) == 0 {
		logger.Info("没有新邮件")
		return nil, nil
	}

	target := filterLatestTargetEmail(emails, targetSubject)
	if target == nil {
		logger.Info("没有匹配主题的邮件")
		return nil, nil
	}

	logger.Info(fmt.Sprintf("找到导出邮件(UID:%d)，耗时: %v", target.UID, time.Since(startTime)))
	return target, nil
}

// filterLatestTargetEmail 按主题关键词过滤并取最新一封
func filterLatestTargetEmail(emails []*Email, keyword string) *Email {
	var targets []*Email
	for _, e := range emails {
		if strings.Contains(e.Subject, keyword) {
			targets = append(targets, e)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Date.After(targets[j].Date)
	})
	return targets[0]
}
