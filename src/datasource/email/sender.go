// sender.go
package email

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"

	"github.com/jordan-wright/email"
)

// SMTPSettings 发送报表邮件需要的参数
type SMTPSettings struct {
	Server   string // host:port, 省略端口时使用465
	Username string
	Password string
	To       []string
	Subject  string
}

// BuildReport 组装报表邮件, 附件不存在时返回错误
func BuildReport(s SMTPSettings, body string, attachments ...string) (*email.Email, error) {
	if len(s.To) == 0 {
		return nil, fmt.Errorf("收件人为空")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("BookingInsight <%s>", s.Username)
	e.To = s.To
	e.Subject = s.Subject
	e.Text = []byte(body)

	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("附件文件不存在: %s", path)
		}
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("附件添加失败: %w", err)
		}
	}
	return e, nil
}

// SendReport 通过 SMTPS 发送报表邮件
func SendReport(s SMTPSettings, body string, attachments ...string) error {
	e, err := BuildReport(s, body, attachments...)
	if err != nil {
		return err
	}

	addr := s.Server
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		addr = net.JoinHostPort(addr, "465") // 默认 SSL 端口
	}

	err = e.SendWithTLS(
		addr,
		smtp.PlainAuth("", s.Username, s.Password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, addr)
	}
	return nil
}
