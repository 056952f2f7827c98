// Package channels chứa các kênh gửi vật lý. Hiện tại chỉ có SMTP.
package channels

import (
	"fmt"

	"gopkg.in/gomail.v2"

	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
	"copper_crm/internal/delivery"
	"copper_crm/internal/global"
	"copper_crm/internal/logger"
)

// OutgoingEmail mô tả một email chuẩn bị gửi qua SMTP.
type OutgoingEmail struct {
	To        string
	Subject   string
	BodyText  string
	BodyHTML  string
	MessageID string
	InReplyTo string
	// References là header References đầy đủ của thread
	References string
	// UnsubscribeURL đưa vào header List-Unsubscribe để mail client
	// hiện nút hủy đăng ký một chạm
	UnsubscribeURL string
}

// SendEmail gửi email qua SMTP của inbox đã cho.
// Thông tin SMTP lấy từ inbox, fallback sang cấu hình server nếu inbox không khai báo.
func SendEmail(inbox *runtimemodels.OutboundInbox, email *OutgoingEmail) error {
	log := logger.GetAppLogger()

	host := inbox.SMTPHost
	port := inbox.SMTPPort
	username := inbox.SMTPUsername
	password := delivery.ResolveCredential(inbox.SMTPPassword)
	if host == "" {
		host = global.ServerConfig.SMTPHost
		port = global.ServerConfig.SMTPPort
		username = global.ServerConfig.SMTPUsername
		password = global.ServerConfig.SMTPPassword
	}
	if host == "" {
		return common.NewError(common.ErrCodeConfiguration, "Inbox chưa cấu hình SMTP", common.StatusBadRequest, inbox.EmailAddress)
	}
	if port == 0 {
		port = 587
	}
	if username == "" {
		username = inbox.EmailAddress
	}

	m := buildMessage(inbox, email)

	d := gomail.NewDialer(host, port, username, password)
	if err := d.DialAndSend(m); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"inbox": inbox.EmailAddress,
			"to":    email.To,
			"host":  fmt.Sprintf("%s:%d", host, port),
		}).Error("📧 [SMTP] Gửi email thất bại")
		return common.NewError(common.ErrCodeTransport, "Gửi email qua SMTP thất bại", common.StatusServiceUnavailable, err.Error())
	}

	log.WithFields(map[string]interface{}{
		"inbox":     inbox.EmailAddress,
		"to":        email.To,
		"messageId": email.MessageID,
	}).Info("📧 [SMTP] Đã gửi email")
	return nil
}

// buildMessage dựng message MIME với đầy đủ header threading và unsubscribe.
func buildMessage(inbox *runtimemodels.OutboundInbox, email *OutgoingEmail) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(inbox.EmailAddress, inbox.DisplayName))
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	if inbox.ReplyTo != "" {
		m.SetHeader("Reply-To", inbox.ReplyTo)
	}
	if email.MessageID != "" {
		m.SetHeader("Message-ID", email.MessageID)
	}
	if email.InReplyTo != "" {
		m.SetHeader("In-Reply-To", email.InReplyTo)
	}
	if email.References != "" {
		m.SetHeader("References", email.References)
	}
	if email.UnsubscribeURL != "" {
		m.SetHeader("List-Unsubscribe", "<"+email.UnsubscribeURL+">")
		m.SetHeader("List-Unsubscribe-Post", "List-Unsubscribe=One-Click")
	}

	m.SetBody("text/plain", email.BodyText)
	if email.BodyHTML != "" {
		m.AddAlternative("text/html", email.BodyHTML)
	}
	return m
}
