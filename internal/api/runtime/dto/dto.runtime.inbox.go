// Package runtimedto chứa DTO cho domain runtime (OutboundInbox, engine).
package runtimedto

// OutboundInboxCreateInput là input để khai báo hộp thư gửi đi.
// Mật khẩu SMTP/IMAP chỉ nhận vào, không bao giờ trả ra (model ẩn qua json:"-").
type OutboundInboxCreateInput struct {
	EmailAddress string `json:"emailAddress" validate:"required,email"`
	DisplayName  string `json:"displayName,omitempty"`
	Domain       string `json:"domain,omitempty"`
	Subdomain    string `json:"subdomain,omitempty"`

	SMTPHost     string `json:"smtpHost,omitempty"`
	SMTPPort     int    `json:"smtpPort,omitempty"`
	SMTPUsername string `json:"smtpUsername,omitempty"`
	SMTPPassword string `json:"smtpPassword,omitempty"`

	DailyCap int  `json:"dailyCap,omitempty"`
	Active   bool `json:"active,omitempty"`

	IMAPHost       string `json:"imapHost,omitempty"`
	IMAPPort       int    `json:"imapPort,omitempty"`
	IMAPUseSSL     bool   `json:"imapUseSsl,omitempty"`
	IMAPUsername   string `json:"imapUsername,omitempty"`
	IMAPPassword   string `json:"imapPassword,omitempty"`
	IMAPFolder     string `json:"imapFolder,omitempty"`
	IMAPSentFolder string `json:"imapSentFolder,omitempty"`

	ReplyTo string `json:"replyTo,omitempty" validate:"omitempty,email"`
}

// OutboundInboxUpdateInput là input để cập nhật hộp thư. Chỉ field khác zero được set.
type OutboundInboxUpdateInput struct {
	DisplayName string `json:"displayName,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Subdomain   string `json:"subdomain,omitempty"`

	SMTPHost     string `json:"smtpHost,omitempty"`
	SMTPPort     int    `json:"smtpPort,omitempty"`
	SMTPUsername string `json:"smtpUsername,omitempty"`
	SMTPPassword string `json:"smtpPassword,omitempty"`

	DailyCap int  `json:"dailyCap,omitempty"`
	Active   bool `json:"active,omitempty"`

	IMAPHost       string `json:"imapHost,omitempty"`
	IMAPPort       int    `json:"imapPort,omitempty"`
	IMAPUseSSL     bool   `json:"imapUseSsl,omitempty"`
	IMAPUsername   string `json:"imapUsername,omitempty"`
	IMAPPassword   string `json:"imapPassword,omitempty"`
	IMAPFolder     string `json:"imapFolder,omitempty"`
	IMAPSentFolder string `json:"imapSentFolder,omitempty"`

	ReplyTo string `json:"replyTo,omitempty" validate:"omitempty,email"`
}
