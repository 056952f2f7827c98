// Package models - OutboundInbox thuộc domain runtime (outbound_inboxes).
// Hộp thư gửi đi với hạn mức ngày và thông tin IMAP để đọc phản hồi.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultDailyCap là hạn mức gửi mặc định mỗi ngày của một inbox
const DefaultDailyCap = 200

// OutboundInbox lưu một hộp thư gửi đi (outbound_inboxes).
type OutboundInbox struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	EmailAddress string `json:"emailAddress" bson:"emailAddress" index:"unique" validate:"required,email"`
	DisplayName  string `json:"displayName,omitempty" bson:"displayName,omitempty"`
	Domain       string `json:"domain" bson:"domain"`
	Subdomain    string `json:"subdomain,omitempty" bson:"subdomain,omitempty"`

	// SMTP identity
	SMTPHost     string `json:"smtpHost,omitempty" bson:"smtpHost,omitempty"`
	SMTPPort     int    `json:"smtpPort,omitempty" bson:"smtpPort,omitempty"`
	SMTPUsername string `json:"smtpUsername,omitempty" bson:"smtpUsername,omitempty"`
	SMTPPassword string `json:"-" bson:"smtpPassword,omitempty"`

	// Hạn mức gửi: dailySent reset lười về 0 khi sang ngày UTC mới
	DailyCap    int   `json:"dailyCap" bson:"dailyCap" default:"200"`
	DailySent   int   `json:"dailySent" bson:"dailySent"`
	LastResetAt int64 `json:"lastResetAt,omitempty" bson:"lastResetAt,omitempty"`

	Active bool `json:"active" bson:"active" index:"single:1"`

	// IMAP để poll phản hồi
	IMAPHost          string `json:"imapHost,omitempty" bson:"imapHost,omitempty"`
	IMAPPort          int    `json:"imapPort,omitempty" bson:"imapPort,omitempty"`
	IMAPUseSSL        bool   `json:"imapUseSsl" bson:"imapUseSsl"`
	IMAPUsername      string `json:"imapUsername,omitempty" bson:"imapUsername,omitempty"`
	IMAPPassword      string `json:"-" bson:"imapPassword,omitempty"`
	IMAPFolder        string `json:"imapFolder,omitempty" bson:"imapFolder,omitempty" default:"INBOX"`
	IMAPSentFolder    string `json:"imapSentFolder,omitempty" bson:"imapSentFolder,omitempty"`
	IMAPLastUID       uint32 `json:"imapLastUid,omitempty" bson:"imapLastUid,omitempty"`
	IMAPLastCheckedAt int64  `json:"imapLastCheckedAt,omitempty" bson:"imapLastCheckedAt,omitempty"`

	ReplyTo string `json:"replyTo,omitempty" bson:"replyTo,omitempty"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// Cap trả về hạn mức ngày hiệu dụng của inbox
func (i *OutboundInbox) Cap() int {
	if i.DailyCap > 0 {
		return i.DailyCap
	}
	return DefaultDailyCap
}

// NeedsDailyReset cho biết bộ đếm dailySent có cần reset không:
// lastResetAt thuộc một ngày UTC trước ngày của now.
func (i *OutboundInbox) NeedsDailyReset(now time.Time) bool {
	if i.LastResetAt == 0 {
		return true
	}
	last := time.UnixMilli(i.LastResetAt).UTC()
	y1, m1, d1 := last.Date()
	y2, m2, d2 := now.UTC().Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// HasCapacity cho biết inbox còn quota gửi trong ngày không
func (i *OutboundInbox) HasCapacity() bool {
	return i.Active && i.DailySent < i.Cap()
}

// HasIMAP cho biết inbox có đủ thông tin để poll phản hồi không
func (i *OutboundInbox) HasIMAP() bool {
	return i.IMAPHost != "" && i.IMAPUsername != "" && i.IMAPPassword != ""
}
