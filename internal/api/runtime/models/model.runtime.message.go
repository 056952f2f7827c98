// Package models - OutboundMessage thuộc domain runtime (outbound_messages).
// Lưu cả email gửi đi và phản hồi nhận về; dedup theo messageId.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hướng của message
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// Trạng thái message
const (
	MessageStatusSent     = "sent"
	MessageStatusReceived = "received"
	MessageStatusFailed   = "failed"
)

// OutboundMessage lưu một email trong hội thoại outbound (outbound_messages).
type OutboundMessage struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	LeadID     primitive.ObjectID `json:"leadId" bson:"leadId" index:"single:1" validate:"required"`
	CampaignID primitive.ObjectID `json:"campaignId,omitempty" bson:"campaignId,omitempty" index:"single:1"`
	InboxID    primitive.ObjectID `json:"inboxId,omitempty" bson:"inboxId,omitempty"`
	StepID     primitive.ObjectID `json:"stepId,omitempty" bson:"stepId,omitempty"`

	Direction string `json:"direction" bson:"direction" index:"single:1"`

	// MessageID là RFC 5322 Message-ID, unique: chốt chặn idempotency của reply ingestion
	MessageID string `json:"messageId" bson:"messageId" index:"unique" validate:"required"`
	ThreadID  string `json:"threadId,omitempty" bson:"threadId,omitempty"`

	Subject    string `json:"subject,omitempty" bson:"subject,omitempty"`
	InReplyTo  string `json:"inReplyTo,omitempty" bson:"inReplyTo,omitempty"`
	References string `json:"references,omitempty" bson:"references,omitempty"`

	SentAt int64  `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	Status string `json:"status" bson:"status"`

	RecipientEmail string `json:"recipientEmail,omitempty" bson:"recipientEmail,omitempty"`

	// TrackingID gắn với pixel mở email; unique sparse vì message inbound không có
	TrackingID string `json:"trackingId,omitempty" bson:"trackingId,omitempty" index:"unique,sparse"`

	// IMAP bookkeeping cho message inbound
	ImapUID uint32 `json:"imapUid,omitempty" bson:"imapUid,omitempty"`

	// Snapshot hồ sơ LLM tại thời điểm gửi (bất biến dù profile bị sửa sau đó)
	LLMProfileVersion        string `json:"llmProfileVersion,omitempty" bson:"llmProfileVersion,omitempty"`
	LLMProfileName           string `json:"llmProfileName,omitempty" bson:"llmProfileName,omitempty"`
	LLMProfileRules          string `json:"llmProfileRules,omitempty" bson:"llmProfileRules,omitempty"`
	LLMOverlayProfileVersion string `json:"llmOverlayProfileVersion,omitempty" bson:"llmOverlayProfileVersion,omitempty"`
	LLMOverlayProfileName    string `json:"llmOverlayProfileName,omitempty" bson:"llmOverlayProfileName,omitempty"`
	LLMOverlayProfileRules   string `json:"llmOverlayProfileRules,omitempty" bson:"llmOverlayProfileRules,omitempty"`

	// Open tracking
	FirstOpenedAt int64 `json:"firstOpenedAt,omitempty" bson:"firstOpenedAt,omitempty"`
	LastOpenedAt  int64 `json:"lastOpenedAt,omitempty" bson:"lastOpenedAt,omitempty"`
	OpenCount     int   `json:"openCount" bson:"openCount"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt" index:"single:1"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
