// Package models - CampaignEmailDraft thuộc domain runtime (campaign_email_drafts).
// Bản nháp email do LLM sinh, chờ người duyệt trước khi gửi.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái bản nháp
const (
	DraftStatusPending  = "pending"
	DraftStatusSent     = "sent"
	DraftStatusRejected = "rejected"
)

// CampaignEmailDraft lưu một bản nháp email chờ duyệt (campaign_email_drafts).
type CampaignEmailDraft struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	CampaignID primitive.ObjectID `json:"campaignId" bson:"campaignId" index:"single:1" validate:"required"`
	LeadID     primitive.ObjectID `json:"leadId" bson:"leadId" index:"single:1" validate:"required"`
	InboxID    primitive.ObjectID `json:"inboxId,omitempty" bson:"inboxId,omitempty"`
	StepID     primitive.ObjectID `json:"stepId,omitempty" bson:"stepId,omitempty"`

	Subject  string `json:"subject,omitempty" bson:"subject,omitempty"`
	BodyText string `json:"bodyText" bson:"bodyText" validate:"required"`
	BodyHTML string `json:"bodyHtml,omitempty" bson:"bodyHtml,omitempty"`

	Status string `json:"status" bson:"status" index:"single:1"`

	FromEmail string `json:"fromEmail,omitempty" bson:"fromEmail,omitempty"`
	ToEmail   string `json:"toEmail,omitempty" bson:"toEmail,omitempty"`

	// Snapshot hồ sơ LLM tại thời điểm sinh; copy nguyên sang OutboundMessage khi gửi
	LLMProfileVersion        string `json:"llmProfileVersion,omitempty" bson:"llmProfileVersion,omitempty"`
	LLMProfileName           string `json:"llmProfileName,omitempty" bson:"llmProfileName,omitempty"`
	LLMProfileRules          string `json:"llmProfileRules,omitempty" bson:"llmProfileRules,omitempty"`
	LLMOverlayProfileVersion string `json:"llmOverlayProfileVersion,omitempty" bson:"llmOverlayProfileVersion,omitempty"`
	LLMOverlayProfileName    string `json:"llmOverlayProfileName,omitempty" bson:"llmOverlayProfileName,omitempty"`
	LLMOverlayProfileRules   string `json:"llmOverlayProfileRules,omitempty" bson:"llmOverlayProfileRules,omitempty"`

	ApprovedBy string `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`
	ApprovedAt int64  `json:"approvedAt,omitempty" bson:"approvedAt,omitempty"`
	SentAt     int64  `json:"sentAt,omitempty" bson:"sentAt,omitempty"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt" index:"single:1"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
