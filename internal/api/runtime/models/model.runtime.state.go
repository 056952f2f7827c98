// Package models - LeadCampaignState thuộc domain runtime (lead_campaign_states).
// Con trỏ trạng thái của một lead trong một chiến dịch; duy nhất theo (lead, campaign).
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái của lead trong chiến dịch
const (
	StateStatusPending          = "pending"
	StateStatusActive           = "active"
	StateStatusWaitingDelay     = "waiting_delay"
	StateStatusWaitingCondition = "waiting_condition"
	StateStatusWaitingReply     = "waiting_reply"
	StateStatusWaitingApproval  = "waiting_approval"
	StateStatusCompleted        = "completed"
	StateStatusStopped          = "stopped"
)

// TerminalStateStatuses là các trạng thái kết thúc, không bao giờ xử lý tiếp
var TerminalStateStatuses = []string{StateStatusCompleted, StateStatusStopped}

// LeadCampaignState lưu con trỏ trạng thái của lead trong chiến dịch (lead_campaign_states).
// Tạo tại enrollment, chỉ State Processor được mutate, không bao giờ xóa (giữ lại để audit).
type LeadCampaignState struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	LeadID     primitive.ObjectID `json:"leadId" bson:"leadId" index:"single:1,compound:state_lead_campaign_unique" validate:"required"`
	CampaignID primitive.ObjectID `json:"campaignId" bson:"campaignId" index:"single:1,compound:state_lead_campaign_unique" validate:"required"`

	Status string `json:"status" bson:"status" index:"single:1"`

	// CurrentStepID là bước hiện tại; rỗng nghĩa là nhảy về bước entry của chiến dịch
	CurrentStepID primitive.ObjectID `json:"currentStepId,omitempty" bson:"currentStepId,omitempty"`

	// AssignedInboxID dính với lead sau lần cấp phát đầu tiên
	AssignedInboxID primitive.ObjectID `json:"assignedInboxId,omitempty" bson:"assignedInboxId,omitempty"`

	// NextStepAt là thời điểm đến hạn xử lý; 0 nghĩa là xử lý ngay
	NextStepAt     int64 `json:"nextStepAt,omitempty" bson:"nextStepAt,omitempty" index:"single:1"`
	LastSentAt     int64 `json:"lastSentAt,omitempty" bson:"lastSentAt,omitempty"`
	LastActivityAt int64 `json:"lastActivityAt,omitempty" bson:"lastActivityAt,omitempty"`

	// Thread email: giữ để gửi nối tiếp trong cùng hội thoại
	ThreadID      string `json:"threadId,omitempty" bson:"threadId,omitempty"`
	LastMessageID string `json:"lastMessageId,omitempty" bson:"lastMessageId,omitempty"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// IsTerminal cho biết state đã kết thúc chưa
func (s *LeadCampaignState) IsTerminal() bool {
	return s.Status == StateStatusCompleted || s.Status == StateStatusStopped
}

// IsDue cho biết state đã đến hạn xử lý tại thời điểm now (unix milli) chưa.
// NextStepAt = 0 nghĩa là xử lý ngay.
func (s *LeadCampaignState) IsDue(nowMilli int64) bool {
	return s.NextStepAt == 0 || s.NextStepAt <= nowMilli
}
