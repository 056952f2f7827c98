// Package models - LeadActivity thuộc domain runtime (lead_activities).
// Log append-only các sự kiện của lead; nguồn cộng điểm và đánh giá condition.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Loại hoạt động của lead
const (
	ActivityEmailSent        = "email_sent"
	ActivityEmailOpen        = "email_open"
	ActivityEmailReply       = "email_reply"
	ActivityCampaignEnrolled = "campaign_enrolled"
	ActivityGoalReached      = "goal_reached"
	ActivityPointsAwarded    = "points_awarded"
	ActivityUnsubscribe      = "unsubscribe"
	ActivityDraftCreated     = "draft_created"
	ActivityDecision         = "decision"
)

// PointsByActivity là bảng điểm cố định theo loại hoạt động.
// Hoạt động có loại được nhận diện sẽ tự cộng điểm này, cộng thêm điểm khai báo ở bước points.
var PointsByActivity = map[string]int{
	ActivityEmailSent:        0,
	ActivityEmailOpen:        1,
	ActivityEmailReply:       5,
	ActivityCampaignEnrolled: 0,
	ActivityGoalReached:      10,
}

// LeadActivity lưu một sự kiện của lead (lead_activities). Append-only, không bao giờ update.
type LeadActivity struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	LeadID     primitive.ObjectID `json:"leadId" bson:"leadId" index:"single:1" validate:"required"`
	CampaignID primitive.ObjectID `json:"campaignId,omitempty" bson:"campaignId,omitempty" index:"single:1"`
	InboxID    primitive.ObjectID `json:"inboxId,omitempty" bson:"inboxId,omitempty"`

	ActivityType string                 `json:"activityType" bson:"activityType" index:"single:1" validate:"required"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`

	OccurredAt int64 `json:"occurredAt" bson:"occurredAt" index:"single:1"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// ActivityPoints trả về số điểm tự cộng cho một loại hoạt động
func ActivityPoints(activityType string) int {
	return PointsByActivity[activityType]
}
