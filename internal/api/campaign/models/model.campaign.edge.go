// Package models - CampaignEdge thuộc domain chiến dịch (campaign_edges).
// Cạnh có điều kiện nối hai bước; edges là nguồn chính quyết định flow.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Loại điều kiện trên cạnh
const (
	EdgeConditionAlways  = "always"
	EdgeConditionReply   = "reply"
	EdgeConditionNoReply = "no_reply"
	EdgeConditionOpen    = "open"
	EdgeConditionNoOpen  = "no_open"
	EdgeConditionIntent  = "intent"
	EdgeConditionEvent   = "event"
	EdgeConditionNoEvent = "no_event"
)

// CampaignEdge lưu một cạnh có hướng trong đồ thị chiến dịch (campaign_edges).
type CampaignEdge struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	CampaignID primitive.ObjectID `json:"campaignId" bson:"campaignId" index:"single:1" validate:"required"`
	FromStepID primitive.ObjectID `json:"fromStepId" bson:"fromStepId" index:"single:1,compound:edge_from_order" validate:"required"`
	ToStepID   primitive.ObjectID `json:"toStepId" bson:"toStepId" validate:"required"`

	// ConditionType quyết định khi nào cạnh được chọn; ConditionValue chỉ dùng với intent
	ConditionType  string `json:"conditionType" bson:"conditionType"`
	ConditionValue string `json:"conditionValue,omitempty" bson:"conditionValue,omitempty"`

	Label string `json:"label,omitempty" bson:"label,omitempty"`

	// Order để tiebreak khi nhiều cạnh cùng (step, conditionType); thấp hơn thắng
	Order int `json:"order" bson:"order" index:"compound:edge_from_order"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
