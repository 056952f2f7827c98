// Package models - Campaign thuộc domain chiến dịch (campaigns).
// Lưu định nghĩa chiến dịch outbound: trạng thái, audience cap và hồ sơ LLM gắn kèm.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái chiến dịch
const (
	CampaignStatusDraft    = "draft"    // Đang soạn, chưa chạy
	CampaignStatusActive   = "active"   // Đang chạy, được enrollment và tick xử lý
	CampaignStatusPaused   = "paused"   // Tạm dừng
	CampaignStatusArchived = "archived" // Đã lưu trữ
)

// Campaign lưu định nghĩa một chiến dịch outbound (campaigns).
type Campaign struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	Name        string `json:"name" bson:"name" validate:"required"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Category    string `json:"category" bson:"category"` // cold_outbound | nurture | ...
	Status      string `json:"status" bson:"status" index:"single:1"`
	PresetKey   string `json:"presetKey,omitempty" bson:"presetKey,omitempty"`

	// AudienceSize giới hạn tổng số lead được enroll (0 = không giới hạn)
	AudienceSize int    `json:"audienceSize" bson:"audienceSize"`
	EntryPoint   string `json:"entryPoint,omitempty" bson:"entryPoint,omitempty"`
	AIBrief      string `json:"aiBrief,omitempty" bson:"aiBrief,omitempty"`
	LaunchNotes  string `json:"launchNotes,omitempty" bson:"launchNotes,omitempty"`
	LaunchedAt   int64  `json:"launchedAt,omitempty" bson:"launchedAt,omitempty"`

	// Hồ sơ LLM: profile chính và overlay (tùy chọn) ghép vào prompt khi sinh email
	LLMProfileID        primitive.ObjectID `json:"llmProfileId,omitempty" bson:"llmProfileId,omitempty"`
	LLMOverlayProfileID primitive.ObjectID `json:"llmOverlayProfileId,omitempty" bson:"llmOverlayProfileId,omitempty"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt" index:"single:1"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// IsRunnable cho biết chiến dịch có được tick xử lý hay không
func (c *Campaign) IsRunnable() bool {
	return c.Status == CampaignStatusActive
}
