package campaigndto

import (
	campaignmodels "copper_crm/internal/api/campaign/models"
)

// CampaignStepCreateInput là input để tạo một bước trong đồ thị chiến dịch.
type CampaignStepCreateInput struct {
	CampaignID string `json:"campaignId" validate:"required" transform:"str_objectid"` // Chiến dịch chứa bước
	Title      string `json:"title" validate:"required"`                               // Tiêu đề hiển thị
	StepType   string `json:"stepType" validate:"required,oneof=entry delay condition ai_email ai_decision points goal exit"`

	Sequence int    `json:"sequence,omitempty"` // Thứ tự tiebreak/fallback
	Lane     string `json:"lane,omitempty"`

	PromptTemplate string                    `json:"promptTemplate,omitempty"` // Khối text ghép vào prompt
	Config         campaignmodels.StepConfig `json:"config"`                   // Config theo loại bước

	PositionX int `json:"positionX,omitempty"`
	PositionY int `json:"positionY,omitempty"`
}

// CampaignStepUpdateInput là input để cập nhật bước. Chỉ field khác zero được set.
type CampaignStepUpdateInput struct {
	Title    string `json:"title,omitempty"`
	StepType string `json:"stepType,omitempty" validate:"omitempty,oneof=entry delay condition ai_email ai_decision points goal exit"`

	Sequence int    `json:"sequence,omitempty"`
	Lane     string `json:"lane,omitempty"`

	PromptTemplate string                    `json:"promptTemplate,omitempty"`
	Config         campaignmodels.StepConfig `json:"config,omitempty"`

	PositionX int `json:"positionX,omitempty"`
	PositionY int `json:"positionY,omitempty"`
}
