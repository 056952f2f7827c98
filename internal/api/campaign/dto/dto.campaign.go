// Package campaigndto chứa DTO cho domain chiến dịch (Campaign, Step, Edge, LLMProfile).
package campaigndto

// CampaignCreateInput là input để tạo chiến dịch mới. Chiến dịch luôn tạo ở trạng thái draft.
type CampaignCreateInput struct {
	Name         string `json:"name" validate:"required"`                                   // Tên chiến dịch
	Description  string `json:"description,omitempty"`                                      // Mô tả
	Category     string `json:"category,omitempty"`                                         // cold_outbound | nurture | ...
	PresetKey    string `json:"presetKey,omitempty"`                                        // Preset graph khởi tạo (nếu có)
	AudienceSize int    `json:"audienceSize,omitempty"`                                     // Giới hạn enroll (0 = không giới hạn)
	EntryPoint   string `json:"entryPoint,omitempty"`                                       // Nhãn entry point
	AIBrief      string `json:"aiBrief,omitempty"`                                          // Brief cho LLM
	LLMProfileID string `json:"llmProfileId,omitempty" transform:"str_objectid,optional"`   // Hồ sơ giọng văn chính
	LLMOverlayProfileID string `json:"llmOverlayProfileId,omitempty" transform:"str_objectid,optional"` // Hồ sơ overlay
}

// CampaignUpdateInput là input để cập nhật chiến dịch. Chỉ field khác zero được set.
type CampaignUpdateInput struct {
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	PresetKey    string `json:"presetKey,omitempty"`
	AudienceSize int    `json:"audienceSize,omitempty"`
	EntryPoint   string `json:"entryPoint,omitempty"`
	AIBrief      string `json:"aiBrief,omitempty"`
	LLMProfileID string `json:"llmProfileId,omitempty" transform:"str_objectid,optional"`
	LLMOverlayProfileID string `json:"llmOverlayProfileId,omitempty" transform:"str_objectid,optional"`
}

// CampaignLaunchInput là input khi launch chiến dịch.
type CampaignLaunchInput struct {
	Notes string `json:"notes,omitempty"` // Ghi chú launch, lưu vào launchNotes
}
