package campaigndto

// LLMProfileCreateInput là input để tạo hồ sơ giọng văn cho LLM.
type LLMProfileCreateInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Rules       string `json:"rules" validate:"required"` // Khối text tự do, ghép nguyên văn vào prompt
	Category    string `json:"category,omitempty"`
	IsDefault   bool   `json:"isDefault,omitempty"`
}

// LLMProfileUpdateInput là input để cập nhật hồ sơ. Chỉ field khác zero được set.
type LLMProfileUpdateInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Rules       string `json:"rules,omitempty"`
	Category    string `json:"category,omitempty"`
	IsDefault   bool   `json:"isDefault,omitempty"`
}
