package campaigndto

// CampaignEdgeCreateInput là input để tạo một cạnh trong đồ thị chiến dịch.
type CampaignEdgeCreateInput struct {
	CampaignID string `json:"campaignId" validate:"required" transform:"str_objectid"`
	FromStepID string `json:"fromStepId" validate:"required" transform:"str_objectid"`
	ToStepID   string `json:"toStepId" validate:"required" transform:"str_objectid"`

	ConditionType  string `json:"conditionType" validate:"required,oneof=always reply no_reply open no_open intent event no_event"`
	ConditionValue string `json:"conditionValue,omitempty"` // Chỉ dùng với conditionType=intent

	Label string `json:"label,omitempty"`
	Order int    `json:"order,omitempty"` // Tiebreak khi trùng (step, conditionType); thấp hơn thắng
}

// CampaignEdgeUpdateInput là input để cập nhật cạnh. Chỉ field khác zero được set.
type CampaignEdgeUpdateInput struct {
	ToStepID string `json:"toStepId,omitempty" transform:"str_objectid,optional"`

	ConditionType  string `json:"conditionType,omitempty" validate:"omitempty,oneof=always reply no_reply open no_open intent event no_event"`
	ConditionValue string `json:"conditionValue,omitempty"`

	Label string `json:"label,omitempty"`
	Order int    `json:"order,omitempty"`
}
