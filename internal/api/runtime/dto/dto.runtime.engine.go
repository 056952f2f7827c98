package runtimedto

// Quyết định của người duyệt trên một bản nháp
const (
	DraftDecisionApproved = "approved"
	DraftDecisionRejected = "rejected"
)

// EnrollInput là input khi enroll lead thủ công vào một chiến dịch.
type EnrollInput struct {
	CampaignID string `json:"campaignId" validate:"required"`
}

// DraftDecisionInput là input khi duyệt hoặc từ chối một bản nháp.
type DraftDecisionInput struct {
	DraftID   string `json:"draftId" validate:"required"`
	Decision  string `json:"decision" validate:"required,oneof=approved rejected"`
	DecidedBy string `json:"decidedBy,omitempty"`
}

// Approved cho biết quyết định có phải là duyệt gửi không
func (d *DraftDecisionInput) Approved() bool {
	return d.Decision == DraftDecisionApproved
}
