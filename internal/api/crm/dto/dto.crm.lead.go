// Package crmdto chứa DTO cho domain CRM (Lead, Company).
package crmdto

// LeadCreateInput là input để tạo lead mới.
// Điểm, opt-out và bookkeeping của engine không nhận từ client.
type LeadCreateInput struct {
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	WorkEmail string `json:"workEmail,omitempty" validate:"omitempty,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName,omitempty"`
	JobTitle  string `json:"jobTitle,omitempty"`
	CompanyID string `json:"companyId,omitempty" transform:"str_objectid,optional"`

	// Enrichment
	WorkEmailStatus          string `json:"workEmailStatus,omitempty"`
	WorkEmailQuality         string `json:"workEmailQuality,omitempty"`
	WorkEmailConfidence      string `json:"workEmailConfidence,omitempty"`
	PrimaryWorkEmailSource   string `json:"primaryWorkEmailSource,omitempty"`
	WorkEmailServiceProvider string `json:"workEmailServiceProvider,omitempty"`
	CatchAllStatus           bool   `json:"catchAllStatus,omitempty"`
	PersonAddress            string `json:"personAddress,omitempty"`
	Country                  string `json:"country,omitempty"`
	PersonalLinkedin         string `json:"personalLinkedin,omitempty"`
	Seniority                string `json:"seniority,omitempty"`
	Departments              string `json:"departments,omitempty"`
	Industries               string `json:"industries,omitempty"`
	ProfileSummary           string `json:"profileSummary,omitempty"`
}

// LeadUpdateInput là input để cập nhật lead. Chỉ field khác zero được set.
type LeadUpdateInput struct {
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	WorkEmail string `json:"workEmail,omitempty" validate:"omitempty,email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	JobTitle  string `json:"jobTitle,omitempty"`
	CompanyID string `json:"companyId,omitempty" transform:"str_objectid,optional"`

	WorkEmailStatus          string `json:"workEmailStatus,omitempty"`
	WorkEmailQuality         string `json:"workEmailQuality,omitempty"`
	WorkEmailConfidence      string `json:"workEmailConfidence,omitempty"`
	PrimaryWorkEmailSource   string `json:"primaryWorkEmailSource,omitempty"`
	WorkEmailServiceProvider string `json:"workEmailServiceProvider,omitempty"`
	PersonAddress            string `json:"personAddress,omitempty"`
	Country                  string `json:"country,omitempty"`
	PersonalLinkedin         string `json:"personalLinkedin,omitempty"`
	Seniority                string `json:"seniority,omitempty"`
	Departments              string `json:"departments,omitempty"`
	Industries               string `json:"industries,omitempty"`
	ProfileSummary           string `json:"profileSummary,omitempty"`
}
