// Package models - Lead thuộc domain CRM (leads).
// Lưu khách hàng tiềm năng: danh tính, enrichment, điểm hoạt động và trạng thái opt-out.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lead lưu một khách hàng tiềm năng (leads).
type Lead struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	// Identity
	Email     string `json:"email,omitempty" bson:"email,omitempty" index:"unique,sparse"`
	WorkEmail string `json:"workEmail,omitempty" bson:"workEmail,omitempty" index:"unique,sparse"`
	FirstName string `json:"firstName" bson:"firstName" validate:"required"`
	LastName  string `json:"lastName" bson:"lastName"`
	JobTitle  string `json:"jobTitle,omitempty" bson:"jobTitle,omitempty"`
	CompanyID primitive.ObjectID `json:"companyId,omitempty" bson:"companyId,omitempty" index:"single:1"`

	// Enrichment
	WorkEmailStatus          string `json:"workEmailStatus,omitempty" bson:"workEmailStatus,omitempty"`
	WorkEmailQuality         string `json:"workEmailQuality,omitempty" bson:"workEmailQuality,omitempty"`
	WorkEmailConfidence      string `json:"workEmailConfidence,omitempty" bson:"workEmailConfidence,omitempty"`
	PrimaryWorkEmailSource   string `json:"primaryWorkEmailSource,omitempty" bson:"primaryWorkEmailSource,omitempty"`
	WorkEmailServiceProvider string `json:"workEmailServiceProvider,omitempty" bson:"workEmailServiceProvider,omitempty"`
	CatchAllStatus           bool   `json:"catchAllStatus" bson:"catchAllStatus"`
	PersonAddress            string `json:"personAddress,omitempty" bson:"personAddress,omitempty"`
	Country                  string `json:"country,omitempty" bson:"country,omitempty"`
	PersonalLinkedin         string `json:"personalLinkedin,omitempty" bson:"personalLinkedin,omitempty"`
	Seniority                string `json:"seniority,omitempty" bson:"seniority,omitempty"`
	Departments              string `json:"departments,omitempty" bson:"departments,omitempty"`
	Industries               string `json:"industries,omitempty" bson:"industries,omitempty"`
	ProfileSummary           string `json:"profileSummary,omitempty" bson:"profileSummary,omitempty"`

	// Engine bookkeeping: cập nhật qua activity log
	Points           int    `json:"points" bson:"points"`
	LastActivityAt   int64  `json:"lastActivityAt,omitempty" bson:"lastActivityAt,omitempty"`
	LastActivityType string `json:"lastActivityType,omitempty" bson:"lastActivityType,omitempty"`

	// Opt-out: optedOut=true chặn mọi xử lý, state bị ép stopped
	OptedOut   bool  `json:"optedOut" bson:"optedOut" index:"single:1"`
	OptedOutAt int64 `json:"optedOutAt,omitempty" bson:"optedOutAt,omitempty"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt" index:"single:1"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// BestEmail trả về địa chỉ gửi ưu tiên: workEmail trước, email sau
func (l *Lead) BestEmail() string {
	if l.WorkEmail != "" {
		return l.WorkEmail
	}
	return l.Email
}

// HasEmail cho biết lead có ít nhất một địa chỉ email không
func (l *Lead) HasEmail() bool {
	return l.Email != "" || l.WorkEmail != ""
}

// MatchesAddress so khớp một địa chỉ From với email/workEmail của lead
func (l *Lead) MatchesAddress(addr string) bool {
	return addr != "" && (addr == l.Email || addr == l.WorkEmail)
}
