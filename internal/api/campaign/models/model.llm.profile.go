// Package models - LLMProfile thuộc domain chiến dịch (llm_profiles).
// Hồ sơ giọng văn: khối rules text ghép vào prompt; snapshot lại tại thời điểm sinh email.
package models

import (
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LLMProfile lưu một hồ sơ giọng văn cho LLM (llm_profiles).
type LLMProfile struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	Name        string `json:"name" bson:"name" index:"unique" validate:"required"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	// Rules là khối text tự do, không có cấu trúc; engine chỉ ghép nguyên văn vào prompt
	Rules    string `json:"rules" bson:"rules" validate:"required"`
	Category string `json:"category" bson:"category"` // general | industry | ...

	IsDefault bool `json:"isDefault" bson:"isDefault"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// Version trả về phiên bản hồ sơ tại thời điểm hiện tại, dùng cho snapshot.
// Dùng UpdatedAt làm version vì rules bất biến giữa hai lần cập nhật.
func (p *LLMProfile) Version() string {
	return strconv.FormatInt(p.UpdatedAt, 10)
}
