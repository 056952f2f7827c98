// Package models - CampaignStep thuộc domain chiến dịch (campaign_steps).
// Mỗi bước là một node trong đồ thị chiến dịch; config được type theo từng loại bước.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Loại bước chiến dịch
const (
	StepTypeEntry      = "entry"       // Điểm vào, lọc lead
	StepTypeDelay      = "delay"       // Chờ một khoảng thời gian
	StepTypeCondition  = "condition"   // Rẽ nhánh theo sự kiện (open/reply)
	StepTypeAIEmail    = "ai_email"    // Sinh email bằng LLM, chờ duyệt
	StepTypeAIDecision = "ai_decision" // LLM quyết định nhánh tiếp theo
	StepTypePoints     = "points"      // Cộng điểm cho lead
	StepTypeGoal       = "goal"        // Đạt mục tiêu, kết thúc
	StepTypeExit       = "exit"        // Kết thúc không đạt mục tiêu
)

// Giá trị mặc định cho config của bước
const (
	DefaultDelayHours     = 24 // delay không khai báo duration
	DefaultWindowHours    = 48 // condition không khai báo window
	DefaultReplyWaitHours = 48 // ai_email chờ phản hồi
)

// EntryFilter là một điều kiện lọc lead tại bước entry.
// Op ∈ {equals, contains, in} trên các field được phép (country, industries, ...).
type EntryFilter struct {
	Field  string   `json:"field" bson:"field"`
	Op     string   `json:"op" bson:"op"`
	Values []string `json:"values" bson:"values"`
}

// EntryConfig cấu hình bước entry
type EntryConfig struct {
	Filters []EntryFilter `json:"filters,omitempty" bson:"filters,omitempty"`
}

// DelayConfig cấu hình bước delay
type DelayConfig struct {
	DurationHours int `json:"durationHours,omitempty" bson:"durationHours,omitempty"`
}

// ConditionConfig cấu hình bước condition
type ConditionConfig struct {
	Event       string `json:"event,omitempty" bson:"event,omitempty"` // reply | open
	WindowHours int    `json:"windowHours,omitempty" bson:"windowHours,omitempty"`
}

// AIEmailConfig cấu hình bước ai_email
type AIEmailConfig struct {
	Subject         string `json:"subject,omitempty" bson:"subject,omitempty"`
	Tone            string `json:"tone,omitempty" bson:"tone,omitempty"`
	CTA             string `json:"cta,omitempty" bson:"cta,omitempty"`
	Variant         string `json:"variant,omitempty" bson:"variant,omitempty"`
	Personalization string `json:"personalization,omitempty" bson:"personalization,omitempty"`
	ReplyMode       string `json:"replyMode,omitempty" bson:"replyMode,omitempty"` // wait | continue
	ReplyWaitHours  int    `json:"replyWaitHours,omitempty" bson:"replyWaitHours,omitempty"`
	Model           string `json:"model,omitempty" bson:"model,omitempty"`
}

// AIDecisionConfig cấu hình bước ai_decision
type AIDecisionConfig struct {
	Model   string `json:"model,omitempty" bson:"model,omitempty"`
	Routing string `json:"routing,omitempty" bson:"routing,omitempty"`
}

// PointsConfig cấu hình bước points
type PointsConfig struct {
	Points int    `json:"points,omitempty" bson:"points,omitempty"`
	Reason string `json:"reason,omitempty" bson:"reason,omitempty"`
}

// StepConfig là tagged union cấu hình bước: chỉ variant ứng với StepType được đọc.
type StepConfig struct {
	Entry      *EntryConfig      `json:"entry,omitempty" bson:"entry,omitempty"`
	Delay      *DelayConfig      `json:"delay,omitempty" bson:"delay,omitempty"`
	Condition  *ConditionConfig  `json:"condition,omitempty" bson:"condition,omitempty"`
	AIEmail    *AIEmailConfig    `json:"aiEmail,omitempty" bson:"aiEmail,omitempty"`
	AIDecision *AIDecisionConfig `json:"aiDecision,omitempty" bson:"aiDecision,omitempty"`
	Points     *PointsConfig     `json:"points,omitempty" bson:"points,omitempty"`
}

// CampaignStep lưu một bước trong đồ thị chiến dịch (campaign_steps).
type CampaignStep struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	CampaignID primitive.ObjectID `json:"campaignId" bson:"campaignId" index:"single:1,compound:step_campaign_sequence" validate:"required"`
	Title      string             `json:"title" bson:"title" validate:"required"`
	StepType   string             `json:"stepType" bson:"stepType" validate:"required"`

	// Sequence chỉ dùng để tiebreak và fallback; edges mới là nguồn chính của flow
	Sequence int    `json:"sequence" bson:"sequence" index:"compound:step_campaign_sequence"`
	Lane     string `json:"lane,omitempty" bson:"lane,omitempty"`

	// PromptTemplate là khối text tự do ghép vào prompt khi sinh email
	PromptTemplate string     `json:"promptTemplate,omitempty" bson:"promptTemplate,omitempty"`
	Config         StepConfig `json:"config" bson:"config"`

	PositionX int `json:"positionX,omitempty" bson:"positionX,omitempty"`
	PositionY int `json:"positionY,omitempty" bson:"positionY,omitempty"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// DelayDuration trả về thời gian chờ của bước delay, mặc định 24 giờ
func (s *CampaignStep) DelayDuration() time.Duration {
	hours := DefaultDelayHours
	if s.Config.Delay != nil && s.Config.Delay.DurationHours > 0 {
		hours = s.Config.Delay.DurationHours
	}
	return time.Duration(hours) * time.Hour
}

// ConditionEvent trả về sự kiện của bước condition ("" nếu không cấu hình)
func (s *CampaignStep) ConditionEvent() string {
	if s.Config.Condition != nil {
		return s.Config.Condition.Event
	}
	return ""
}

// ConditionWindow trả về cửa sổ chờ sự kiện của bước condition, mặc định 48 giờ
func (s *CampaignStep) ConditionWindow() time.Duration {
	hours := DefaultWindowHours
	if s.Config.Condition != nil && s.Config.Condition.WindowHours > 0 {
		hours = s.Config.Condition.WindowHours
	}
	return time.Duration(hours) * time.Hour
}

// ReplyWait trả về thời gian chờ phản hồi sau khi gửi email, mặc định 48 giờ
func (s *CampaignStep) ReplyWait() time.Duration {
	hours := DefaultReplyWaitHours
	if s.Config.AIEmail != nil && s.Config.AIEmail.ReplyWaitHours > 0 {
		hours = s.Config.AIEmail.ReplyWaitHours
	}
	return time.Duration(hours) * time.Hour
}

// WaitsForReply cho biết bước ai_email có chờ phản hồi trước khi đi tiếp không
func (s *CampaignStep) WaitsForReply() bool {
	if s.Config.AIEmail != nil && s.Config.AIEmail.ReplyMode == "continue" {
		return false
	}
	return true
}

// GenerationModel trả về model LLM của bước, fallbackModel nếu không cấu hình
func (s *CampaignStep) GenerationModel(fallbackModel string) string {
	if s.Config.AIEmail != nil && s.Config.AIEmail.Model != "" {
		return s.Config.AIEmail.Model
	}
	if s.Config.AIDecision != nil && s.Config.AIDecision.Model != "" {
		return s.Config.AIDecision.Model
	}
	return fallbackModel
}

// EntryFilters trả về danh sách filter của bước entry (nil nếu không có)
func (s *CampaignStep) EntryFilters() []EntryFilter {
	if s.Config.Entry != nil {
		return s.Config.Entry.Filters
	}
	return nil
}

// AwardPoints trả về số điểm và lý do của bước points
func (s *CampaignStep) AwardPoints() (int, string) {
	if s.Config.Points != nil {
		return s.Config.Points.Points, s.Config.Points.Reason
	}
	return 0, ""
}
