// Package runtime là engine tự động hóa chiến dịch outbound:
// enroll lead, chạy state machine theo graph bước/cạnh, cấp phát inbox,
// gửi email sinh bằng LLM và xử lý phản hồi.
//
// Engine không chạm trực tiếp MongoDB, SMTP, IMAP hay LLM API mà đi qua
// các interface bên dưới để test được bằng fake.
package runtime

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"copper_crm/internal/ai"
	campaignmodels "copper_crm/internal/api/campaign/models"
	crmmodels "copper_crm/internal/api/crm/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/delivery/channels"
	"copper_crm/internal/mailbox"
)

// Store là toàn bộ persistence engine cần, gom theo collection.
type Store interface {
	// Chiến dịch và graph
	ActiveCampaigns(ctx context.Context) ([]campaignmodels.Campaign, error)
	ActiveCampaign(ctx context.Context, campaignID primitive.ObjectID) (campaignmodels.Campaign, bool, error)
	CampaignStep(ctx context.Context, stepID primitive.ObjectID) (campaignmodels.CampaignStep, error)
	EntryStep(ctx context.Context, campaignID primitive.ObjectID) (campaignmodels.CampaignStep, error)
	NextSequentialStep(ctx context.Context, campaignID primitive.ObjectID, afterSequence int) (campaignmodels.CampaignStep, bool, error)
	EdgesFrom(ctx context.Context, campaignID, fromStepID primitive.ObjectID) ([]campaignmodels.CampaignEdge, error)
	LLMProfile(ctx context.Context, profileID primitive.ObjectID) (campaignmodels.LLMProfile, bool, error)
	DefaultLLMProfile(ctx context.Context) (campaignmodels.LLMProfile, bool, error)

	// Lead
	Lead(ctx context.Context, leadID primitive.ObjectID) (crmmodels.Lead, error)
	LeadByEmail(ctx context.Context, address string) (crmmodels.Lead, bool, error)
	ContactableLeads(ctx context.Context, excludeIDs []primitive.ObjectID, limit int64) ([]crmmodels.Lead, error)
	Company(ctx context.Context, companyID primitive.ObjectID) (crmmodels.Company, bool, error)
	MarkLeadOptedOut(ctx context.Context, leadID primitive.ObjectID) error
	AddLeadPoints(ctx context.Context, leadID primitive.ObjectID, points int, activityType string, at int64) error

	// State machine
	EnrollState(ctx context.Context, state runtimemodels.LeadCampaignState) (runtimemodels.LeadCampaignState, bool, error)
	DueStates(ctx context.Context, campaignID primitive.ObjectID, nowMilli int64, limit int64) ([]runtimemodels.LeadCampaignState, error)
	StateByLeadAndCampaign(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.LeadCampaignState, error)
	UpdateState(ctx context.Context, stateID primitive.ObjectID, set map[string]interface{}) (runtimemodels.LeadCampaignState, error)
	StopStatesForLead(ctx context.Context, leadID primitive.ObjectID) (int64, error)
	ContactedLeadIDs(ctx context.Context) ([]primitive.ObjectID, error)
	CountStates(ctx context.Context, campaignID primitive.ObjectID) (int64, error)

	// Activity
	RecordActivity(ctx context.Context, activity runtimemodels.LeadActivity) error
	HasActivitySince(ctx context.Context, leadID, campaignID primitive.ObjectID, activityType string, sinceMilli int64) (bool, error)

	// Message log
	GetOrCreateMessage(ctx context.Context, msg runtimemodels.OutboundMessage) (runtimemodels.OutboundMessage, bool, error)
	LastOutboundMessage(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.OutboundMessage, bool, error)
	OutboundMessageByID(ctx context.Context, messageID string) (runtimemodels.OutboundMessage, bool, error)
	MaxInboundUID(ctx context.Context, inboxID primitive.ObjectID) (uint32, error)

	// Draft chờ duyệt
	CreateDraft(ctx context.Context, draft runtimemodels.CampaignEmailDraft) (runtimemodels.CampaignEmailDraft, error)
	PendingDraft(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.CampaignEmailDraft, bool, error)
	ClaimPendingDraft(ctx context.Context, draftID primitive.ObjectID, decidedBy string) (runtimemodels.CampaignEmailDraft, bool, error)
	ReopenDraft(ctx context.Context, draftID primitive.ObjectID) error

	// Pool inbox
	ActiveInboxes(ctx context.Context) ([]runtimemodels.OutboundInbox, error)
	IMAPInboxes(ctx context.Context) ([]runtimemodels.OutboundInbox, error)
	Inbox(ctx context.Context, inboxID primitive.ObjectID) (runtimemodels.OutboundInbox, error)
	ResetInboxDaily(ctx context.Context, inbox *runtimemodels.OutboundInbox, now time.Time) error
	ClaimInboxSlot(ctx context.Context, inboxID primitive.ObjectID, cap int) (bool, error)
	ReleaseInboxSlot(ctx context.Context, inboxID primitive.ObjectID) error
	UpdateInboxUID(ctx context.Context, inboxID primitive.ObjectID, uid uint32, checkedAt int64) error
}

// Mailer gửi email vật lý qua một inbox.
type Mailer interface {
	Send(inbox *runtimemodels.OutboundInbox, email *channels.OutgoingEmail) error
}

// Mailbox đọc email từ IMAP của một inbox: email mới theo UID cho ingest
// và toàn bộ hội thoại với một lead cho bước ai_decision và prompt follow-up.
type Mailbox interface {
	FetchNew(inbox *runtimemodels.OutboundInbox, sinceUID uint32, limit int) ([]mailbox.InboundEmail, uint32, error)
	FetchThread(inbox *runtimemodels.OutboundInbox, leadAddress string, limit int) ([]mailbox.InboundEmail, error)
}

// Completer gọi LLM sinh nội dung hoặc phân loại.
type Completer interface {
	Complete(ctx context.Context, model string, messages []ai.Message) (string, error)
}

// Options là tham số chạy của engine.
type Options struct {
	PublicBaseURL     string
	UnsubscribeSecret string
	DefaultModel      string
	// BatchSize giới hạn số state xử lý mỗi chiến dịch mỗi tick
	BatchSize int64
	// EnrollBatchSize giới hạn số lead enroll mỗi chiến dịch mỗi tick
	EnrollBatchSize int64
	// FetchLimit giới hạn số message đọc mỗi inbox mỗi tick
	FetchLimit int
}

// Engine điều phối toàn bộ vòng đời chiến dịch.
type Engine struct {
	store     Store
	mailer    Mailer
	mailbox   Mailbox
	completer Completer
	opts      Options
	now       func() time.Time
	log       *logrus.Logger
}

// NewEngine tạo engine với đồng hồ thời gian thật.
func NewEngine(store Store, mailer Mailer, mbox Mailbox, completer Completer, opts Options, log *logrus.Logger) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.EnrollBatchSize <= 0 {
		opts.EnrollBatchSize = 50
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = 100
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		store:     store,
		mailer:    mailer,
		mailbox:   mbox,
		completer: completer,
		opts:      opts,
		now:       time.Now,
		log:       log,
	}
}

// SetClock thay đồng hồ của engine, dùng trong test.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}
