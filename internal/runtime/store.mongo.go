// MongoStore nối engine với các service MongoDB của từng domain.
package runtime

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	campaignmodels "copper_crm/internal/api/campaign/models"
	campaignvc "copper_crm/internal/api/campaign/service"
	crmmodels "copper_crm/internal/api/crm/models"
	crmvc "copper_crm/internal/api/crm/service"
	runtimemodels "copper_crm/internal/api/runtime/models"
	runtimevc "copper_crm/internal/api/runtime/service"
	"copper_crm/internal/common"
)

// MongoStore gom các service lại thành một Store cho engine.
type MongoStore struct {
	Campaigns  *campaignvc.CampaignService
	Steps      *campaignvc.CampaignStepService
	Edges      *campaignvc.CampaignEdgeService
	Profiles   *campaignvc.LLMProfileService
	Leads      *crmvc.LeadService
	Companies  *crmvc.CompanyService
	States     *runtimevc.LeadCampaignStateService
	Activities *runtimevc.LeadActivityService
	Messages   *runtimevc.OutboundMessageService
	Drafts     *runtimevc.CampaignEmailDraftService
	Inboxes    *runtimevc.OutboundInboxService
}

// NewMongoStore khởi tạo đủ bộ service. Gọi sau khi registry collection đã sẵn sàng.
func NewMongoStore() (*MongoStore, error) {
	campaigns, err := campaignvc.NewCampaignService()
	if err != nil {
		return nil, err
	}
	steps, err := campaignvc.NewCampaignStepService()
	if err != nil {
		return nil, err
	}
	edges, err := campaignvc.NewCampaignEdgeService()
	if err != nil {
		return nil, err
	}
	profiles, err := campaignvc.NewLLMProfileService()
	if err != nil {
		return nil, err
	}
	leads, err := crmvc.NewLeadService()
	if err != nil {
		return nil, err
	}
	companies, err := crmvc.NewCompanyService()
	if err != nil {
		return nil, err
	}
	states, err := runtimevc.NewLeadCampaignStateService()
	if err != nil {
		return nil, err
	}
	activities, err := runtimevc.NewLeadActivityService()
	if err != nil {
		return nil, err
	}
	messages, err := runtimevc.NewOutboundMessageService()
	if err != nil {
		return nil, err
	}
	drafts, err := runtimevc.NewCampaignEmailDraftService()
	if err != nil {
		return nil, err
	}
	inboxes, err := runtimevc.NewOutboundInboxService()
	if err != nil {
		return nil, err
	}
	return &MongoStore{
		Campaigns:  campaigns,
		Steps:      steps,
		Edges:      edges,
		Profiles:   profiles,
		Leads:      leads,
		Companies:  companies,
		States:     states,
		Activities: activities,
		Messages:   messages,
		Drafts:     drafts,
		Inboxes:    inboxes,
	}, nil
}

// ===== Chiến dịch và graph =====

func (m *MongoStore) ActiveCampaigns(ctx context.Context) ([]campaignmodels.Campaign, error) {
	return m.Campaigns.FindActive(ctx)
}

func (m *MongoStore) ActiveCampaign(ctx context.Context, campaignID primitive.ObjectID) (campaignmodels.Campaign, bool, error) {
	return m.Campaigns.FindActiveById(ctx, campaignID)
}

func (m *MongoStore) CampaignStep(ctx context.Context, stepID primitive.ObjectID) (campaignmodels.CampaignStep, error) {
	return m.Steps.FindOneById(ctx, stepID)
}

func (m *MongoStore) EntryStep(ctx context.Context, campaignID primitive.ObjectID) (campaignmodels.CampaignStep, error) {
	return m.Steps.FindEntryStep(ctx, campaignID)
}

func (m *MongoStore) NextSequentialStep(ctx context.Context, campaignID primitive.ObjectID, afterSequence int) (campaignmodels.CampaignStep, bool, error) {
	return m.Steps.FindFirstSequential(ctx, campaignID, afterSequence)
}

func (m *MongoStore) EdgesFrom(ctx context.Context, campaignID, fromStepID primitive.ObjectID) ([]campaignmodels.CampaignEdge, error) {
	return m.Edges.FindFromStep(ctx, campaignID, fromStepID)
}

func (m *MongoStore) LLMProfile(ctx context.Context, profileID primitive.ObjectID) (campaignmodels.LLMProfile, bool, error) {
	profile, err := m.Profiles.FindOneById(ctx, profileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return campaignmodels.LLMProfile{}, false, nil
		}
		return campaignmodels.LLMProfile{}, false, err
	}
	return profile, true, nil
}

func (m *MongoStore) DefaultLLMProfile(ctx context.Context) (campaignmodels.LLMProfile, bool, error) {
	return m.Profiles.FindDefault(ctx)
}

// ===== Lead =====

func (m *MongoStore) Lead(ctx context.Context, leadID primitive.ObjectID) (crmmodels.Lead, error) {
	return m.Leads.FindOneById(ctx, leadID)
}

func (m *MongoStore) LeadByEmail(ctx context.Context, address string) (crmmodels.Lead, bool, error) {
	return m.Leads.FindByAnyEmail(ctx, address)
}

func (m *MongoStore) ContactableLeads(ctx context.Context, excludeIDs []primitive.ObjectID, limit int64) ([]crmmodels.Lead, error) {
	return m.Leads.FindContactable(ctx, excludeIDs, limit)
}

func (m *MongoStore) Company(ctx context.Context, companyID primitive.ObjectID) (crmmodels.Company, bool, error) {
	company, err := m.Companies.FindOneById(ctx, companyID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return crmmodels.Company{}, false, nil
		}
		return crmmodels.Company{}, false, err
	}
	return company, true, nil
}

func (m *MongoStore) MarkLeadOptedOut(ctx context.Context, leadID primitive.ObjectID) error {
	return m.Leads.MarkOptedOut(ctx, leadID)
}

func (m *MongoStore) AddLeadPoints(ctx context.Context, leadID primitive.ObjectID, points int, activityType string, at int64) error {
	return m.Leads.AddPoints(ctx, leadID, points, activityType, at)
}

// ===== State machine =====

func (m *MongoStore) EnrollState(ctx context.Context, state runtimemodels.LeadCampaignState) (runtimemodels.LeadCampaignState, bool, error) {
	return m.States.Enroll(ctx, state)
}

func (m *MongoStore) DueStates(ctx context.Context, campaignID primitive.ObjectID, nowMilli int64, limit int64) ([]runtimemodels.LeadCampaignState, error) {
	return m.States.FindDue(ctx, campaignID, nowMilli, limit)
}

func (m *MongoStore) StateByLeadAndCampaign(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.LeadCampaignState, error) {
	return m.States.FindByLeadAndCampaign(ctx, leadID, campaignID)
}

func (m *MongoStore) UpdateState(ctx context.Context, stateID primitive.ObjectID, set map[string]interface{}) (runtimemodels.LeadCampaignState, error) {
	return m.States.UpdateById(ctx, stateID, set)
}

func (m *MongoStore) StopStatesForLead(ctx context.Context, leadID primitive.ObjectID) (int64, error) {
	return m.States.StopForLead(ctx, leadID)
}

// ContactedLeadIDs trả về hợp của hai tập: lead đã từng nhận email outbound
// và lead đang có state chưa kết thúc ở chiến dịch bất kỳ.
func (m *MongoStore) ContactedLeadIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	sent, err := m.Messages.OutboundLeadIDs(ctx)
	if err != nil {
		return nil, err
	}
	engaged, err := m.States.EngagedLeadIDs(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[primitive.ObjectID]struct{}, len(sent)+len(engaged))
	out := make([]primitive.ObjectID, 0, len(sent)+len(engaged))
	for _, id := range append(sent, engaged...) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (m *MongoStore) CountStates(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	return m.States.CountByCampaign(ctx, campaignID)
}

// ===== Activity =====

func (m *MongoStore) RecordActivity(ctx context.Context, activity runtimemodels.LeadActivity) error {
	_, err := m.Activities.Record(ctx, activity)
	return err
}

func (m *MongoStore) HasActivitySince(ctx context.Context, leadID, campaignID primitive.ObjectID, activityType string, sinceMilli int64) (bool, error) {
	return m.Activities.HasActivitySince(ctx, leadID, campaignID, activityType, sinceMilli)
}

// ===== Message log =====

func (m *MongoStore) GetOrCreateMessage(ctx context.Context, msg runtimemodels.OutboundMessage) (runtimemodels.OutboundMessage, bool, error) {
	return m.Messages.GetOrCreateByMessageID(ctx, msg)
}

func (m *MongoStore) LastOutboundMessage(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.OutboundMessage, bool, error) {
	return m.Messages.FindLastOutbound(ctx, leadID, campaignID)
}

func (m *MongoStore) OutboundMessageByID(ctx context.Context, messageID string) (runtimemodels.OutboundMessage, bool, error) {
	return m.Messages.FindByMessageID(ctx, messageID)
}

func (m *MongoStore) MaxInboundUID(ctx context.Context, inboxID primitive.ObjectID) (uint32, error) {
	return m.Messages.MaxInboundUID(ctx, inboxID)
}

// ===== Draft chờ duyệt =====

func (m *MongoStore) CreateDraft(ctx context.Context, draft runtimemodels.CampaignEmailDraft) (runtimemodels.CampaignEmailDraft, error) {
	return m.Drafts.InsertOne(ctx, draft)
}

func (m *MongoStore) PendingDraft(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.CampaignEmailDraft, bool, error) {
	return m.Drafts.FindPendingByState(ctx, leadID, campaignID)
}

func (m *MongoStore) ClaimPendingDraft(ctx context.Context, draftID primitive.ObjectID, decidedBy string) (runtimemodels.CampaignEmailDraft, bool, error) {
	draft, err := m.Drafts.Decide(ctx, draftID, true, decidedBy)
	if err != nil {
		if errors.Is(err, common.ErrDraftRejected) {
			return runtimemodels.CampaignEmailDraft{}, false, nil
		}
		return runtimemodels.CampaignEmailDraft{}, false, err
	}
	return draft, true, nil
}

func (m *MongoStore) ReopenDraft(ctx context.Context, draftID primitive.ObjectID) error {
	return m.Drafts.Reopen(ctx, draftID)
}

// ===== Pool inbox =====

func (m *MongoStore) ActiveInboxes(ctx context.Context) ([]runtimemodels.OutboundInbox, error) {
	return m.Inboxes.FindActive(ctx)
}

func (m *MongoStore) IMAPInboxes(ctx context.Context) ([]runtimemodels.OutboundInbox, error) {
	return m.Inboxes.FindWithIMAP(ctx)
}

func (m *MongoStore) Inbox(ctx context.Context, inboxID primitive.ObjectID) (runtimemodels.OutboundInbox, error) {
	return m.Inboxes.FindOneById(ctx, inboxID)
}

func (m *MongoStore) ResetInboxDaily(ctx context.Context, inbox *runtimemodels.OutboundInbox, now time.Time) error {
	return m.Inboxes.ResetDailyIfNeeded(ctx, inbox, now)
}

func (m *MongoStore) ClaimInboxSlot(ctx context.Context, inboxID primitive.ObjectID, cap int) (bool, error) {
	return m.Inboxes.ClaimSlot(ctx, inboxID, cap)
}

func (m *MongoStore) ReleaseInboxSlot(ctx context.Context, inboxID primitive.ObjectID) error {
	return m.Inboxes.ReleaseSlot(ctx, inboxID)
}

func (m *MongoStore) UpdateInboxUID(ctx context.Context, inboxID primitive.ObjectID, uid uint32, checkedAt int64) error {
	return m.Inboxes.UpdateLastUID(ctx, inboxID, uid, checkedAt)
}
