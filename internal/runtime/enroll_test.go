// Test enrollment: entry filter, audience cap, gán inbox, loại trừ lead đã tiếp cận.
package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	campaignmodels "copper_crm/internal/api/campaign/models"
	crmmodels "copper_crm/internal/api/crm/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
)

func newEnrollCampaign(store *fakeStore, filters []campaignmodels.EntryFilter) campaignmodels.Campaign {
	campaign := campaignmodels.Campaign{
		ID: primitive.NewObjectID(), Name: "Outbound", Status: campaignmodels.CampaignStatusActive,
	}
	store.campaigns = append(store.campaigns, campaign)
	store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Entry", StepType: campaignmodels.StepTypeEntry, Sequence: 1,
		Config: campaignmodels.StepConfig{Entry: &campaignmodels.EntryConfig{Filters: filters}},
	})
	store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "sales@mail.io", Active: true, DailyCap: 100, LastResetAt: store.nowMilli,
	})
	return campaign
}

func TestEnrollLeads_BasicEnrollment(t *testing.T) {
	store := newFakeStore()
	campaign := newEnrollCampaign(store, nil)
	a := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@x.vn"})
	b := store.addLead(crmmodels.Lead{FirstName: "Binh", WorkEmail: "binh@y.vn"})
	store.addLead(crmmodels.Lead{FirstName: "NoMail"})                                 // không có email
	store.addLead(crmmodels.Lead{FirstName: "Out", Email: "out@z.vn", OptedOut: true}) // đã opt-out

	engine := newTestEngine(store, nil, nil, nil)
	n, err := engine.EnrollLeads(context.Background(), campaign)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "chỉ lead có email và chưa opt-out được enroll")

	stA, err := store.StateByLeadAndCampaign(context.Background(), a.ID, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, runtimemodels.StateStatusActive, stA.Status)
	assert.Zero(t, stA.NextStepAt, "state mới enroll phải đến hạn ngay trong tick")
	assert.False(t, stA.AssignedInboxID.IsZero(), "enroll phải gán luôn inbox cho lead")
	_, err = store.StateByLeadAndCampaign(context.Background(), b.ID, campaign.ID)
	require.NoError(t, err)

	// Activity enrolled được ghi cho từng lead, kèm inbox đã gán
	require.Len(t, store.activities, 2)
	assert.Equal(t, stA.AssignedInboxID, store.activities[0].InboxID)
	assert.Equal(t, "sales@mail.io", store.activities[0].Metadata["inbox"])
}

func TestEnrollLeads_NoInboxAvailableErrors(t *testing.T) {
	store := newFakeStore()
	campaign := newEnrollCampaign(store, nil)
	for id, inbox := range store.inboxes {
		inbox.Active = false
		store.inboxes[id] = inbox
	}
	store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@x.vn"})

	engine := newTestEngine(store, nil, nil, nil)
	n, err := engine.EnrollLeads(context.Background(), campaign)
	assert.ErrorIs(t, err, common.ErrNoInboxAvailable)
	assert.Zero(t, n, "không có inbox thì không đưa lead vào chiến dịch")
}

func TestEnrollLeads_EntryFiltersApplied(t *testing.T) {
	store := newFakeStore()
	campaign := newEnrollCampaign(store, []campaignmodels.EntryFilter{
		{Field: "country", Op: "in", Values: []string{"Vietnam", "Singapore"}},
		{Field: "seniority", Op: "equals", Values: []string{"director"}},
	})
	match := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@x.vn", Country: "Vietnam", Seniority: "Director"})
	store.addLead(crmmodels.Lead{FirstName: "Binh", Email: "b@x.vn", Country: "Vietnam", Seniority: "manager"})
	store.addLead(crmmodels.Lead{FirstName: "Chi", Email: "c@x.vn", Country: "France", Seniority: "director"})

	engine := newTestEngine(store, nil, nil, nil)
	n, err := engine.EnrollLeads(context.Background(), campaign)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "entry filter là AND trên mọi điều kiện")
	_, err = store.StateByLeadAndCampaign(context.Background(), match.ID, campaign.ID)
	assert.NoError(t, err)
}

func TestEnrollLeads_CompanyFilterLooksUpCompany(t *testing.T) {
	store := newFakeStore()
	campaign := newEnrollCampaign(store, []campaignmodels.EntryFilter{
		{Field: "company", Op: "in", Values: []string{"Acme"}},
	})
	acme := store.addCompany(crmmodels.Company{CompanyName: "Acme"})
	globex := store.addCompany(crmmodels.Company{CompanyName: "Globex"})
	match := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@x.vn", CompanyID: acme.ID})
	store.addLead(crmmodels.Lead{FirstName: "Binh", Email: "b@x.vn", CompanyID: globex.ID})
	store.addLead(crmmodels.Lead{FirstName: "Chi", Email: "c@x.vn"}) // không có công ty

	engine := newTestEngine(store, nil, nil, nil)
	n, err := engine.EnrollLeads(context.Background(), campaign)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "filter company so khớp trên tên công ty tra từ companyId của lead")
	_, err = store.StateByLeadAndCampaign(context.Background(), match.ID, campaign.ID)
	assert.NoError(t, err)
}

func TestEnrollLeads_ContactedLeadsExcluded(t *testing.T) {
	store := newFakeStore()
	other := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "Old", Status: campaignmodels.CampaignStatusArchived}
	campaign := newEnrollCampaign(store, nil)
	emailed := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@x.vn"})
	inFlight := store.addLead(crmmodels.Lead{FirstName: "Binh", Email: "b@x.vn"})
	finished := store.addLead(crmmodels.Lead{FirstName: "Chi", Email: "c@x.vn"})
	// Lead đã thật sự nhận email outbound ở chiến dịch khác
	store.messages = append(store.messages, runtimemodels.OutboundMessage{
		ID: primitive.NewObjectID(), LeadID: emailed.ID, CampaignID: other.ID,
		Direction: runtimemodels.DirectionOutbound, MessageID: "<old@mail.io>",
		Status: runtimemodels.MessageStatusSent, CreatedAt: store.nowMilli - 1000,
	})
	// Lead đang chạy dở ở chiến dịch khác
	store.addState(runtimemodels.LeadCampaignState{
		LeadID: inFlight.ID, CampaignID: other.ID, Status: runtimemodels.StateStatusActive,
	})
	// Lead từng vào chiến dịch khác nhưng kết thúc mà chưa hề được gửi email
	store.addState(runtimemodels.LeadCampaignState{
		LeadID: finished.ID, CampaignID: other.ID, Status: runtimemodels.StateStatusCompleted,
	})

	engine := newTestEngine(store, nil, nil, nil)
	n, err := engine.EnrollLeads(context.Background(), campaign)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.StateByLeadAndCampaign(context.Background(), emailed.ID, campaign.ID)
	assert.Error(t, err, "lead đã nhận email outbound không được enroll lại")
	_, err = store.StateByLeadAndCampaign(context.Background(), inFlight.ID, campaign.ID)
	assert.Error(t, err, "lead đang chạy dở ở chiến dịch khác không được enroll")
	_, err = store.StateByLeadAndCampaign(context.Background(), finished.ID, campaign.ID)
	assert.NoError(t, err, "lead kết thúc chiến dịch cũ mà chưa từng được gửi email thì enroll lại được")
}

func TestEnrollLeads_AudienceCapRespected(t *testing.T) {
	store := newFakeStore()
	campaign := newEnrollCampaign(store, nil)
	campaign.AudienceSize = 2
	for i := 0; i < 5; i++ {
		store.addLead(crmmodels.Lead{FirstName: "L", Email: primitive.NewObjectID().Hex() + "@x.vn"})
	}

	engine := newTestEngine(store, nil, nil, nil)
	n, err := engine.EnrollLeads(context.Background(), campaign)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Lượt sau: cap đã đầy, không enroll thêm
	n, err = engine.EnrollLeads(context.Background(), campaign)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "audience cap tính trên tổng state của chiến dịch")
}

func TestEnrollLeads_InactiveCampaignSkipped(t *testing.T) {
	store := newFakeStore()
	campaign := newEnrollCampaign(store, nil)
	campaign.Status = campaignmodels.CampaignStatusPaused
	store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@x.vn"})

	engine := newTestEngine(store, nil, nil, nil)
	n, err := engine.EnrollLeads(context.Background(), campaign)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMatchesEntryFilter_Operators(t *testing.T) {
	lead := &crmmodels.Lead{
		Country:     "Vietnam",
		Departments: "Engineering, Product",
		JobTitle:    "Head of Growth",
	}

	assert.True(t, matchesEntryFilter(lead, campaignmodels.EntryFilter{Field: "country", Op: "in", Values: []string{"vietnam"}}, ""), "so khớp không phân biệt hoa thường")
	assert.True(t, matchesEntryFilter(lead, campaignmodels.EntryFilter{Field: "departments", Op: "in", Values: []string{"Product"}}, ""), "field danh sách tách theo dấu phẩy")
	assert.True(t, matchesEntryFilter(lead, campaignmodels.EntryFilter{Field: "jobTitle", Op: "contains", Values: []string{"growth"}}, ""))
	assert.True(t, matchesEntryFilter(lead, campaignmodels.EntryFilter{Field: "country", Op: "not_in", Values: []string{"France"}}, ""))
	assert.True(t, matchesEntryFilter(lead, campaignmodels.EntryFilter{Field: "company", Op: "in", Values: []string{"acme"}}, "Acme"), "tên công ty lấy từ tham số tra sẵn")
	assert.False(t, matchesEntryFilter(lead, campaignmodels.EntryFilter{Field: "country", Op: "weird_op", Values: []string{"Vietnam"}}, ""), "op lạ không bao giờ qua")
}
