// Test state machine: đi qua các loại bước và các trạng thái chờ.
package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	campaignmodels "copper_crm/internal/api/campaign/models"
	crmmodels "copper_crm/internal/api/crm/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/mailbox"
)

// buildLinearCampaign dựng chiến dịch entry -> delay -> ai_email nối bằng cạnh always.
func buildLinearCampaign(store *fakeStore) (campaignmodels.Campaign, campaignmodels.CampaignStep, campaignmodels.CampaignStep, campaignmodels.CampaignStep) {
	campaign := campaignmodels.Campaign{
		ID:     primitive.NewObjectID(),
		Name:   "Cold outbound",
		Status: campaignmodels.CampaignStatusActive,
	}
	store.campaigns = append(store.campaigns, campaign)

	entry := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Entry", StepType: campaignmodels.StepTypeEntry, Sequence: 1,
	})
	delay := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Wait", StepType: campaignmodels.StepTypeDelay, Sequence: 2,
		Config: campaignmodels.StepConfig{Delay: &campaignmodels.DelayConfig{DurationHours: 24}},
	})
	email := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "First touch", StepType: campaignmodels.StepTypeAIEmail, Sequence: 3,
	})

	store.edges = append(store.edges,
		campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: entry.ID, ToStepID: delay.ID,
			ConditionType: campaignmodels.EdgeConditionAlways,
		},
		campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: delay.ID, ToStepID: email.ID,
			ConditionType: campaignmodels.EdgeConditionAlways,
		},
	)
	return campaign, entry, delay, email
}

func TestProcessState_EntryToDelaySetsWaiting(t *testing.T) {
	store := newFakeStore()
	campaign, entry, delay, _ := buildLinearCampaign(store)
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: entry.ID,
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	got := store.states[state.ID]
	assert.Equal(t, runtimemodels.StateStatusWaitingDelay, got.Status, "sau bước entry state phải đứng chờ ở delay")
	assert.Equal(t, delay.ID, got.CurrentStepID)
	assert.Equal(t, store.nowMilli+(24*time.Hour).Milliseconds(), got.NextStepAt, "nextStepAt phải là now + duration của delay")
}

func TestProcessState_DelayElapsedAdvancesToEmail(t *testing.T) {
	store := newFakeStore()
	campaign, _, delay, email := buildLinearCampaign(store)
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	inbox := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "sales@acme.com", Active: true, DailyCap: 50, LastResetAt: store.nowMilli,
	})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusWaitingDelay, CurrentStepID: delay.ID,
		NextStepAt: store.nowMilli, // đã đến hạn
	})

	completer := &fakeCompleter{output: "Subject: Quick hello\n\nHi An, short pitch here."}
	engine := newTestEngine(store, nil, nil, completer)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	got := store.states[state.ID]
	assert.Equal(t, email.ID, got.CurrentStepID, "state phải sang bước ai_email ngay trong cùng tick")
	assert.Equal(t, runtimemodels.StateStatusWaitingApproval, got.Status)
	assert.Equal(t, inbox.ID, got.AssignedInboxID, "state phải được gắn inbox khi sinh draft")
	require.Len(t, store.drafts, 1, "bước ai_email phải sinh đúng một bản nháp")
	draft := store.drafts[0]
	assert.Equal(t, "Quick hello", draft.Subject)
	assert.Equal(t, "Hi An, short pitch here.", draft.BodyText)
	assert.Equal(t, runtimemodels.DraftStatusPending, draft.Status)
	assert.Equal(t, inbox.ID, draft.InboxID)
}

func TestProcessState_PendingDraftNotRegenerated(t *testing.T) {
	store := newFakeStore()
	campaign, _, _, email := buildLinearCampaign(store)
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: email.ID,
	})
	store.drafts = append(store.drafts, runtimemodels.CampaignEmailDraft{
		ID: primitive.NewObjectID(), CampaignID: campaign.ID, LeadID: lead.ID,
		StepID: email.ID, BodyText: "cũ", Status: runtimemodels.DraftStatusPending,
	})

	completer := &fakeCompleter{output: "Subject: X\n\nY"}
	engine := newTestEngine(store, nil, nil, completer)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	assert.Len(t, store.drafts, 1, "còn draft pending thì không được sinh thêm")
	assert.Empty(t, completer.calls, "không được gọi LLM khi draft cũ còn chờ duyệt")
	assert.Equal(t, runtimemodels.StateStatusWaitingApproval, store.states[state.ID].Status)
}

func TestProcessState_OptedOutLeadStopsAllStates(t *testing.T) {
	store := newFakeStore()
	campaign, entry, _, _ := buildLinearCampaign(store)
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com", OptedOut: true})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: entry.ID,
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	assert.Equal(t, runtimemodels.StateStatusStopped, store.states[state.ID].Status, "lead opt-out phải bị dừng trước mọi xử lý")
	assert.Empty(t, store.drafts)
}

func TestProcessState_DeletedLeadStopsState(t *testing.T) {
	store := newFakeStore()
	campaign, entry, _, _ := buildLinearCampaign(store)
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: primitive.NewObjectID(), CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: entry.ID,
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))
	assert.Equal(t, runtimemodels.StateStatusStopped, store.states[state.ID].Status)
}

func TestProcessState_GoalStepCompletesAndAwardsPoints(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	goal := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Goal", StepType: campaignmodels.StepTypeGoal, Sequence: 5,
	})
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: goal.ID,
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	assert.Equal(t, runtimemodels.StateStatusCompleted, store.states[state.ID].Status)
	assert.Equal(t, runtimemodels.ActivityPoints(runtimemodels.ActivityGoalReached), store.leads[lead.ID].Points)
	require.Len(t, store.activities, 1)
	assert.Equal(t, runtimemodels.ActivityGoalReached, store.activities[0].ActivityType)
}

func TestProcessState_PointsStepAwardsConfiguredPoints(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	points := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Bonus", StepType: campaignmodels.StepTypePoints, Sequence: 1,
		Config: campaignmodels.StepConfig{Points: &campaignmodels.PointsConfig{Points: 7, Reason: "demo booked"}},
	})
	exit := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Exit", StepType: campaignmodels.StepTypeExit, Sequence: 2,
	})
	_ = exit
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: points.ID,
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	assert.Equal(t, 7, store.leads[lead.ID].Points)
	// Points không có cạnh đi ra, fallback sequence sang exit rồi completed
	assert.Equal(t, runtimemodels.StateStatusCompleted, store.states[state.ID].Status)
}

func TestProcessState_NoOutgoingPathCompletesState(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	entry := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Entry", StepType: campaignmodels.StepTypeEntry, Sequence: 1,
	})
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: entry.ID,
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))
	assert.Equal(t, runtimemodels.StateStatusCompleted, store.states[state.ID].Status, "không còn đường đi thì state phải completed")
}

func TestProcessState_MissingStepStopsState(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: primitive.NewObjectID(),
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))
	assert.Equal(t, runtimemodels.StateStatusStopped, store.states[state.ID].Status, "bước bị xóa khỏi graph thì state phải stopped")
}

func TestProcessState_ExitStepStopsState(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	exit := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Exit", StepType: campaignmodels.StepTypeExit, Sequence: 9,
	})
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: exit.ID,
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))
	assert.Equal(t, runtimemodels.StateStatusStopped, store.states[state.ID].Status,
		"exit là rời chiến dịch không đạt mục tiêu, phải stopped chứ không completed")
}

func TestProcessState_MissingCurrentStepJumpsToEntry(t *testing.T) {
	store := newFakeStore()
	campaign, entry, delay, _ := buildLinearCampaign(store)
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	// State cũ chưa từng được gán bước hiện tại
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive,
	})
	_ = entry

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	got := store.states[state.ID]
	assert.Equal(t, delay.ID, got.CurrentStepID,
		"state không có bước hiện tại phải nhảy về entry rồi đi tiếp trong cùng tick")
	assert.Equal(t, runtimemodels.StateStatusWaitingDelay, got.Status)
}

func TestProcessState_ConditionWindowExpiredFollowsNoOpenEdge(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	cond := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Opened?", StepType: campaignmodels.StepTypeCondition, Sequence: 2,
		Config: campaignmodels.StepConfig{Condition: &campaignmodels.ConditionConfig{Event: "open", WindowHours: 48}},
	})
	opened := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Goal", StepType: campaignmodels.StepTypeGoal, Sequence: 3,
	})
	silent := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Exit", StepType: campaignmodels.StepTypeExit, Sequence: 4,
	})
	store.edges = append(store.edges,
		campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: cond.ID, ToStepID: opened.ID,
			ConditionType: campaignmodels.EdgeConditionOpen, Order: 0,
		},
		campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: cond.ID, ToStepID: silent.ID,
			ConditionType: campaignmodels.EdgeConditionNoOpen, Order: 1,
		},
	)
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusWaitingCondition, CurrentStepID: cond.ID,
		NextStepAt: store.nowMilli, // cửa sổ quan sát đã hết
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	got := store.states[state.ID]
	assert.Equal(t, runtimemodels.StateStatusStopped, got.Status,
		"hết cửa sổ mà không mở email thì phải đi theo cạnh no_open sang exit")
}

func TestProcessState_ConditionEventHappenedFollowsOpenEdge(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	cond := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Opened?", StepType: campaignmodels.StepTypeCondition, Sequence: 2,
		Config: campaignmodels.StepConfig{Condition: &campaignmodels.ConditionConfig{Event: "open", WindowHours: 48}},
	})
	opened := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Goal", StepType: campaignmodels.StepTypeGoal, Sequence: 3,
	})
	store.edges = append(store.edges, campaignmodels.CampaignEdge{
		ID: primitive.NewObjectID(), CampaignID: campaign.ID,
		FromStepID: cond.ID, ToStepID: opened.ID,
		ConditionType: campaignmodels.EdgeConditionOpen, Order: 0,
	})
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: cond.ID,
		LastSentAt: store.nowMilli - 1000,
	})
	store.activities = append(store.activities, runtimemodels.LeadActivity{
		LeadID: lead.ID, CampaignID: campaign.ID,
		ActivityType: runtimemodels.ActivityEmailOpen, OccurredAt: store.nowMilli - 500,
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	assert.Equal(t, runtimemodels.StateStatusCompleted, store.states[state.ID].Status,
		"có open trong cửa sổ thì đi theo cạnh open sang goal")
}

// buildDecisionCampaign dựng bước ai_decision với cạnh intent meeting_request
// sang goal và cạnh no_reply sang exit.
func buildDecisionCampaign(store *fakeStore) (campaignmodels.Campaign, campaignmodels.CampaignStep, campaignmodels.CampaignStep, campaignmodels.CampaignStep) {
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	decision := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Decide", StepType: campaignmodels.StepTypeAIDecision, Sequence: 3,
	})
	goal := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Goal", StepType: campaignmodels.StepTypeGoal, Sequence: 4,
	})
	exit := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Exit", StepType: campaignmodels.StepTypeExit, Sequence: 5,
	})
	store.edges = append(store.edges,
		campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: decision.ID, ToStepID: goal.ID,
			ConditionType: campaignmodels.EdgeConditionIntent, ConditionValue: IntentMeetingRequest, Order: 0,
		},
		campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: decision.ID, ToStepID: exit.ID,
			ConditionType: campaignmodels.EdgeConditionNoReply, Order: 1,
		},
	)
	return campaign, decision, goal, exit
}

func TestProcessState_DecisionClassifiesThreadAndFollowsIntentEdge(t *testing.T) {
	store := newFakeStore()
	campaign, decision, _, _ := buildDecisionCampaign(store)
	inbox := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "sales@acme.com", Active: true, DailyCap: 50,
		IMAPHost: "imap.acme.com", IMAPUsername: "sales@acme.com", IMAPPassword: "pw",
	})
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: decision.ID,
		AssignedInboxID: inbox.ID,
	})

	mb := &fakeMailbox{}
	completer := &fakeCompleter{output: "meeting_request"}
	engine := newTestEngine(store, nil, mb, completer)
	mb.threads["an@example.com"] = []mailbox.InboundEmail{
		{FromAddress: "an@example.com", Subject: "Re: intro", BodyText: "Sounds good, can we meet Tuesday?"},
	}

	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	assert.Equal(t, runtimemodels.StateStatusCompleted, store.states[state.ID].Status,
		"intent meeting_request phải đưa state sang goal rồi completed")
	require.NotEmpty(t, completer.calls, "phải gọi LLM phân loại khi có hội thoại")

	var decisionActivities []runtimemodels.LeadActivity
	for _, a := range store.activities {
		if a.ActivityType == runtimemodels.ActivityDecision {
			decisionActivities = append(decisionActivities, a)
		}
	}
	require.Len(t, decisionActivities, 1, "bước ai_decision phải ghi đúng một activity decision")
	assert.Equal(t, IntentMeetingRequest, decisionActivities[0].Metadata["intent"])
	assert.Equal(t, decision.ID.Hex(), decisionActivities[0].Metadata["stepId"])
}

func TestProcessState_DecisionWithoutThreadFollowsNoReplyEdge(t *testing.T) {
	store := newFakeStore()
	campaign, decision, _, _ := buildDecisionCampaign(store)
	inbox := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "sales@acme.com", Active: true, DailyCap: 50,
		IMAPHost: "imap.acme.com", IMAPUsername: "sales@acme.com", IMAPPassword: "pw",
	})
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: decision.ID,
		AssignedInboxID: inbox.ID,
	})

	completer := &fakeCompleter{output: "meeting_request"}
	engine := newTestEngine(store, nil, nil, completer)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))

	assert.Equal(t, runtimemodels.StateStatusStopped, store.states[state.ID].Status,
		"không có hội thoại thì đi theo cạnh no_reply sang exit")
	assert.Empty(t, completer.calls, "không được gọi LLM khi không có gì để phân loại")
}

func TestProcessState_NotDueStateUntouched(t *testing.T) {
	store := newFakeStore()
	campaign, entry, _, _ := buildLinearCampaign(store)
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@example.com"})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusWaitingDelay, CurrentStepID: entry.ID,
		NextStepAt: store.nowMilli + time.Hour.Milliseconds(),
	})

	engine := newTestEngine(store, nil, nil, nil)
	require.NoError(t, engine.ProcessState(context.Background(), campaign, state))
	assert.Equal(t, runtimemodels.StateStatusWaitingDelay, store.states[state.ID].Status, "state chưa đến hạn không được xử lý")
}
