// Test sinh bản nháp: parse output LLM, chọn subject, snapshot hồ sơ giọng văn.
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
	"copper_crm/internal/mailbox"
)

func TestParseGeneratedEmail(t *testing.T) {
	subject, body := parseGeneratedEmail("Subject: Quick hello\n\nHi An,\nshort pitch here.")
	assert.Equal(t, "Quick hello", subject)
	assert.Equal(t, "Hi An,\nshort pitch here.", body)

	// Prefix không phân biệt hoa thường
	subject, body = parseGeneratedEmail("SUBJECT: Hello\nBody line")
	assert.Equal(t, "Hello", subject)
	assert.Equal(t, "Body line", body)

	// Không có dòng Subject: toàn bộ là body
	subject, body = parseGeneratedEmail("Just a body without any subject line.")
	assert.Empty(t, subject)
	assert.Equal(t, "Just a body without any subject line.", body)

	// Chỉ có subject, không có body
	subject, body = parseGeneratedEmail("Subject: Lonely subject")
	assert.Equal(t, "Lonely subject", subject)
	assert.Empty(t, body)
}

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "Re: Quick hello", ReplySubject("Quick hello"))
	assert.Equal(t, "Re: Quick hello", ReplySubject("Re: Quick hello"), "không nhân đôi tiền tố Re:")
	assert.Equal(t, "Re: Quick hello", ReplySubject("RE: re: Quick hello"), "bóc hết mọi lớp Re: lồng nhau")
	assert.Equal(t, "Re: "+DefaultSubject, ReplySubject("Re:"), "subject rỗng sau khi bóc fallback về mặc định")
}

func TestSubjectForSend_Precedence(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, nil, nil, nil)

	step := campaignmodels.CampaignStep{
		StepType: campaignmodels.StepTypeAIEmail,
		Config: campaignmodels.StepConfig{
			AIEmail: &campaignmodels.AIEmailConfig{Subject: "Configured subject"},
		},
	}

	// Chưa có thread: subject cấu hình trên step thắng subject LLM sinh
	state := &runtimemodels.LeadCampaignState{LeadID: primitive.NewObjectID(), CampaignID: primitive.NewObjectID()}
	assert.Equal(t, "Configured subject", engine.subjectForSend(context.Background(), step, state, false, "Generated subject"))

	// Không cấu hình: dùng subject LLM sinh
	bare := campaignmodels.CampaignStep{StepType: campaignmodels.StepTypeAIEmail}
	assert.Equal(t, "Generated subject", engine.subjectForSend(context.Background(), bare, state, false, "Generated subject"))

	// Không có gì cả: về mặc định
	assert.Equal(t, DefaultSubject, engine.subjectForSend(context.Background(), bare, state, false, ""))

	// Đang trong thread: luôn là Re: + subject của email gần nhất
	threaded := &runtimemodels.LeadCampaignState{
		LeadID: state.LeadID, CampaignID: state.CampaignID, ThreadID: "<first@mail.io>",
	}
	store.messages = append(store.messages, runtimemodels.OutboundMessage{
		ID: primitive.NewObjectID(), LeadID: state.LeadID, CampaignID: state.CampaignID,
		Direction: runtimemodels.DirectionOutbound, Subject: "Quick hello",
		MessageID: "<first@mail.io>", CreatedAt: store.nowMilli,
	})
	assert.Equal(t, "Re: Quick hello", engine.subjectForSend(context.Background(), step, threaded, false, "Generated subject"))

	// Thấy hội thoại IMAP dù state chưa lưu threadId cũng tính là trong thread
	inThread := &runtimemodels.LeadCampaignState{LeadID: state.LeadID, CampaignID: state.CampaignID}
	assert.Equal(t, "Re: Quick hello", engine.subjectForSend(context.Background(), step, inThread, true, "Generated subject"))
}

func TestGenerateDraft_SnapshotsProfile(t *testing.T) {
	store := newFakeStore()
	profile := campaignmodels.LLMProfile{
		ID: primitive.NewObjectID(), Name: "friendly-sdr", Rules: "Be warm, one CTA.", IsDefault: true,
	}
	store.profiles[profile.ID] = profile

	campaign := campaignmodels.Campaign{
		ID: primitive.NewObjectID(), Name: "Outbound", Status: campaignmodels.CampaignStatusActive,
		AIBrief: "We sell CRM tooling.",
	}
	store.campaigns = append(store.campaigns, campaign)
	step := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, StepType: campaignmodels.StepTypeAIEmail, Sequence: 1,
	})
	lead := store.addLead(crmmodels.Lead{FirstName: "An", WorkEmail: "an@corp.vn", JobTitle: "CTO"})
	inbox := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "sales@mail.io", Active: true, DailyCap: 100, LastResetAt: store.nowMilli,
	})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID, CurrentStepID: step.ID,
		Status: runtimemodels.StateStatusActive,
	})

	completer := &fakeCompleter{output: "Subject: Quick hello\n\nHi An, short pitch here."}
	engine := newTestEngine(store, nil, nil, completer)

	draft, err := engine.generateDraft(context.Background(), campaign, step, &lead, &state)
	require.NoError(t, err)

	assert.Equal(t, "Quick hello", draft.Subject)
	assert.Equal(t, "Hi An, short pitch here.", draft.BodyText)
	assert.Equal(t, runtimemodels.DraftStatusPending, draft.Status)
	assert.Equal(t, "an@corp.vn", draft.ToEmail)
	assert.Equal(t, inbox.ID, draft.InboxID, "draft phải mang inbox sẽ gửi để đọc thread và threading")
	assert.Equal(t, "sales@mail.io", draft.FromEmail)
	assert.Equal(t, inbox.ID, store.states[state.ID].AssignedInboxID, "inbox chọn khi sinh draft phải dính vào state")
	assert.Equal(t, "friendly-sdr", draft.LLMProfileName, "hồ sơ mặc định phải được snapshot vào draft")
	assert.Equal(t, "Be warm, one CTA.", draft.LLMProfileRules)

	// Sinh draft là một mốc trong timeline của lead
	require.Len(t, store.activities, 1)
	assert.Equal(t, runtimemodels.ActivityDraftCreated, store.activities[0].ActivityType)
	assert.Equal(t, draft.ID.Hex(), store.activities[0].Metadata["draftId"])

	// Prompt phải chứa rules của hồ sơ và ngữ cảnh lead
	require.Len(t, completer.calls, 1)
	messages := completer.calls[0]
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0].Content, "Be warm, one CTA.")
	assert.Contains(t, messages[1].Content, "We sell CRM tooling.")
	assert.Contains(t, messages[1].Content, "Name: An")
	assert.Contains(t, messages[1].Content, "Job title: CTO")
}

func TestGenerateDraft_ThreadContextFlowsIntoPrompt(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "Outbound", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	step := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, StepType: campaignmodels.StepTypeAIEmail, Sequence: 2,
	})
	lead := store.addLead(crmmodels.Lead{FirstName: "An", WorkEmail: "an@corp.vn"})
	inbox := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "sales@mail.io", Active: true, DailyCap: 100,
		IMAPHost: "imap.mail.io", IMAPUsername: "sales", IMAPPassword: "pw",
		LastResetAt: store.nowMilli,
	})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: lead.ID, CampaignID: campaign.ID, CurrentStepID: step.ID,
		Status: runtimemodels.StateStatusActive, AssignedInboxID: inbox.ID,
	})
	store.messages = append(store.messages, runtimemodels.OutboundMessage{
		ID: primitive.NewObjectID(), LeadID: lead.ID, CampaignID: campaign.ID, InboxID: inbox.ID,
		Direction: runtimemodels.DirectionOutbound, Subject: "Quick hello",
		MessageID: "<first@mail.io>", Status: runtimemodels.MessageStatusSent, CreatedAt: store.nowMilli - 1000,
	})

	mb := &fakeMailbox{}
	completer := &fakeCompleter{output: "Subject: ignored\n\nHappy to clarify, see below."}
	engine := newTestEngine(store, nil, mb, completer)
	mb.threads["an@corp.vn"] = []mailbox.InboundEmail{
		{FromAddress: "an@corp.vn", Subject: "Re: Quick hello", BodyText: "What does pricing look like?"},
	}

	draft, err := engine.generateDraft(context.Background(), campaign, step, &lead, &state)
	require.NoError(t, err)

	// Prompt phải chứa hội thoại để LLM viết đúng mạch
	require.Len(t, completer.calls, 1)
	user := completer.calls[0][1].Content
	assert.Contains(t, user, "Conversation so far:")
	assert.Contains(t, user, "What does pricing look like?")

	// Follow-up trong thread giữ subject gốc dạng Re:
	assert.Equal(t, "Re: Quick hello", draft.Subject)
}

func TestGenerateDraft_NoInboxAvailableFails(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	step := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, StepType: campaignmodels.StepTypeAIEmail})
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@x.vn"})
	state := store.addState(runtimemodels.LeadCampaignState{LeadID: lead.ID, CampaignID: campaign.ID, CurrentStepID: step.ID})

	completer := &fakeCompleter{output: "Subject: s\n\nbody"}
	engine := newTestEngine(store, nil, nil, completer)

	_, err := engine.generateDraft(context.Background(), campaign, step, &lead, &state)
	assert.ErrorIs(t, err, common.ErrNoInboxAvailable, "không có inbox nào thì không sinh draft")
}

func TestGenerateDraft_EmptyBodyFails(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	step := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, StepType: campaignmodels.StepTypeAIEmail})
	lead := store.addLead(crmmodels.Lead{FirstName: "An", Email: "an@x.vn"})
	store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "sales@mail.io", Active: true, DailyCap: 100, LastResetAt: store.nowMilli,
	})
	state := store.addState(runtimemodels.LeadCampaignState{LeadID: lead.ID, CampaignID: campaign.ID, CurrentStepID: step.ID})

	completer := &fakeCompleter{output: "Subject: Only a subject"}
	engine := newTestEngine(store, nil, nil, completer)

	_, err := engine.generateDraft(context.Background(), campaign, step, &lead, &state)
	assert.ErrorIs(t, err, common.ErrGenerationFailed)
	assert.Empty(t, store.drafts, "không được lưu draft khi body rỗng")
}
