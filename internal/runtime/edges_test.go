// Test chọn cạnh theo loại điều kiện và ba tầng fallback khi chuyển state.
package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	campaignmodels "copper_crm/internal/api/campaign/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
)

type edgeFixture struct {
	store    *fakeStore
	engine   *Engine
	campaign campaignmodels.Campaign
	from     campaignmodels.CampaignStep
	replied  campaignmodels.CampaignStep
	silent   campaignmodels.CampaignStep
	state    runtimemodels.LeadCampaignState
}

// newEdgeFixture dựng bước nguồn với hai đích: một cho reply, một cho no_reply.
func newEdgeFixture(t *testing.T) *edgeFixture {
	t.Helper()
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)

	from := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Email", StepType: campaignmodels.StepTypeAIEmail, Sequence: 2,
	})
	replied := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Goal", StepType: campaignmodels.StepTypeGoal, Sequence: 3,
	})
	silent := store.addStep(campaignmodels.CampaignStep{
		CampaignID: campaign.ID, Title: "Follow up", StepType: campaignmodels.StepTypeAIEmail, Sequence: 4,
	})

	store.edges = append(store.edges,
		campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: from.ID, ToStepID: replied.ID,
			ConditionType: campaignmodels.EdgeConditionReply, Order: 0,
		},
		campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: from.ID, ToStepID: silent.ID,
			ConditionType: campaignmodels.EdgeConditionNoReply, Order: 1,
		},
	)

	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: primitive.NewObjectID(), CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: from.ID,
	})

	return &edgeFixture{
		store: store, engine: newTestEngine(store, nil, nil, nil),
		campaign: campaign, from: from, replied: replied, silent: silent, state: state,
	}
}

func TestResolveEdge_PicksEdgeOfRequestedType(t *testing.T) {
	f := newEdgeFixture(t)

	edge, err := f.engine.resolveEdge(context.Background(), f.campaign.ID, f.from.ID, campaignmodels.EdgeConditionReply, "")
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, f.replied.ID, edge.ToStepID, "hỏi cạnh reply thì phải nhận cạnh reply")

	edge, err = f.engine.resolveEdge(context.Background(), f.campaign.ID, f.from.ID, campaignmodels.EdgeConditionNoReply, "")
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, f.silent.ID, edge.ToStepID, "hỏi cạnh no_reply thì phải nhận cạnh no_reply")
}

func TestResolveEdge_FallsBackToAlways(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	from := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "A", StepType: campaignmodels.StepTypeAIDecision, Sequence: 1})
	fallback := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "B", StepType: campaignmodels.StepTypeExit, Sequence: 2})

	store.edges = append(store.edges, campaignmodels.CampaignEdge{
		ID: primitive.NewObjectID(), CampaignID: campaign.ID,
		FromStepID: from.ID, ToStepID: fallback.ID,
		ConditionType: campaignmodels.EdgeConditionAlways, Order: 0,
	})
	engine := newTestEngine(store, nil, nil, nil)

	// Không có cạnh no_reply: rơi về cạnh always của bước
	edge, err := engine.resolveEdge(context.Background(), campaign.ID, from.ID, campaignmodels.EdgeConditionNoReply, "")
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, fallback.ID, edge.ToStepID, "không có cạnh loại đang hỏi thì phải rơi về always")
}

func TestResolveEdge_NilWhenNoEdgeAndNoAlways(t *testing.T) {
	f := newEdgeFixture(t)

	// Bước chỉ có reply/no_reply, không luôn: hỏi open phải ra nil
	edge, err := f.engine.resolveEdge(context.Background(), f.campaign.ID, f.from.ID, campaignmodels.EdgeConditionOpen, "")
	require.NoError(t, err)
	assert.Nil(t, edge, "không có cạnh loại đang hỏi lẫn always thì trả về nil")
}

func TestResolveEdge_IntentValueCaseInsensitive(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	from := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "D", StepType: campaignmodels.StepTypeAIDecision, Sequence: 1})
	meeting := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "Goal", StepType: campaignmodels.StepTypeGoal, Sequence: 2})
	other := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "Exit", StepType: campaignmodels.StepTypeExit, Sequence: 3})

	store.edges = append(store.edges,
		campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: from.ID, ToStepID: meeting.ID,
			ConditionType: campaignmodels.EdgeConditionIntent, ConditionValue: "Meeting_Request", Order: 0,
		},
		campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: from.ID, ToStepID: other.ID,
			ConditionType: campaignmodels.EdgeConditionAlways, Order: 1,
		},
	)
	engine := newTestEngine(store, nil, nil, nil)

	edge, err := engine.resolveEdge(context.Background(), campaign.ID, from.ID, campaignmodels.EdgeConditionIntent, IntentMeetingRequest)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, meeting.ID, edge.ToStepID, "giá trị intent phải so không phân biệt hoa thường")

	// Intent không khớp cạnh nào: rơi về always
	edge, err = engine.resolveEdge(context.Background(), campaign.ID, from.ID, campaignmodels.EdgeConditionIntent, IntentQuestion)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, other.ID, edge.ToStepID)
}

func TestIntentLabelsForStep_NormalizedAndDeduped(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	from := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "D", StepType: campaignmodels.StepTypeAIDecision, Sequence: 1})
	to := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "G", StepType: campaignmodels.StepTypeGoal, Sequence: 2})

	add := func(order int, condType, value string) {
		store.edges = append(store.edges, campaignmodels.CampaignEdge{
			ID: primitive.NewObjectID(), CampaignID: campaign.ID,
			FromStepID: from.ID, ToStepID: to.ID,
			ConditionType: condType, ConditionValue: value, Order: order,
		})
	}
	add(0, campaignmodels.EdgeConditionIntent, "Meeting_Request")
	add(1, campaignmodels.EdgeConditionIntent, "question")
	add(2, campaignmodels.EdgeConditionIntent, "  MEETING_REQUEST ")
	add(3, campaignmodels.EdgeConditionAlways, "")

	engine := newTestEngine(store, nil, nil, nil)
	labels, err := engine.intentLabelsForStep(context.Background(), campaign.ID, from.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"meeting_request", "question"}, labels,
		"nhãn phải lowercase, bỏ trùng và giữ thứ tự khai báo")
}

func TestTransitionToEdge_EdgeMovesStateToTarget(t *testing.T) {
	f := newEdgeFixture(t)
	edge, err := f.engine.resolveEdge(context.Background(), f.campaign.ID, f.from.ID, campaignmodels.EdgeConditionReply, "")
	require.NoError(t, err)

	next, cont, err := f.engine.transitionToEdge(context.Background(), f.state, f.from, edge, true)
	require.NoError(t, err)
	assert.True(t, cont)
	assert.Equal(t, f.replied.ID, next.CurrentStepID)
	assert.Equal(t, runtimemodels.StateStatusActive, next.Status)
	assert.Zero(t, next.NextStepAt, "bước mới phải đến hạn ngay")
}

func TestTransitionToEdge_SequenceFallbackWhenNilEdge(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	from := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "A", StepType: campaignmodels.StepTypeEntry, Sequence: 1})
	next := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "B", StepType: campaignmodels.StepTypeDelay, Sequence: 2})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: primitive.NewObjectID(), CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: from.ID,
	})
	engine := newTestEngine(store, nil, nil, nil)

	moved, cont, err := engine.transitionToEdge(context.Background(), state, from, nil, true)
	require.NoError(t, err)
	assert.True(t, cont)
	assert.Equal(t, next.ID, moved.CurrentStepID, "không có cạnh thì fallback theo sequence")
}

func TestTransitionToEdge_CompletesWhenNothingLeft(t *testing.T) {
	store := newFakeStore()
	campaign := campaignmodels.Campaign{ID: primitive.NewObjectID(), Name: "C", Status: campaignmodels.CampaignStatusActive}
	store.campaigns = append(store.campaigns, campaign)
	from := store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "A", StepType: campaignmodels.StepTypeAIEmail, Sequence: 9})
	store.addStep(campaignmodels.CampaignStep{CampaignID: campaign.ID, Title: "B", StepType: campaignmodels.StepTypeExit, Sequence: 10})
	state := store.addState(runtimemodels.LeadCampaignState{
		LeadID: primitive.NewObjectID(), CampaignID: campaign.ID,
		Status: runtimemodels.StateStatusActive, CurrentStepID: from.ID,
	})
	engine := newTestEngine(store, nil, nil, nil)

	// fallbackToSequence tắt: dù còn bước sequence sau cũng không rơi xuống
	done, cont, err := engine.transitionToEdge(context.Background(), state, from, nil, false)
	require.NoError(t, err)
	assert.False(t, cont)
	assert.Equal(t, runtimemodels.StateStatusCompleted, done.Status)
}
