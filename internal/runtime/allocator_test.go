// Test cấp phát inbox: sticky, chọn theo tỷ lệ, hạn mức và reset ngày UTC.
package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
)

func TestAllocateInbox_PicksLowestRatio(t *testing.T) {
	store := newFakeStore()
	busy := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "busy@mail.io", Active: true, DailyCap: 100, DailySent: 80,
		LastResetAt: store.nowMilli,
	})
	idle := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "idle@mail.io", Active: true, DailyCap: 100, DailySent: 10,
		LastResetAt: store.nowMilli,
	})
	_ = busy
	engine := newTestEngine(store, nil, nil, nil)

	state := runtimemodels.LeadCampaignState{ID: primitive.NewObjectID()}
	got, err := engine.allocateInbox(context.Background(), &state)
	require.NoError(t, err)
	assert.Equal(t, idle.ID, got.ID, "phải chọn inbox có tỷ lệ dailySent/cap thấp nhất")
	assert.Equal(t, 11, store.inboxes[idle.ID].DailySent, "claim phải tăng dailySent")
}

func TestAllocateInbox_StickyInboxReused(t *testing.T) {
	store := newFakeStore()
	sticky := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "sticky@mail.io", Active: true, DailyCap: 100, DailySent: 99,
		LastResetAt: store.nowMilli,
	})
	store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "fresh@mail.io", Active: true, DailyCap: 100, DailySent: 0,
		LastResetAt: store.nowMilli,
	})
	engine := newTestEngine(store, nil, nil, nil)

	state := runtimemodels.LeadCampaignState{ID: primitive.NewObjectID(), AssignedInboxID: sticky.ID}
	got, err := engine.allocateInbox(context.Background(), &state)
	require.NoError(t, err)
	assert.Equal(t, sticky.ID, got.ID, "lead đã gắn inbox thì phải dùng lại inbox đó dù inbox khác rảnh hơn")
}

func TestAllocateInbox_StickyFullDoesNotSwitch(t *testing.T) {
	store := newFakeStore()
	sticky := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "sticky@mail.io", Active: true, DailyCap: 50, DailySent: 50,
		LastResetAt: store.nowMilli,
	})
	store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "fresh@mail.io", Active: true, DailyCap: 50, DailySent: 0,
		LastResetAt: store.nowMilli,
	})
	engine := newTestEngine(store, nil, nil, nil)

	state := runtimemodels.LeadCampaignState{ID: primitive.NewObjectID(), AssignedInboxID: sticky.ID}
	_, err := engine.allocateInbox(context.Background(), &state)
	assert.ErrorIs(t, err, common.ErrNoInboxAvailable, "inbox sticky hết quota thì chờ ngày mai, không đổi inbox để giữ thread")
}

func TestAllocateInbox_StickyDeletedFallsBackToPool(t *testing.T) {
	store := newFakeStore()
	fresh := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "fresh@mail.io", Active: true, DailyCap: 50,
		LastResetAt: store.nowMilli,
	})
	engine := newTestEngine(store, nil, nil, nil)

	state := runtimemodels.LeadCampaignState{ID: primitive.NewObjectID(), AssignedInboxID: primitive.NewObjectID()}
	got, err := engine.allocateInbox(context.Background(), &state)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)
}

func TestAllocateInbox_DailyResetOnNewUTCDay(t *testing.T) {
	store := newFakeStore()
	yesterday := time.UnixMilli(store.nowMilli).UTC().Add(-24 * time.Hour)
	inbox := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "only@mail.io", Active: true, DailyCap: 100, DailySent: 100,
		LastResetAt: yesterday.UnixMilli(),
	})
	engine := newTestEngine(store, nil, nil, nil)

	state := runtimemodels.LeadCampaignState{ID: primitive.NewObjectID()}
	got, err := engine.allocateInbox(context.Background(), &state)
	require.NoError(t, err)
	assert.Equal(t, inbox.ID, got.ID, "sang ngày UTC mới bộ đếm phải reset và inbox dùng lại được")
	assert.Equal(t, 1, store.inboxes[inbox.ID].DailySent)
}

func TestSelectInbox_DoesNotConsumeQuota(t *testing.T) {
	store := newFakeStore()
	idle := store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "idle@mail.io", Active: true, DailyCap: 100, DailySent: 10,
		LastResetAt: store.nowMilli,
	})
	store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "busy@mail.io", Active: true, DailyCap: 100, DailySent: 80,
		LastResetAt: store.nowMilli,
	})
	engine := newTestEngine(store, nil, nil, nil)

	got, err := engine.selectInbox(context.Background())
	require.NoError(t, err)
	assert.Equal(t, idle.ID, got.ID)
	assert.Equal(t, 10, store.inboxes[idle.ID].DailySent,
		"chọn inbox lúc enroll hay sinh draft không được trừ suất gửi, suất chỉ trừ khi gửi thật")
}

func TestAllocateInbox_AllFull(t *testing.T) {
	store := newFakeStore()
	store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "a@mail.io", Active: true, DailyCap: 10, DailySent: 10,
		LastResetAt: store.nowMilli,
	})
	store.addInbox(runtimemodels.OutboundInbox{
		EmailAddress: "b@mail.io", Active: false, DailyCap: 10,
		LastResetAt: store.nowMilli,
	})
	engine := newTestEngine(store, nil, nil, nil)

	state := runtimemodels.LeadCampaignState{ID: primitive.NewObjectID()}
	_, err := engine.allocateInbox(context.Background(), &state)
	assert.ErrorIs(t, err, common.ErrNoInboxAvailable)
}
