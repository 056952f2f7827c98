// Cấp phát inbox gửi trong hạn mức ngày.
package runtime

import (
	"context"
	"errors"

	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
)

// allocateInbox chọn inbox để gửi cho một state.
//
// Lead đã có inbox gắn sẵn (sticky) thì luôn thử inbox đó trước để toàn bộ
// thread đi ra từ cùng một địa chỉ. Chưa có thì chọn inbox active còn
// quota với tỷ lệ dailySent/dailyCap thấp nhất.
//
// Trước khi xét quota, bộ đếm ngày của inbox được reset lười nếu đã sang
// ngày UTC mới. Claim quota là thao tác nguyên tử trên store nên hai tick
// song song không thể vượt cap.
func (e *Engine) allocateInbox(ctx context.Context, state *runtimemodels.LeadCampaignState) (runtimemodels.OutboundInbox, error) {
	var zero runtimemodels.OutboundInbox
	now := e.now()

	if !state.AssignedInboxID.IsZero() {
		inbox, err := e.store.Inbox(ctx, state.AssignedInboxID)
		if err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				return zero, err
			}
			// Inbox cũ đã bị xóa, rơi xuống chọn mới
		} else {
			if err := e.store.ResetInboxDaily(ctx, &inbox, now); err != nil {
				return zero, err
			}
			claimed, claimErr := e.store.ClaimInboxSlot(ctx, inbox.ID, inbox.Cap())
			if claimErr != nil {
				return zero, claimErr
			}
			if claimed {
				return inbox, nil
			}
			// Inbox sticky hết quota hôm nay: không chuyển inbox khác
			// để giữ nguyên thread, chờ ngày mai
			return zero, common.ErrNoInboxAvailable
		}
	}

	best, err := e.selectInbox(ctx)
	if err != nil {
		return zero, err
	}

	claimed, err := e.store.ClaimInboxSlot(ctx, best.ID, best.Cap())
	if err != nil {
		return zero, err
	}
	if !claimed {
		// Tick khác vừa lấy suất cuối, thử lại tick sau
		return zero, common.ErrNoInboxAvailable
	}
	return best, nil
}

// selectInbox chọn inbox active còn quota với tỷ lệ dailySent/dailyCap thấp
// nhất, không claim suất gửi. Dùng khi enroll và khi gắn inbox cho draft,
// suất gửi chỉ bị trừ lúc gửi thật.
func (e *Engine) selectInbox(ctx context.Context) (runtimemodels.OutboundInbox, error) {
	var zero runtimemodels.OutboundInbox
	now := e.now()

	inboxes, err := e.store.ActiveInboxes(ctx)
	if err != nil {
		return zero, err
	}

	var best *runtimemodels.OutboundInbox
	bestRatio := 2.0
	for i := range inboxes {
		inbox := &inboxes[i]
		if err := e.store.ResetInboxDaily(ctx, inbox, now); err != nil {
			return zero, err
		}
		if !inbox.HasCapacity() {
			continue
		}
		ratio := float64(inbox.DailySent) / float64(inbox.Cap())
		if ratio < bestRatio {
			bestRatio = ratio
			best = inbox
		}
	}
	if best == nil {
		return zero, common.ErrNoInboxAvailable
	}
	return *best, nil
}
