package runtime

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	campaignmodels "copper_crm/internal/api/campaign/models"
	"copper_crm/internal/common"
)

// TickResult tổng hợp một lượt tick của engine.
type TickResult struct {
	Campaigns int `json:"campaigns"`
	Enrolled  int `json:"enrolled"`
	Processed int `json:"processed"`
	Replies   int `json:"replies"`
}

// Tick chạy một lượt đầy đủ: ingest reply trước để edge condition và
// early-reply thấy dữ liệu mới nhất, rồi enroll và xử lý state đến hạn
// cho từng chiến dịch active. Lỗi của từng state chỉ được log để một
// lead hỏng không chặn cả batch.
//
// campaignID khác zero thì chỉ tick riêng chiến dịch đó, dùng khi
// operator muốn đẩy một chiến dịch đi ngay không đợi lượt chung.
func (e *Engine) Tick(ctx context.Context, campaignID primitive.ObjectID) (TickResult, error) {
	var result TickResult

	replies, err := e.IngestReplies(ctx)
	if err != nil {
		e.log.WithError(err).Error("⚙️ [ENGINE] Lỗi khi ingest reply, vẫn tiếp tục tick")
	}
	result.Replies = replies

	var campaigns []campaignmodels.Campaign
	if campaignID.IsZero() {
		campaigns, err = e.store.ActiveCampaigns(ctx)
		if err != nil {
			return result, err
		}
	} else {
		campaign, found, campErr := e.store.ActiveCampaign(ctx, campaignID)
		if campErr != nil {
			return result, campErr
		}
		if !found {
			return result, common.ErrNotFound
		}
		campaigns = []campaignmodels.Campaign{campaign}
	}
	result.Campaigns = len(campaigns)

	nowMilli := e.now().UnixMilli()
	for i := range campaigns {
		campaign := campaigns[i]

		enrolled, enrollErr := e.EnrollLeads(ctx, campaign)
		if enrollErr != nil {
			e.log.WithError(enrollErr).WithField("campaign", campaign.Name).
				Error("⚙️ [ENGINE] Lỗi khi enroll lead")
		}
		result.Enrolled += enrolled

		states, dueErr := e.store.DueStates(ctx, campaign.ID, nowMilli, e.opts.BatchSize)
		if dueErr != nil {
			e.log.WithError(dueErr).WithField("campaign", campaign.Name).
				Error("⚙️ [ENGINE] Lỗi khi truy vấn state đến hạn")
			continue
		}
		for j := range states {
			if procErr := e.ProcessState(ctx, campaign, states[j]); procErr != nil {
				e.log.WithError(procErr).WithFields(map[string]interface{}{
					"campaign": campaign.Name,
					"stateId":  states[j].ID.Hex(),
				}).Error("⚙️ [ENGINE] Lỗi khi xử lý state")
				continue
			}
			result.Processed++
		}
	}

	e.log.WithFields(map[string]interface{}{
		"campaigns": result.Campaigns,
		"enrolled":  result.Enrolled,
		"processed": result.Processed,
		"replies":   result.Replies,
	}).Info("⚙️ [ENGINE] Hoàn thành một tick")
	return result, nil
}
