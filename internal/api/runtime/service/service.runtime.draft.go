// Package runtimevc - Service bản nháp email chờ duyệt (campaign_email_drafts).
package runtimevc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	basesvc "copper_crm/internal/api/base/service"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
	"copper_crm/internal/global"
)

// DraftStats là thống kê số bản nháp theo trạng thái.
type DraftStats struct {
	Pending  int64 `json:"pending"`
	Sent     int64 `json:"sent"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// CampaignEmailDraftService xử lý hàng đợi duyệt bản nháp email.
type CampaignEmailDraftService struct {
	*basesvc.BaseServiceMongoImpl[runtimemodels.CampaignEmailDraft]
}

// NewCampaignEmailDraftService tạo CampaignEmailDraftService mới.
func NewCampaignEmailDraftService() (*CampaignEmailDraftService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.CampaignEmailDrafts)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.CampaignEmailDrafts, common.ErrNotFound)
	}
	return &CampaignEmailDraftService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[runtimemodels.CampaignEmailDraft](coll),
	}, nil
}

// NextPending trả về bản nháp pending cũ nhất (FIFO theo createdAt).
func (s *CampaignEmailDraftService) NextPending(ctx context.Context) (runtimemodels.CampaignEmailDraft, bool, error) {
	var zero runtimemodels.CampaignEmailDraft
	filter := bson.M{"status": runtimemodels.DraftStatusPending}
	opts := mongoopts.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	draft, err := s.FindOne(ctx, filter, opts)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return draft, true, nil
}

// FindPendingByState trả về bản nháp pending của một lead trong một chiến dịch.
func (s *CampaignEmailDraftService) FindPendingByState(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.CampaignEmailDraft, bool, error) {
	var zero runtimemodels.CampaignEmailDraft
	filter := bson.M{
		"leadId":     leadID,
		"campaignId": campaignID,
		"status":     runtimemodels.DraftStatusPending,
	}
	draft, err := s.FindOne(ctx, filter, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return draft, true, nil
}

// Decide chốt quyết định duyệt một cách nguyên tử: chỉ chuyển được từ pending.
// Hai người cùng duyệt một bản nháp thì chỉ một người thắng, người còn lại nhận ErrDraftRejected.
func (s *CampaignEmailDraftService) Decide(ctx context.Context, draftID primitive.ObjectID, approve bool, decidedBy string) (runtimemodels.CampaignEmailDraft, error) {
	var zero runtimemodels.CampaignEmailDraft
	now := time.Now().UnixMilli()

	newStatus := runtimemodels.DraftStatusRejected
	if approve {
		newStatus = runtimemodels.DraftStatusSent
	}

	filter := bson.M{"_id": draftID, "status": runtimemodels.DraftStatusPending}
	set := map[string]interface{}{
		"status":     newStatus,
		"approvedBy": decidedBy,
		"approvedAt": now,
	}
	if approve {
		set["sentAt"] = now
	}

	draft, err := s.FindOneAndUpdate(ctx, filter, &basesvc.UpdateData{Set: set}, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Draft không tồn tại hoặc đã được quyết định trước đó
			exists, checkErr := s.DocumentExists(ctx, bson.M{"_id": draftID})
			if checkErr != nil {
				return zero, checkErr
			}
			if !exists {
				return zero, common.ErrNotFound
			}
			return zero, common.ErrDraftRejected
		}
		return zero, err
	}
	return draft, nil
}

// Reopen mở lại bản nháp về pending, chỉ chuyển được từ sent.
// Dùng khi claim duyệt xong nhưng gửi SMTP thất bại, để lần duyệt sau gửi lại.
func (s *CampaignEmailDraftService) Reopen(ctx context.Context, draftID primitive.ObjectID) error {
	filter := bson.M{"_id": draftID, "status": runtimemodels.DraftStatusSent}
	update := &basesvc.UpdateData{
		Set: map[string]interface{}{"status": runtimemodels.DraftStatusPending},
		Unset: map[string]interface{}{
			"approvedBy": "",
			"approvedAt": "",
			"sentAt":     "",
		},
	}
	_, err := s.FindOneAndUpdate(ctx, filter, update, nil)
	if errors.Is(err, common.ErrNotFound) {
		// Draft không còn ở sent, không có gì để mở lại
		return nil
	}
	return err
}

// Stats đếm số bản nháp theo từng trạng thái.
func (s *CampaignEmailDraftService) Stats(ctx context.Context) (*DraftStats, error) {
	stats := &DraftStats{}
	counts := map[string]*int64{
		runtimemodels.DraftStatusPending:  &stats.Pending,
		runtimemodels.DraftStatusSent:     &stats.Sent,
		runtimemodels.DraftStatusRejected: &stats.Rejected,
	}
	for status, dst := range counts {
		n, err := s.CountDocuments(ctx, bson.M{"status": status})
		if err != nil {
			return nil, err
		}
		*dst = n
	}
	stats.Total = stats.Pending + stats.Sent + stats.Rejected
	return stats, nil
}
