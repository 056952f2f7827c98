// Package campaignvc - Service chiến dịch outbound (campaigns).
package campaignvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	basesvc "copper_crm/internal/api/base/service"
	campaignmodels "copper_crm/internal/api/campaign/models"
	"copper_crm/internal/common"
	"copper_crm/internal/global"
)

// CampaignService xử lý CRUD và vòng đời chiến dịch.
type CampaignService struct {
	*basesvc.BaseServiceMongoImpl[campaignmodels.Campaign]
}

// NewCampaignService tạo CampaignService mới.
func NewCampaignService() (*CampaignService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Campaigns)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.Campaigns, common.ErrNotFound)
	}
	return &CampaignService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[campaignmodels.Campaign](coll),
	}, nil
}

// FindActive trả về các chiến dịch đang chạy (status = active).
func (s *CampaignService) FindActive(ctx context.Context) ([]campaignmodels.Campaign, error) {
	filter := bson.M{"status": campaignmodels.CampaignStatusActive}
	opts := mongoopts.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return s.Find(ctx, filter, opts)
}

// FindActiveById trả về chiến dịch theo id, chỉ khi đang active.
// Trả về found = false khi chiến dịch không tồn tại hoặc không active.
func (s *CampaignService) FindActiveById(ctx context.Context, id primitive.ObjectID) (campaignmodels.Campaign, bool, error) {
	var zero campaignmodels.Campaign
	filter := bson.M{"_id": id, "status": campaignmodels.CampaignStatusActive}
	campaign, err := s.FindOne(ctx, filter, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return campaign, true, nil
}

// Launch chuyển chiến dịch sang active và ghi thời điểm launch.
// Chỉ launch được từ trạng thái draft hoặc paused.
func (s *CampaignService) Launch(ctx context.Context, id primitive.ObjectID, notes string) (campaignmodels.Campaign, error) {
	var zero campaignmodels.Campaign
	filter := bson.M{
		"_id": id,
		"status": bson.M{"$in": []string{
			campaignmodels.CampaignStatusDraft,
			campaignmodels.CampaignStatusPaused,
		}},
	}
	update := &basesvc.UpdateData{Set: map[string]interface{}{
		"status":      campaignmodels.CampaignStatusActive,
		"launchedAt":  time.Now().UnixMilli(),
		"launchNotes": notes,
	}}
	updated, err := s.FindOneAndUpdate(ctx, filter, update, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, common.ErrCampaignInactive
		}
		return zero, err
	}
	return updated, nil
}

// Pause tạm dừng chiến dịch đang chạy.
func (s *CampaignService) Pause(ctx context.Context, id primitive.ObjectID) (campaignmodels.Campaign, error) {
	filter := bson.M{"_id": id, "status": campaignmodels.CampaignStatusActive}
	update := bson.M{"status": campaignmodels.CampaignStatusPaused}
	return s.FindOneAndUpdate(ctx, filter, update, nil)
}

// Archive lưu trữ chiến dịch, dừng mọi xử lý tiếp theo.
func (s *CampaignService) Archive(ctx context.Context, id primitive.ObjectID) (campaignmodels.Campaign, error) {
	filter := bson.M{"_id": id}
	update := bson.M{"status": campaignmodels.CampaignStatusArchived}
	return s.FindOneAndUpdate(ctx, filter, update, nil)
}
