// Package campaignvc - Service bước chiến dịch (campaign_steps).
package campaignvc

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	basesvc "copper_crm/internal/api/base/service"
	campaignmodels "copper_crm/internal/api/campaign/models"
	"copper_crm/internal/common"
	"copper_crm/internal/global"
)

// CampaignStepService xử lý CRUD các bước trong graph chiến dịch.
type CampaignStepService struct {
	*basesvc.BaseServiceMongoImpl[campaignmodels.CampaignStep]
}

// NewCampaignStepService tạo CampaignStepService mới.
func NewCampaignStepService() (*CampaignStepService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.CampaignSteps)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.CampaignSteps, common.ErrNotFound)
	}
	return &CampaignStepService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[campaignmodels.CampaignStep](coll),
	}, nil
}

// FindByCampaign trả về toàn bộ bước của chiến dịch theo thứ tự sequence.
func (s *CampaignStepService) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]campaignmodels.CampaignStep, error) {
	filter := bson.M{"campaignId": campaignID}
	opts := mongoopts.Find().SetSort(bson.D{{Key: "sequence", Value: 1}, {Key: "_id", Value: 1}})
	return s.Find(ctx, filter, opts)
}

// FindEntryStep trả về bước entry của chiến dịch.
// Mỗi chiến dịch chạy được phải có đúng một bước entry.
func (s *CampaignStepService) FindEntryStep(ctx context.Context, campaignID primitive.ObjectID) (campaignmodels.CampaignStep, error) {
	var zero campaignmodels.CampaignStep
	filter := bson.M{"campaignId": campaignID, "stepType": campaignmodels.StepTypeEntry}
	step, err := s.FindOne(ctx, filter, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, common.ErrStepNotFound
		}
		return zero, err
	}
	return step, nil
}

// FindFirstSequential trả về bước có sequence nhỏ nhất lớn hơn sequence đã cho.
// Dùng làm fallback khi bước hiện tại không có edge đi ra nào match.
func (s *CampaignStepService) FindFirstSequential(ctx context.Context, campaignID primitive.ObjectID, afterSequence int) (campaignmodels.CampaignStep, bool, error) {
	var zero campaignmodels.CampaignStep
	filter := bson.M{"campaignId": campaignID, "sequence": bson.M{"$gt": afterSequence}}
	opts := mongoopts.FindOne().SetSort(bson.D{{Key: "sequence", Value: 1}, {Key: "_id", Value: 1}})
	step, err := s.FindOne(ctx, filter, opts)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return step, true, nil
}

// DeleteByCampaign xóa toàn bộ bước của chiến dịch (dùng khi xóa chiến dịch).
func (s *CampaignStepService) DeleteByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	return s.DeleteMany(ctx, bson.M{"campaignId": campaignID})
}
