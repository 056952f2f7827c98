// Package campaignvc - Service cạnh nối giữa các bước (campaign_edges).
package campaignvc

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	basesvc "copper_crm/internal/api/base/service"
	campaignmodels "copper_crm/internal/api/campaign/models"
	"copper_crm/internal/common"
	"copper_crm/internal/global"
)

// CampaignEdgeService xử lý CRUD các cạnh trong graph chiến dịch.
type CampaignEdgeService struct {
	*basesvc.BaseServiceMongoImpl[campaignmodels.CampaignEdge]
}

// NewCampaignEdgeService tạo CampaignEdgeService mới.
func NewCampaignEdgeService() (*CampaignEdgeService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.CampaignEdges)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.CampaignEdges, common.ErrNotFound)
	}
	return &CampaignEdgeService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[campaignmodels.CampaignEdge](coll),
	}, nil
}

// FindFromStep trả về các cạnh đi ra từ một bước, sắp theo (order, _id)
// để kết quả đánh giá edge luôn ổn định giữa các lần chạy.
func (s *CampaignEdgeService) FindFromStep(ctx context.Context, campaignID, fromStepID primitive.ObjectID) ([]campaignmodels.CampaignEdge, error) {
	filter := bson.M{"campaignId": campaignID, "fromStepId": fromStepID}
	opts := mongoopts.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})
	return s.Find(ctx, filter, opts)
}

// FindByCampaign trả về toàn bộ cạnh của chiến dịch.
func (s *CampaignEdgeService) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]campaignmodels.CampaignEdge, error) {
	filter := bson.M{"campaignId": campaignID}
	opts := mongoopts.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})
	return s.Find(ctx, filter, opts)
}

// DeleteByCampaign xóa toàn bộ cạnh của chiến dịch.
func (s *CampaignEdgeService) DeleteByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	return s.DeleteMany(ctx, bson.M{"campaignId": campaignID})
}
