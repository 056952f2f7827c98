// Package runtimevc - Service hoạt động của lead (lead_activities).
package runtimevc

import (
	"context"
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

// LeadActivityService ghi và truy vấn timeline hoạt động của lead.
// Collection append-only: chỉ insert, không bao giờ update.
type LeadActivityService struct {
	*basesvc.BaseServiceMongoImpl[runtimemodels.LeadActivity]
}

// NewLeadActivityService tạo LeadActivityService mới.
func NewLeadActivityService() (*LeadActivityService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.LeadActivities)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.LeadActivities, common.ErrNotFound)
	}
	return &LeadActivityService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[runtimemodels.LeadActivity](coll),
	}, nil
}

// Record ghi một hoạt động mới cho lead.
func (s *LeadActivityService) Record(ctx context.Context, activity runtimemodels.LeadActivity) (runtimemodels.LeadActivity, error) {
	if activity.OccurredAt == 0 {
		activity.OccurredAt = time.Now().UnixMilli()
	}
	return s.InsertOne(ctx, activity)
}

// HasActivitySince kiểm tra lead có hoạt động loại đã cho trong chiến dịch kể từ thời điểm sinceMilli không.
// Dùng để đánh giá edge condition event/no_event và open/no_open theo window.
func (s *LeadActivityService) HasActivitySince(ctx context.Context, leadID, campaignID primitive.ObjectID, activityType string, sinceMilli int64) (bool, error) {
	filter := bson.M{
		"leadId":       leadID,
		"campaignId":   campaignID,
		"activityType": activityType,
	}
	if sinceMilli > 0 {
		filter["occurredAt"] = bson.M{"$gte": sinceMilli}
	}
	return s.DocumentExists(ctx, filter)
}

// FindRecentByLead trả về các hoạt động gần nhất của lead (mới nhất trước).
func (s *LeadActivityService) FindRecentByLead(ctx context.Context, leadID primitive.ObjectID, limit int64) ([]runtimemodels.LeadActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	filter := bson.M{"leadId": leadID}
	opts := mongoopts.Find().SetLimit(limit).SetSort(bson.D{{Key: "occurredAt", Value: -1}})
	return s.Find(ctx, filter, opts)
}
