// Package crmvc - Service lead CRM (leads).
package crmvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	basesvc "copper_crm/internal/api/base/service"
	crmmodels "copper_crm/internal/api/crm/models"
	"copper_crm/internal/common"
	"copper_crm/internal/global"
)

// LeadService xử lý CRUD lead và các cập nhật điểm/opt-out.
type LeadService struct {
	*basesvc.BaseServiceMongoImpl[crmmodels.Lead]
}

// NewLeadService tạo LeadService mới.
func NewLeadService() (*LeadService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Leads)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.Leads, common.ErrNotFound)
	}
	return &LeadService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[crmmodels.Lead](coll),
	}, nil
}

// FindByAnyEmail tìm lead theo địa chỉ email (khớp cả email lẫn workEmail, không phân biệt hoa thường).
func (s *LeadService) FindByAnyEmail(ctx context.Context, address string) (crmmodels.Lead, bool, error) {
	var zero crmmodels.Lead
	addr := strings.ToLower(strings.TrimSpace(address))
	if addr == "" {
		return zero, false, nil
	}
	filter := bson.M{"$or": []bson.M{
		{"email": addr},
		{"workEmail": addr},
	}}
	lead, err := s.FindOne(ctx, filter, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return lead, true, nil
}

// MarkOptedOut đánh dấu lead đã từ chối nhận email.
// Idempotent: gọi lại trên lead đã opt-out không đổi optedOutAt.
func (s *LeadService) MarkOptedOut(ctx context.Context, leadID primitive.ObjectID) error {
	filter := bson.M{"_id": leadID, "optedOut": bson.M{"$ne": true}}
	update := bson.M{
		"optedOut":   true,
		"optedOutAt": time.Now().UnixMilli(),
	}
	_, err := s.UpdateOne(ctx, filter, update)
	if errors.Is(err, common.ErrNotFound) {
		// Đã opt-out từ trước hoặc lead không tồn tại, kiểm tra lại
		exists, checkErr := s.DocumentExists(ctx, bson.M{"_id": leadID})
		if checkErr != nil {
			return checkErr
		}
		if !exists {
			return common.ErrNotFound
		}
		return nil
	}
	return err
}

// AddPoints cộng điểm cho lead và cập nhật hoạt động gần nhất trong một thao tác nguyên tử.
func (s *LeadService) AddPoints(ctx context.Context, leadID primitive.ObjectID, points int, activityType string, at int64) error {
	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"lastActivityAt":   at,
			"lastActivityType": activityType,
		},
	}
	if points != 0 {
		update.Inc = map[string]interface{}{"points": points}
	}
	_, err := s.UpdateById(ctx, leadID, update)
	return err
}

// TouchActivity cập nhật hoạt động gần nhất của lead.
// Điều kiện lastActivityAt < at để activity cũ replay không kéo lùi mốc.
func (s *LeadService) TouchActivity(ctx context.Context, leadID primitive.ObjectID, activityType string, atMilli int64) error {
	filter := bson.M{
		"_id": leadID,
		"$or": []bson.M{
			{"lastActivityAt": bson.M{"$lt": atMilli}},
			{"lastActivityAt": bson.M{"$exists": false}},
		},
	}
	update := bson.M{
		"lastActivityAt":   atMilli,
		"lastActivityType": activityType,
	}
	_, err := s.UpdateOne(ctx, filter, update)
	if errors.Is(err, common.ErrNotFound) {
		// Lead không tồn tại hoặc đã có hoạt động mới hơn, không có gì để cập nhật
		return nil
	}
	return err
}

// FindContactable trả về các lead có email và chưa opt-out, sắp theo createdAt.
// excludeIDs loại các lead đã có state trong chiến dịch.
func (s *LeadService) FindContactable(ctx context.Context, excludeIDs []primitive.ObjectID, limit int64) ([]crmmodels.Lead, error) {
	filter := bson.M{
		"optedOut": bson.M{"$ne": true},
		"$or": []bson.M{
			{"workEmail": bson.M{"$exists": true, "$ne": ""}},
			{"email": bson.M{"$exists": true, "$ne": ""}},
		},
	}
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}
	opts := mongoopts.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.Find(ctx, filter, opts)
}
