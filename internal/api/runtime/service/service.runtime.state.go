// Package runtimevc - Service state lead trong chiến dịch (lead_campaign_states).
package runtimevc

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	basesvc "copper_crm/internal/api/base/service"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
	"copper_crm/internal/global"
)

// LeadCampaignStateService xử lý state machine của từng lead trong một chiến dịch.
type LeadCampaignStateService struct {
	*basesvc.BaseServiceMongoImpl[runtimemodels.LeadCampaignState]
}

// NewLeadCampaignStateService tạo LeadCampaignStateService mới.
func NewLeadCampaignStateService() (*LeadCampaignStateService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.LeadCampaignStates)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.LeadCampaignStates, common.ErrNotFound)
	}
	return &LeadCampaignStateService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[runtimemodels.LeadCampaignState](coll),
	}, nil
}

// Enroll tạo state mới cho lead trong chiến dịch.
// Unique index (leadId, campaignId) đảm bảo mỗi lead chỉ có một state mỗi chiến dịch;
// nếu đã tồn tại thì trả về state hiện có và created = false.
func (s *LeadCampaignStateService) Enroll(ctx context.Context, state runtimemodels.LeadCampaignState) (runtimemodels.LeadCampaignState, bool, error) {
	var zero runtimemodels.LeadCampaignState
	inserted, err := s.InsertOne(ctx, state)
	if err == nil {
		return inserted, true, nil
	}
	if !errors.Is(err, common.ErrDuplicate) && !mongo.IsDuplicateKeyError(err) {
		return zero, false, err
	}

	existing, findErr := s.FindByLeadAndCampaign(ctx, state.LeadID, state.CampaignID)
	if findErr != nil {
		return zero, false, findErr
	}
	return existing, false, nil
}

// FindByLeadAndCampaign trả về state của một lead trong một chiến dịch.
func (s *LeadCampaignStateService) FindByLeadAndCampaign(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.LeadCampaignState, error) {
	filter := bson.M{"leadId": leadID, "campaignId": campaignID}
	return s.FindOne(ctx, filter, nil)
}

// FindDue trả về các state đến hạn xử lý của chiến dịch:
// status chưa terminal và nextStepAt <= now (nextStepAt = 0 nghĩa là xử lý ngay).
func (s *LeadCampaignStateService) FindDue(ctx context.Context, campaignID primitive.ObjectID, nowMilli int64, limit int64) ([]runtimemodels.LeadCampaignState, error) {
	filter := bson.M{
		"campaignId": campaignID,
		"status":     bson.M{"$nin": runtimemodels.TerminalStateStatuses},
		"$or": []bson.M{
			{"nextStepAt": bson.M{"$lte": nowMilli}},
			{"nextStepAt": bson.M{"$exists": false}},
			{"nextStepAt": 0},
		},
	}
	opts := mongoopts.Find().SetSort(bson.D{{Key: "nextStepAt", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.Find(ctx, filter, opts)
}

// EnrolledLeadIDs trả về danh sách leadId đã có state trong chiến dịch.
func (s *LeadCampaignStateService) EnrolledLeadIDs(ctx context.Context, campaignID primitive.ObjectID) ([]primitive.ObjectID, error) {
	values, err := s.Distinct(ctx, "leadId", bson.M{"campaignId": campaignID})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// EngagedLeadIDs trả về leadId đang có state chưa kết thúc ở bất kỳ chiến dịch
// nào. Lead đã stopped hoặc completed không tính, để chiến dịch sau còn enroll
// lại được nếu họ chưa từng được gửi email.
func (s *LeadCampaignStateService) EngagedLeadIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	filter := bson.M{"status": bson.M{"$nin": bson.A{
		runtimemodels.StateStatusStopped,
		runtimemodels.StateStatusCompleted,
	}}}
	values, err := s.Distinct(ctx, "leadId", filter)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// CountByCampaign đếm số state của chiến dịch (mọi trạng thái).
func (s *LeadCampaignStateService) CountByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	return s.CountDocuments(ctx, bson.M{"campaignId": campaignID})
}

// Transition cập nhật state một cách có điều kiện: chỉ khi state còn đúng trạng thái cũ.
// Tránh hai worker cùng xử lý một state.
func (s *LeadCampaignStateService) Transition(ctx context.Context, stateID primitive.ObjectID, fromStatus string, set map[string]interface{}) (runtimemodels.LeadCampaignState, error) {
	filter := bson.M{"_id": stateID, "status": fromStatus}
	update := &basesvc.UpdateData{Set: set}
	return s.FindOneAndUpdate(ctx, filter, update, nil)
}

// StopForLead dừng mọi state chưa terminal của một lead (khi lead opt-out).
func (s *LeadCampaignStateService) StopForLead(ctx context.Context, leadID primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"leadId": leadID,
		"status": bson.M{"$nin": runtimemodels.TerminalStateStatuses},
	}
	update := bson.M{"status": runtimemodels.StateStatusStopped}
	return s.UpdateMany(ctx, filter, update)
}
