// Package runtimevc - Service hộp thư gửi đi (outbound_inboxes).
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

// OutboundInboxService quản lý pool hộp thư gửi đi và hạn mức ngày.
type OutboundInboxService struct {
	*basesvc.BaseServiceMongoImpl[runtimemodels.OutboundInbox]
}

// NewOutboundInboxService tạo OutboundInboxService mới.
func NewOutboundInboxService() (*OutboundInboxService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.OutboundInboxes)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.OutboundInboxes, common.ErrNotFound)
	}
	return &OutboundInboxService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[runtimemodels.OutboundInbox](coll),
	}, nil
}

// FindActive trả về các inbox đang hoạt động, sắp theo dailySent tăng dần
// để allocator ưu tiên inbox ít dùng nhất.
func (s *OutboundInboxService) FindActive(ctx context.Context) ([]runtimemodels.OutboundInbox, error) {
	filter := bson.M{"active": true}
	opts := mongoopts.Find().SetSort(bson.D{{Key: "dailySent", Value: 1}, {Key: "_id", Value: 1}})
	return s.Find(ctx, filter, opts)
}

// FindWithIMAP trả về các inbox active có đủ thông tin IMAP để poll phản hồi.
func (s *OutboundInboxService) FindWithIMAP(ctx context.Context) ([]runtimemodels.OutboundInbox, error) {
	filter := bson.M{
		"active":       true,
		"imapHost":     bson.M{"$nin": []interface{}{nil, ""}},
		"imapUsername": bson.M{"$nin": []interface{}{nil, ""}},
	}
	return s.Find(ctx, filter, nil)
}

// ResetDailyIfNeeded reset lười bộ đếm dailySent khi inbox đã sang ngày UTC mới.
// Filter theo lastResetAt cũ để hai tick song song chỉ reset một lần.
func (s *OutboundInboxService) ResetDailyIfNeeded(ctx context.Context, inbox *runtimemodels.OutboundInbox, now time.Time) error {
	if !inbox.NeedsDailyReset(now) {
		return nil
	}
	filter := bson.M{"_id": inbox.ID, "lastResetAt": inbox.LastResetAt}
	if inbox.LastResetAt == 0 {
		filter = bson.M{"_id": inbox.ID, "lastResetAt": bson.M{"$in": []interface{}{nil, 0}}}
	}
	set := map[string]interface{}{
		"dailySent":   0,
		"lastResetAt": now.UnixMilli(),
	}
	updated, err := s.FindOneAndUpdate(ctx, filter, &basesvc.UpdateData{Set: set}, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Tick khác đã reset trước, đọc lại bản mới
			fresh, findErr := s.FindOneById(ctx, inbox.ID)
			if findErr != nil {
				return findErr
			}
			*inbox = fresh
			return nil
		}
		return err
	}
	*inbox = updated
	return nil
}

// ClaimSlot giữ một suất gửi trong hạn mức ngày của inbox một cách nguyên tử.
// Filter dailySent < dailyCap cộng $inc đảm bảo không bao giờ vượt cap
// dù nhiều tick chạy song song. Trả về false nếu inbox đã hết suất.
func (s *OutboundInboxService) ClaimSlot(ctx context.Context, inboxID primitive.ObjectID, cap int) (bool, error) {
	filter := bson.M{
		"_id":       inboxID,
		"active":    true,
		"dailySent": bson.M{"$lt": cap},
	}
	update := &basesvc.UpdateData{Inc: map[string]interface{}{"dailySent": 1}}
	_, err := s.FindOneAndUpdate(ctx, filter, update, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReleaseSlot trả lại suất đã claim khi gửi thất bại.
func (s *OutboundInboxService) ReleaseSlot(ctx context.Context, inboxID primitive.ObjectID) error {
	filter := bson.M{"_id": inboxID, "dailySent": bson.M{"$gt": 0}}
	update := &basesvc.UpdateData{Inc: map[string]interface{}{"dailySent": -1}}
	_, err := s.FindOneAndUpdate(ctx, filter, update, nil)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// UpdateLastUID cập nhật high-water mark UID IMAP sau một lần poll.
// $max để UID không bao giờ tụt lùi khi hai lần poll đan xen.
func (s *OutboundInboxService) UpdateLastUID(ctx context.Context, inboxID primitive.ObjectID, uid uint32, checkedAt int64) error {
	update := bson.M{
		"$max": bson.M{"imapLastUid": uid},
		"$set": bson.M{
			"imapLastCheckedAt": checkedAt,
			"updatedAt":         time.Now().UnixMilli(),
		},
	}
	_, err := s.Collection().UpdateOne(ctx, bson.M{"_id": inboxID}, update)
	if err != nil {
		return common.ConvertMongoError(err)
	}
	return nil
}
