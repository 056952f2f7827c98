// Package runtimevc - Service message outbound/inbound (outbound_messages).
package runtimevc

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	basesvc "copper_crm/internal/api/base/service"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
	"copper_crm/internal/global"
	"copper_crm/internal/utility"
)

// OutboundMessageService xử lý log message hai chiều của các chiến dịch.
type OutboundMessageService struct {
	*basesvc.BaseServiceMongoImpl[runtimemodels.OutboundMessage]
}

// NewOutboundMessageService tạo OutboundMessageService mới.
func NewOutboundMessageService() (*OutboundMessageService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.OutboundMessages)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.OutboundMessages, common.ErrNotFound)
	}
	return &OutboundMessageService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[runtimemodels.OutboundMessage](coll),
	}, nil
}

// GetOrCreateByMessageID lưu message theo messageId một cách nguyên tử.
// Unique index trên messageId cộng upsert $setOnInsert đảm bảo mỗi messageId
// chỉ có một bản ghi dù nhiều lần poll cùng thấy nó. Trả về created = false
// khi message đã tồn tại từ trước.
func (s *OutboundMessageService) GetOrCreateByMessageID(ctx context.Context, msg runtimemodels.OutboundMessage) (runtimemodels.OutboundMessage, bool, error) {
	var zero runtimemodels.OutboundMessage
	if msg.MessageID == "" {
		return zero, false, common.ErrRequiredField
	}

	existing, err := s.FindOne(ctx, bson.M{"messageId": msg.MessageID}, nil)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return zero, false, err
	}

	dataMap, err := utility.ToMap(msg)
	if err != nil {
		return zero, false, common.ErrInvalidFormat
	}
	delete(dataMap, "_id")
	delete(dataMap, "messageId")
	// updatedAt/createdAt do tầng base quản lý, để lại sẽ conflict operator
	delete(dataMap, "createdAt")
	delete(dataMap, "updatedAt")

	update := &basesvc.UpdateData{
		Set:         map[string]interface{}{"messageId": msg.MessageID},
		SetOnInsert: dataMap,
	}
	opts := mongoopts.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(mongoopts.After)

	created, err := s.FindOneAndUpdate(ctx, bson.M{"messageId": msg.MessageID}, update, opts)
	if err != nil {
		return zero, false, err
	}
	// Nếu createdAt của bản ghi trả về khớp với lần insert này thì là message mới
	return created, created.CreatedAt == created.UpdatedAt, nil
}

// FindLastOutbound trả về message outbound gần nhất của lead trong chiến dịch.
// Dùng để xác định thread khi gửi follow-up và để match reply.
func (s *OutboundMessageService) FindLastOutbound(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.OutboundMessage, bool, error) {
	var zero runtimemodels.OutboundMessage
	filter := bson.M{
		"leadId":     leadID,
		"campaignId": campaignID,
		"direction":  runtimemodels.DirectionOutbound,
	}
	opts := mongoopts.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	msg, err := s.FindOne(ctx, filter, opts)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return msg, true, nil
}

// FindByMessageID tìm message theo RFC 5322 Message-ID, bất kể direction.
func (s *OutboundMessageService) FindByMessageID(ctx context.Context, messageID string) (runtimemodels.OutboundMessage, bool, error) {
	var zero runtimemodels.OutboundMessage
	msg, err := s.FindOne(ctx, bson.M{"messageId": messageID}, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return msg, true, nil
}

// OutboundLeadIDs trả về danh sách leadId đã từng được gửi email outbound,
// bất kể chiến dịch. Dùng để loại lead đã contact khỏi enrollment.
func (s *OutboundMessageService) OutboundLeadIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	filter := bson.M{"direction": runtimemodels.DirectionOutbound}
	raw, err := s.Distinct(ctx, "leadId", filter)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// RecordOpen ghi nhận một lần mở email theo trackingId.
// $min giữ firstOpenedAt là lần mở sớm nhất, $inc đếm tổng số lần mở.
func (s *OutboundMessageService) RecordOpen(ctx context.Context, trackingID string, atMilli int64) (runtimemodels.OutboundMessage, bool, error) {
	var zero runtimemodels.OutboundMessage
	update := &basesvc.UpdateData{
		Set: map[string]interface{}{"lastOpenedAt": atMilli},
		Min: map[string]interface{}{"firstOpenedAt": atMilli},
		Inc: map[string]interface{}{"openCount": 1},
	}
	msg, err := s.FindOneAndUpdate(ctx, bson.M{"trackingId": trackingID}, update, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return msg, true, nil
}

// MaxInboundUID trả về UID IMAP lớn nhất đã lưu của một inbox.
// Dùng khôi phục high-water mark khi inbox chưa có imapLastUid.
func (s *OutboundMessageService) MaxInboundUID(ctx context.Context, inboxID primitive.ObjectID) (uint32, error) {
	filter := bson.M{
		"inboxId":   inboxID,
		"direction": runtimemodels.DirectionInbound,
		"imapUid":   bson.M{"$gt": 0},
	}
	opts := mongoopts.FindOne().SetSort(bson.D{{Key: "imapUid", Value: -1}})
	msg, err := s.FindOne(ctx, filter, opts)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return msg.ImapUID, nil
}
