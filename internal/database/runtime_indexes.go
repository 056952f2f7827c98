// Package database - Index bổ sung cho engine chiến dịch (compound nhiều field) không thể định nghĩa qua model tags.
package database

import (
	"context"
	"strings"

	"copper_crm/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateRuntimeAdditionalIndexes tạo các index bổ sung cho engine chiến dịch.
// Gọi sau CreateIndexes cho từng collection runtime.
func CreateRuntimeAdditionalIndexes(ctx context.Context, db *mongo.Database) error {
	// lead_campaign_states: (campaignId, status, nextStepAt): truy vấn state đến hạn mỗi tick
	states := db.Collection(global.MongoDB_ColNames.LeadCampaignStates)
	if _, err := states.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "campaignId", Value: 1},
			{Key: "status", Value: 1},
			{Key: "nextStepAt", Value: 1},
		},
		Options: options.Index().SetName("state_campaign_status_due"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// campaign_email_drafts: (status, createdAt): hàng đợi duyệt bản nháp FIFO
	drafts := db.Collection(global.MongoDB_ColNames.CampaignEmailDrafts)
	if _, err := drafts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "createdAt", Value: 1},
		},
		Options: options.Index().SetName("draft_status_created"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// outbound_messages: (leadId, campaignId, createdAt): dựng lại thread hội thoại của lead
	messages := db.Collection(global.MongoDB_ColNames.OutboundMessages)
	if _, err := messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "leadId", Value: 1},
			{Key: "campaignId", Value: 1},
			{Key: "createdAt", Value: 1},
		},
		Options: options.Index().SetName("message_lead_campaign_created"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// outbound_messages: (inboxId, imapUid desc): high-water mark khi poll IMAP
	if _, err := messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "inboxId", Value: 1},
			{Key: "imapUid", Value: -1},
		},
		Options: options.Index().SetName("message_inbox_uid").SetSparse(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	return nil
}

func isIndexExistsError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "already exists") || strings.Contains(s, "duplicate")
}
