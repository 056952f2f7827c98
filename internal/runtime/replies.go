// Ingest phản hồi từ IMAP: dedup theo messageId, ghi activity, opt-out, reply edge.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	campaignmodels "copper_crm/internal/api/campaign/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
	"copper_crm/internal/mailbox"
)

// IngestReplies poll toàn bộ inbox có cấu hình IMAP và xử lý các email mới.
// Trả về số reply mới đã ghi nhận. Lỗi của từng inbox chỉ được log,
// không làm hỏng cả lượt poll.
func (e *Engine) IngestReplies(ctx context.Context) (int, error) {
	inboxes, err := e.store.IMAPInboxes(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range inboxes {
		inbox := inboxes[i]
		n, inboxErr := e.ingestInbox(ctx, &inbox)
		total += n
		if inboxErr != nil {
			e.log.WithError(inboxErr).WithField("inbox", inbox.EmailAddress).
				Error("📬 [ENGINE] Lỗi khi ingest reply từ inbox")
		}
	}
	return total, nil
}

// ingestInbox poll một inbox từ UID high-water mark và xử lý từng email.
func (e *Engine) ingestInbox(ctx context.Context, inbox *runtimemodels.OutboundInbox) (int, error) {
	sinceUID := inbox.IMAPLastUID
	if sinceUID == 0 {
		// Inbox mới chưa có mark, khôi phục từ message inbound đã lưu
		recovered, err := e.store.MaxInboundUID(ctx, inbox.ID)
		if err != nil {
			return 0, err
		}
		sinceUID = recovered
	}

	emails, maxUID, err := e.mailbox.FetchNew(inbox, sinceUID, e.opts.FetchLimit)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range emails {
		processed, ingestErr := e.ingestOne(ctx, inbox, &emails[i])
		if ingestErr != nil {
			e.log.WithError(ingestErr).WithFields(map[string]interface{}{
				"inbox":     inbox.EmailAddress,
				"messageId": emails[i].MessageID,
			}).Error("📬 [ENGINE] Lỗi khi xử lý một reply")
			continue
		}
		if processed {
			count++
		}
	}

	// Chỉ tiến mark về phía trước, $max ở tầng store chặn race giữa các tick
	if maxUID > sinceUID {
		if err := e.store.UpdateInboxUID(ctx, inbox.ID, maxUID, e.now().UnixMilli()); err != nil {
			return count, err
		}
	}
	return count, nil
}

// ingestOne xử lý một email inbound. Trả về true nếu đây là reply mới
// (messageId chưa từng thấy) và đã được ghi nhận.
// Thứ tự cố định: ghi activity email_reply và cộng điểm trước, rồi mới xét
// unsubscribe, cuối cùng mới chuyển state theo cạnh reply.
func (e *Engine) ingestOne(ctx context.Context, inbox *runtimemodels.OutboundInbox, email *mailbox.InboundEmail) (bool, error) {
	nowMilli := e.now().UnixMilli()

	// Email do chính inbox gửi lọt vào folder inbox thì không phải reply
	if email.FromAddress == "" || strings.EqualFold(email.FromAddress, inbox.EmailAddress) {
		return false, nil
	}

	messageID := email.MessageID
	if messageID == "" {
		// Một số mailer bỏ Message-ID, tự sinh khóa dedup ổn định theo UID
		messageID = fmt.Sprintf("<imap-%s-%d@%s>", inbox.ID.Hex(), email.UID, inbox.EmailAddress)
	}

	// Gắn reply vào thread outbound qua In-Reply-To rồi đến References
	matched, matchedFound, err := e.matchOutbound(ctx, email)
	if err != nil {
		return false, err
	}

	leadID := matched.LeadID
	campaignID := matched.CampaignID
	if !matchedFound {
		lead, found, leadErr := e.store.LeadByEmail(ctx, email.FromAddress)
		if leadErr != nil {
			return false, leadErr
		}
		if !found {
			// Không biết người gửi là ai, bỏ qua
			return false, nil
		}
		leadID = lead.ID
	}

	inbound := runtimemodels.OutboundMessage{
		LeadID:     leadID,
		CampaignID: campaignID,
		InboxID:    inbox.ID,
		Direction:  runtimemodels.DirectionInbound,
		MessageID:  messageID,
		ThreadID:   matched.ThreadID,
		Subject:    email.Subject,
		InReplyTo:  email.InReplyTo,
		References: strings.Join(email.References, " "),
		Status:     runtimemodels.MessageStatusReceived,
		ImapUID:    email.UID,
	}
	_, created, err := e.store.GetOrCreateMessage(ctx, inbound)
	if err != nil {
		return false, err
	}
	if !created {
		// Đã xử lý messageId này ở lần poll trước
		return false, nil
	}

	// Mọi reply đều là tín hiệu engagement, kể cả reply unsubscribe
	activity := runtimemodels.LeadActivity{
		LeadID:       leadID,
		CampaignID:   campaignID,
		InboxID:      inbox.ID,
		ActivityType: runtimemodels.ActivityEmailReply,
		Metadata: map[string]interface{}{
			"messageId": messageID,
			"subject":   email.Subject,
		},
		OccurredAt: nowMilli,
	}
	if err := e.store.RecordActivity(ctx, activity); err != nil {
		return true, err
	}
	if err := e.store.AddLeadPoints(ctx, leadID,
		runtimemodels.ActivityPoints(runtimemodels.ActivityEmailReply),
		runtimemodels.ActivityEmailReply, nowMilli); err != nil {
		return true, err
	}

	// Unsubscribe dừng hành trình ngay, không đi tiếp theo cạnh reply
	if IsUnsubscribeText(email.Subject + "\n" + email.BodyText) {
		return true, e.optOutLead(ctx, leadID)
	}

	if !campaignID.IsZero() {
		if err := e.followReplyEdge(ctx, leadID, campaignID); err != nil {
			return true, err
		}
	}
	return true, nil
}

// matchOutbound tìm message outbound mà email này trả lời.
func (e *Engine) matchOutbound(ctx context.Context, email *mailbox.InboundEmail) (runtimemodels.OutboundMessage, bool, error) {
	if email.InReplyTo != "" {
		msg, found, err := e.store.OutboundMessageByID(ctx, email.InReplyTo)
		if err != nil || found {
			return msg, found, err
		}
	}
	for _, ref := range email.References {
		msg, found, err := e.store.OutboundMessageByID(ctx, ref)
		if err != nil || found {
			return msg, found, err
		}
	}
	return runtimemodels.OutboundMessage{}, false, nil
}

// followReplyEdge chuyển state của lead theo cạnh reply của bước đã gửi email.
// Bước tham chiếu là bước của message outbound gần nhất nếu có, fallback về
// bước hiện tại của state. Không có cạnh reply (kể cả always) thì state giữ
// nguyên, không bao giờ rơi xuống bước sequence kế tiếp.
func (e *Engine) followReplyEdge(ctx context.Context, leadID, campaignID primitive.ObjectID) error {
	state, err := e.store.StateByLeadAndCampaign(ctx, leadID, campaignID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	if state.IsTerminal() {
		return nil
	}

	replyStepID := state.CurrentStepID
	if last, found, lastErr := e.store.LastOutboundMessage(ctx, leadID, campaignID); lastErr != nil {
		return lastErr
	} else if found && !last.StepID.IsZero() {
		replyStepID = last.StepID
	}
	if replyStepID.IsZero() {
		return nil
	}

	edge, err := e.resolveEdge(ctx, campaignID, replyStepID, campaignmodels.EdgeConditionReply, "")
	if err != nil {
		return err
	}
	if edge == nil {
		return nil
	}

	step, err := e.store.CampaignStep(ctx, replyStepID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	_, _, err = e.transitionToEdge(ctx, state, step, edge, false)
	return err
}

// optOutLead opt-out một lead và dừng mọi state chưa kết thúc của nó.
func (e *Engine) optOutLead(ctx context.Context, leadID primitive.ObjectID) error {
	if err := e.store.MarkLeadOptedOut(ctx, leadID); err != nil {
		return err
	}
	if _, err := e.store.StopStatesForLead(ctx, leadID); err != nil {
		return err
	}
	e.log.WithField("leadId", leadID.Hex()).
		Info("📬 [ENGINE] Lead unsubscribe qua reply, đã opt-out và dừng mọi chiến dịch")
	return nil
}
