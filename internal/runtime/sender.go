// Gửi bản nháp đã duyệt qua SMTP và ghi log message.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	campaignmodels "copper_crm/internal/api/campaign/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
	"copper_crm/internal/delivery/channels"
	"copper_crm/internal/tracking"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliverApprovedDraft gửi một bản nháp đã được duyệt:
// cấp phát inbox, dựng email với tracking pixel và link unsubscribe,
// gửi SMTP, ghi log message rồi chuyển state sang bước tiếp theo.
func (e *Engine) DeliverApprovedDraft(ctx context.Context, draft runtimemodels.CampaignEmailDraft) error {
	now := e.now()
	nowMilli := now.UnixMilli()

	state, err := e.store.StateByLeadAndCampaign(ctx, draft.LeadID, draft.CampaignID)
	if err != nil {
		return err
	}
	lead, err := e.store.Lead(ctx, draft.LeadID)
	if err != nil {
		return err
	}

	// Lead đã opt-out thì không bao giờ gửi, kể cả draft đã duyệt
	if lead.OptedOut {
		if _, stopErr := e.store.StopStatesForLead(ctx, lead.ID); stopErr != nil {
			return stopErr
		}
		return common.ErrInvalidState
	}

	toEmail := draft.ToEmail
	if toEmail == "" {
		toEmail = lead.BestEmail()
	}
	if toEmail == "" {
		return common.ErrInvalidEmail
	}

	inbox, err := e.allocateInbox(ctx, &state)
	if err != nil {
		return err
	}

	trackingID := tracking.NewTrackingID()
	messageID := tracking.NewMessageID(messageDomain(&inbox))
	unsubToken := tracking.BuildUnsubscribeToken(e.opts.UnsubscribeSecret, lead.ID, toEmail)
	unsubURL := tracking.UnsubscribeURL(e.opts.PublicBaseURL, unsubToken)
	pixelURL := tracking.PixelURL(e.opts.PublicBaseURL, trackingID)

	// Threading: follow-up trả lời message outbound gần nhất của thread
	var inReplyTo, references string
	threadID := state.ThreadID
	if threadID != "" {
		if last, found, lastErr := e.store.LastOutboundMessage(ctx, lead.ID, draft.CampaignID); lastErr == nil && found {
			inReplyTo = last.MessageID
			references = strings.TrimSpace(last.References + " " + last.MessageID)
		}
	} else {
		threadID = messageID
	}

	email := &channels.OutgoingEmail{
		To:             toEmail,
		Subject:        draft.Subject,
		BodyText:       buildTextBody(draft.BodyText, unsubURL),
		BodyHTML:       buildHTMLBody(draft.BodyText, pixelURL, unsubURL),
		MessageID:      messageID,
		InReplyTo:      inReplyTo,
		References:     references,
		UnsubscribeURL: unsubURL,
	}

	if sendErr := e.mailer.Send(&inbox, email); sendErr != nil {
		// Trả lại suất đã claim để không đốt quota cho lần gửi hỏng
		if relErr := e.store.ReleaseInboxSlot(ctx, inbox.ID); relErr != nil {
			e.log.WithError(relErr).Warn("✉️ [ENGINE] Không trả lại được slot inbox sau lỗi gửi")
		}
		msg := outboundRecord(draft, &inbox, state, toEmail, messageID, threadID, inReplyTo, references, trackingID, nowMilli)
		msg.Status = runtimemodels.MessageStatusFailed
		if _, _, recErr := e.store.GetOrCreateMessage(ctx, msg); recErr != nil {
			e.log.WithError(recErr).Warn("✉️ [ENGINE] Không ghi được message failed")
		}
		return sendErr
	}

	msg := outboundRecord(draft, &inbox, state, toEmail, messageID, threadID, inReplyTo, references, trackingID, nowMilli)
	if _, _, recErr := e.store.GetOrCreateMessage(ctx, msg); recErr != nil {
		return recErr
	}

	activity := runtimemodels.LeadActivity{
		LeadID:       lead.ID,
		CampaignID:   draft.CampaignID,
		InboxID:      inbox.ID,
		ActivityType: runtimemodels.ActivityEmailSent,
		Metadata:     map[string]interface{}{"messageId": messageID, "stepId": draft.StepID.Hex()},
		OccurredAt:   nowMilli,
	}
	if recErr := e.store.RecordActivity(ctx, activity); recErr != nil {
		return recErr
	}
	if ptsErr := e.store.AddLeadPoints(ctx, lead.ID,
		runtimemodels.ActivityPoints(runtimemodels.ActivityEmailSent),
		runtimemodels.ActivityEmailSent, nowMilli); ptsErr != nil {
		return ptsErr
	}

	step, err := e.store.CampaignStep(ctx, draft.StepID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			err = common.ErrStepNotFound
		}
		return err
	}

	set := map[string]interface{}{
		"assignedInboxId": inbox.ID,
		"threadId":        threadID,
		"lastMessageId":   messageID,
		"lastSentAt":      nowMilli,
		"lastActivityAt":  nowMilli,
	}
	if step.WaitsForReply() {
		set["status"] = runtimemodels.StateStatusWaitingReply
		set["nextStepAt"] = now.Add(step.ReplyWait()).UnixMilli()
		_, err = e.store.UpdateState(ctx, state.ID, set)
		return err
	}

	// ReplyMode continue: đi tiếp ngay theo cạnh always, không chờ phản hồi
	updated, err := e.store.UpdateState(ctx, state.ID, set)
	if err != nil {
		return err
	}
	_, _, err = e.followEdge(ctx, updated, step, campaignmodels.EdgeConditionAlways, "")
	return err
}

// ApproveAndDeliverDraft duyệt và gửi một bản nháp trong một thao tác.
// Claim draft pending trước để hai request duyệt song song không gửi trùng;
// gửi hỏng thì mở lại draft về pending cho lần duyệt sau.
func (e *Engine) ApproveAndDeliverDraft(ctx context.Context, draftID primitive.ObjectID, decidedBy string) (runtimemodels.CampaignEmailDraft, error) {
	draft, claimed, err := e.store.ClaimPendingDraft(ctx, draftID, decidedBy)
	if err != nil {
		return runtimemodels.CampaignEmailDraft{}, err
	}
	if !claimed {
		return runtimemodels.CampaignEmailDraft{}, common.ErrDraftRejected
	}

	if sendErr := e.DeliverApprovedDraft(ctx, draft); sendErr != nil {
		if reopenErr := e.store.ReopenDraft(ctx, draft.ID); reopenErr != nil {
			e.log.WithError(reopenErr).WithField("draft", draft.ID.Hex()).
				Warn("✉️ [ENGINE] Không mở lại được draft sau lỗi gửi")
		}
		return runtimemodels.CampaignEmailDraft{}, sendErr
	}
	return draft, nil
}

// outboundRecord dựng bản ghi message outbound từ draft và kết quả gửi.
func outboundRecord(draft runtimemodels.CampaignEmailDraft, inbox *runtimemodels.OutboundInbox, state runtimemodels.LeadCampaignState, toEmail, messageID, threadID, inReplyTo, references, trackingID string, nowMilli int64) runtimemodels.OutboundMessage {
	return runtimemodels.OutboundMessage{
		LeadID:                   draft.LeadID,
		CampaignID:               draft.CampaignID,
		InboxID:                  inbox.ID,
		StepID:                   draft.StepID,
		Direction:                runtimemodels.DirectionOutbound,
		MessageID:                messageID,
		ThreadID:                 threadID,
		Subject:                  draft.Subject,
		InReplyTo:                inReplyTo,
		References:               references,
		SentAt:                   nowMilli,
		Status:                   runtimemodels.MessageStatusSent,
		RecipientEmail:           toEmail,
		TrackingID:               trackingID,
		LLMProfileVersion:        draft.LLMProfileVersion,
		LLMProfileName:           draft.LLMProfileName,
		LLMProfileRules:          draft.LLMProfileRules,
		LLMOverlayProfileVersion: draft.LLMOverlayProfileVersion,
		LLMOverlayProfileName:    draft.LLMOverlayProfileName,
		LLMOverlayProfileRules:   draft.LLMOverlayProfileRules,
	}
}

// messageDomain chọn domain cho Message-ID của inbox.
func messageDomain(inbox *runtimemodels.OutboundInbox) string {
	if inbox.Domain != "" {
		return inbox.Domain
	}
	if at := strings.LastIndex(inbox.EmailAddress, "@"); at >= 0 {
		return inbox.EmailAddress[at+1:]
	}
	return ""
}

// buildTextBody ghép footer unsubscribe vào body plain text.
func buildTextBody(body, unsubURL string) string {
	return body + "\n\n--\nUnsubscribe: " + unsubURL + "\n"
}

// buildHTMLBody dựng bản HTML: từng đoạn văn thành <p>, kèm tracking pixel
// và footer unsubscribe.
func buildHTMLBody(body, pixelURL, unsubURL string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := html.EscapeString(para)
		escaped = strings.ReplaceAll(escaped, "\n", "<br>")
		fmt.Fprintf(&b, "<p>%s</p>", escaped)
	}
	fmt.Fprintf(&b, `<p style="font-size:12px;color:#888">--<br><a href="%s">Unsubscribe</a></p>`, unsubURL)
	fmt.Fprintf(&b, `<img src="%s" width="1" height="1" alt="">`, pixelURL)
	b.WriteString("</body></html>")
	return b.String()
}
