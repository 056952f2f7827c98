// Sinh bản nháp email bằng LLM cho bước ai_email.
package runtime

import (
	"context"
	"errors"
	"strings"

	"copper_crm/internal/ai"
	campaignmodels "copper_crm/internal/api/campaign/models"
	crmmodels "copper_crm/internal/api/crm/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
	"copper_crm/internal/mailbox"
)

// DefaultSubject dùng khi LLM không trả subject và step không cấu hình.
const DefaultSubject = "Quick question"

// threadTextMaxChars giới hạn độ dài thread đưa vào prompt.
const threadTextMaxChars = 8000

// generateDraft sinh bản nháp email chờ duyệt cho một state đang ở bước ai_email.
// Hội thoại sẵn có với lead (nếu đọc được qua IMAP) được đưa vào prompt để
// follow-up trả lời đúng mạch. Hồ sơ giọng văn được snapshot vào draft để
// audit được nội dung sinh từ rules nào.
func (e *Engine) generateDraft(ctx context.Context, campaign campaignmodels.Campaign, step campaignmodels.CampaignStep, lead *crmmodels.Lead, state *runtimemodels.LeadCampaignState) (runtimemodels.CampaignEmailDraft, error) {
	var zero runtimemodels.CampaignEmailDraft

	if e.completer == nil {
		return zero, common.ErrGenerationFailed
	}

	inbox, err := e.draftInbox(ctx, state)
	if err != nil {
		return zero, err
	}

	profiles, err := e.resolveProfiles(ctx, campaign)
	if err != nil {
		return zero, err
	}

	threadText := e.fetchThreadText(&inbox, lead.BestEmail())
	leadContext := e.buildLeadContext(ctx, lead)
	system, user := buildEmailPrompt(campaign, step, leadContext, profiles, threadText)

	model := step.GenerationModel(e.opts.DefaultModel)
	output, err := e.completer.Complete(ctx, model, []ai.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return zero, err
	}

	subject, body := parseGeneratedEmail(output)
	if body == "" {
		return zero, common.ErrGenerationFailed
	}
	subject = e.subjectForSend(ctx, step, state, threadText != "", subject)

	draft := runtimemodels.CampaignEmailDraft{
		CampaignID: campaign.ID,
		LeadID:     lead.ID,
		InboxID:    inbox.ID,
		StepID:     step.ID,
		Subject:    subject,
		BodyText:   body,
		Status:     runtimemodels.DraftStatusPending,
		FromEmail:  inbox.EmailAddress,
		ToEmail:    lead.BestEmail(),
	}
	if profiles.Base != nil {
		draft.LLMProfileName = profiles.Base.Name
		draft.LLMProfileVersion = profiles.Base.Version()
		draft.LLMProfileRules = profiles.Base.Rules
	}
	if profiles.Overlay != nil {
		draft.LLMOverlayProfileName = profiles.Overlay.Name
		draft.LLMOverlayProfileVersion = profiles.Overlay.Version()
		draft.LLMOverlayProfileRules = profiles.Overlay.Rules
	}

	created, err := e.store.CreateDraft(ctx, draft)
	if err != nil {
		return zero, err
	}

	activity := runtimemodels.LeadActivity{
		LeadID:       lead.ID,
		CampaignID:   campaign.ID,
		InboxID:      inbox.ID,
		ActivityType: runtimemodels.ActivityDraftCreated,
		Metadata:     map[string]interface{}{"draftId": created.ID.Hex(), "stepId": step.ID.Hex()},
		OccurredAt:   e.now().UnixMilli(),
	}
	if recErr := e.store.RecordActivity(ctx, activity); recErr != nil {
		return created, recErr
	}
	return created, nil
}

// draftInbox trả về inbox đã gắn với state, hoặc chọn và gắn một inbox mới.
func (e *Engine) draftInbox(ctx context.Context, state *runtimemodels.LeadCampaignState) (runtimemodels.OutboundInbox, error) {
	if !state.AssignedInboxID.IsZero() {
		inbox, err := e.store.Inbox(ctx, state.AssignedInboxID)
		if err == nil {
			return inbox, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return runtimemodels.OutboundInbox{}, err
		}
		// Inbox cũ đã bị xóa, rơi xuống chọn mới
	}

	inbox, err := e.selectInbox(ctx)
	if err != nil {
		return runtimemodels.OutboundInbox{}, err
	}
	updated, err := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
		"assignedInboxId": inbox.ID,
	})
	if err != nil {
		return runtimemodels.OutboundInbox{}, err
	}
	*state = updated
	return inbox, nil
}

// fetchThreadText đọc hội thoại với lead qua IMAP và render thành text phẳng.
// Inbox không có IMAP hoặc đọc lỗi thì trả về chuỗi rỗng, caller tự fallback.
func (e *Engine) fetchThreadText(inbox *runtimemodels.OutboundInbox, leadAddress string) string {
	if inbox == nil || leadAddress == "" || !inbox.HasIMAP() {
		return ""
	}
	messages, err := e.mailbox.FetchThread(inbox, leadAddress, mailbox.DefaultThreadLimit)
	if err != nil {
		e.log.WithError(err).WithField("inbox", inbox.EmailAddress).
			Warn("📬 [ENGINE] Không đọc được thread với lead, bỏ qua")
		return ""
	}
	return mailbox.RenderThreadText(messages, threadTextMaxChars)
}

// subjectForSend chọn subject cuối cùng cho email sắp gửi.
// Email follow-up trong thread dùng "Re: " + subject gốc để mail client gom thread;
// email đầu thread ưu tiên subject cấu hình trên step, rồi subject LLM sinh,
// cuối cùng là DefaultSubject.
func (e *Engine) subjectForSend(ctx context.Context, step campaignmodels.CampaignStep, state *runtimemodels.LeadCampaignState, threaded bool, generated string) string {
	if threaded || state.ThreadID != "" {
		last, found, err := e.store.LastOutboundMessage(ctx, state.LeadID, state.CampaignID)
		if err == nil && found && last.Subject != "" {
			return ReplySubject(last.Subject)
		}
	}
	if cfg := step.Config.AIEmail; cfg != nil && cfg.Subject != "" {
		return cfg.Subject
	}
	if generated != "" {
		return generated
	}
	return DefaultSubject
}

// ReplySubject chuẩn hóa subject follow-up: thêm đúng một tiền tố "Re: ".
func ReplySubject(original string) string {
	s := strings.TrimSpace(original)
	for {
		lower := strings.ToLower(s)
		if strings.HasPrefix(lower, "re:") {
			s = strings.TrimSpace(s[3:])
			continue
		}
		break
	}
	if s == "" {
		s = DefaultSubject
	}
	return "Re: " + s
}
