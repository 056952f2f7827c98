// Fake in-memory cho Store, Mailer, Mailbox và Completer dùng trong test engine.
package runtime

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"copper_crm/internal/ai"
	campaignmodels "copper_crm/internal/api/campaign/models"
	crmmodels "copper_crm/internal/api/crm/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
	"copper_crm/internal/delivery/channels"
	"copper_crm/internal/mailbox"
)

// fakeStore giữ toàn bộ dữ liệu trong RAM, không đụng MongoDB.
type fakeStore struct {
	campaigns  []campaignmodels.Campaign
	steps      map[primitive.ObjectID]campaignmodels.CampaignStep
	edges      []campaignmodels.CampaignEdge
	profiles   map[primitive.ObjectID]campaignmodels.LLMProfile
	leads      map[primitive.ObjectID]crmmodels.Lead
	leadOrder  []primitive.ObjectID
	companies  map[primitive.ObjectID]crmmodels.Company
	states     map[primitive.ObjectID]runtimemodels.LeadCampaignState
	activities []runtimemodels.LeadActivity
	messages   []runtimemodels.OutboundMessage
	drafts     []runtimemodels.CampaignEmailDraft
	inboxes    map[primitive.ObjectID]runtimemodels.OutboundInbox
	inboxOrder []primitive.ObjectID

	// nowMilli là đồng hồ của store, test chỉnh trực tiếp
	nowMilli int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		steps:     make(map[primitive.ObjectID]campaignmodels.CampaignStep),
		profiles:  make(map[primitive.ObjectID]campaignmodels.LLMProfile),
		leads:     make(map[primitive.ObjectID]crmmodels.Lead),
		companies: make(map[primitive.ObjectID]crmmodels.Company),
		states:    make(map[primitive.ObjectID]runtimemodels.LeadCampaignState),
		inboxes:   make(map[primitive.ObjectID]runtimemodels.OutboundInbox),
		nowMilli:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func (s *fakeStore) addLead(lead crmmodels.Lead) crmmodels.Lead {
	if lead.ID.IsZero() {
		lead.ID = primitive.NewObjectID()
	}
	s.leads[lead.ID] = lead
	s.leadOrder = append(s.leadOrder, lead.ID)
	return lead
}

func (s *fakeStore) addCompany(company crmmodels.Company) crmmodels.Company {
	if company.ID.IsZero() {
		company.ID = primitive.NewObjectID()
	}
	s.companies[company.ID] = company
	return company
}

func (s *fakeStore) addStep(step campaignmodels.CampaignStep) campaignmodels.CampaignStep {
	if step.ID.IsZero() {
		step.ID = primitive.NewObjectID()
	}
	s.steps[step.ID] = step
	return step
}

func (s *fakeStore) addInbox(inbox runtimemodels.OutboundInbox) runtimemodels.OutboundInbox {
	if inbox.ID.IsZero() {
		inbox.ID = primitive.NewObjectID()
	}
	s.inboxes[inbox.ID] = inbox
	s.inboxOrder = append(s.inboxOrder, inbox.ID)
	return inbox
}

func (s *fakeStore) addState(state runtimemodels.LeadCampaignState) runtimemodels.LeadCampaignState {
	if state.ID.IsZero() {
		state.ID = primitive.NewObjectID()
	}
	s.states[state.ID] = state
	return state
}

// Chiến dịch và graph

func (s *fakeStore) ActiveCampaigns(ctx context.Context) ([]campaignmodels.Campaign, error) {
	var out []campaignmodels.Campaign
	for _, c := range s.campaigns {
		if c.IsRunnable() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) ActiveCampaign(ctx context.Context, campaignID primitive.ObjectID) (campaignmodels.Campaign, bool, error) {
	for _, c := range s.campaigns {
		if c.ID == campaignID && c.IsRunnable() {
			return c, true, nil
		}
	}
	return campaignmodels.Campaign{}, false, nil
}

func (s *fakeStore) CampaignStep(ctx context.Context, stepID primitive.ObjectID) (campaignmodels.CampaignStep, error) {
	step, ok := s.steps[stepID]
	if !ok {
		return campaignmodels.CampaignStep{}, common.ErrNotFound
	}
	return step, nil
}

func (s *fakeStore) EntryStep(ctx context.Context, campaignID primitive.ObjectID) (campaignmodels.CampaignStep, error) {
	for _, step := range s.steps {
		if step.CampaignID == campaignID && step.StepType == campaignmodels.StepTypeEntry {
			return step, nil
		}
	}
	return campaignmodels.CampaignStep{}, common.ErrNotFound
}

func (s *fakeStore) NextSequentialStep(ctx context.Context, campaignID primitive.ObjectID, afterSequence int) (campaignmodels.CampaignStep, bool, error) {
	var best campaignmodels.CampaignStep
	found := false
	for _, step := range s.steps {
		if step.CampaignID != campaignID || step.Sequence <= afterSequence {
			continue
		}
		if !found || step.Sequence < best.Sequence {
			best = step
			found = true
		}
	}
	return best, found, nil
}

func (s *fakeStore) EdgesFrom(ctx context.Context, campaignID, fromStepID primitive.ObjectID) ([]campaignmodels.CampaignEdge, error) {
	var out []campaignmodels.CampaignEdge
	for _, e := range s.edges {
		if e.CampaignID == campaignID && e.FromStepID == fromStepID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (s *fakeStore) LLMProfile(ctx context.Context, profileID primitive.ObjectID) (campaignmodels.LLMProfile, bool, error) {
	p, ok := s.profiles[profileID]
	return p, ok, nil
}

func (s *fakeStore) DefaultLLMProfile(ctx context.Context) (campaignmodels.LLMProfile, bool, error) {
	for _, p := range s.profiles {
		if p.IsDefault {
			return p, true, nil
		}
	}
	return campaignmodels.LLMProfile{}, false, nil
}

// Lead

func (s *fakeStore) Lead(ctx context.Context, leadID primitive.ObjectID) (crmmodels.Lead, error) {
	lead, ok := s.leads[leadID]
	if !ok {
		return crmmodels.Lead{}, common.ErrNotFound
	}
	return lead, nil
}

func (s *fakeStore) LeadByEmail(ctx context.Context, address string) (crmmodels.Lead, bool, error) {
	for _, id := range s.leadOrder {
		lead := s.leads[id]
		if lead.MatchesAddress(address) {
			return lead, true, nil
		}
	}
	return crmmodels.Lead{}, false, nil
}

func (s *fakeStore) ContactableLeads(ctx context.Context, excludeIDs []primitive.ObjectID, limit int64) ([]crmmodels.Lead, error) {
	excluded := make(map[primitive.ObjectID]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var out []crmmodels.Lead
	for _, id := range s.leadOrder {
		if int64(len(out)) >= limit {
			break
		}
		lead := s.leads[id]
		if excluded[id] || lead.OptedOut || !lead.HasEmail() {
			continue
		}
		out = append(out, lead)
	}
	return out, nil
}

func (s *fakeStore) Company(ctx context.Context, companyID primitive.ObjectID) (crmmodels.Company, bool, error) {
	c, ok := s.companies[companyID]
	return c, ok, nil
}

func (s *fakeStore) MarkLeadOptedOut(ctx context.Context, leadID primitive.ObjectID) error {
	lead, ok := s.leads[leadID]
	if !ok {
		return common.ErrNotFound
	}
	lead.OptedOut = true
	lead.OptedOutAt = s.nowMilli
	s.leads[leadID] = lead
	return nil
}

func (s *fakeStore) AddLeadPoints(ctx context.Context, leadID primitive.ObjectID, points int, activityType string, at int64) error {
	lead, ok := s.leads[leadID]
	if !ok {
		return common.ErrNotFound
	}
	lead.Points += points
	lead.LastActivityAt = at
	lead.LastActivityType = activityType
	s.leads[leadID] = lead
	return nil
}

// State machine

func (s *fakeStore) EnrollState(ctx context.Context, state runtimemodels.LeadCampaignState) (runtimemodels.LeadCampaignState, bool, error) {
	for _, existing := range s.states {
		if existing.LeadID == state.LeadID && existing.CampaignID == state.CampaignID {
			return existing, false, nil
		}
	}
	state.ID = primitive.NewObjectID()
	state.CreatedAt = s.nowMilli
	s.states[state.ID] = state
	return state, true, nil
}

func (s *fakeStore) DueStates(ctx context.Context, campaignID primitive.ObjectID, nowMilli int64, limit int64) ([]runtimemodels.LeadCampaignState, error) {
	var out []runtimemodels.LeadCampaignState
	for _, st := range s.states {
		if st.CampaignID == campaignID && !st.IsTerminal() && st.IsDue(nowMilli) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) StateByLeadAndCampaign(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.LeadCampaignState, error) {
	for _, st := range s.states {
		if st.LeadID == leadID && st.CampaignID == campaignID {
			return st, nil
		}
	}
	return runtimemodels.LeadCampaignState{}, common.ErrNotFound
}

func (s *fakeStore) UpdateState(ctx context.Context, stateID primitive.ObjectID, set map[string]interface{}) (runtimemodels.LeadCampaignState, error) {
	st, ok := s.states[stateID]
	if !ok {
		return runtimemodels.LeadCampaignState{}, common.ErrNotFound
	}
	for key, value := range set {
		switch key {
		case "status":
			st.Status = value.(string)
		case "currentStepId":
			st.CurrentStepID = value.(primitive.ObjectID)
		case "assignedInboxId":
			st.AssignedInboxID = value.(primitive.ObjectID)
		case "nextStepAt":
			st.NextStepAt = toInt64(value)
		case "lastSentAt":
			st.LastSentAt = toInt64(value)
		case "lastActivityAt":
			st.LastActivityAt = toInt64(value)
		case "threadId":
			st.ThreadID = value.(string)
		case "lastMessageId":
			st.LastMessageID = value.(string)
		}
	}
	st.UpdatedAt = s.nowMilli
	s.states[stateID] = st
	return st, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func (s *fakeStore) StopStatesForLead(ctx context.Context, leadID primitive.ObjectID) (int64, error) {
	var count int64
	for id, st := range s.states {
		if st.LeadID == leadID && !st.IsTerminal() {
			st.Status = runtimemodels.StateStatusStopped
			s.states[id] = st
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) ContactedLeadIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	seen := make(map[primitive.ObjectID]bool)
	var out []primitive.ObjectID
	for _, m := range s.messages {
		if m.Direction == runtimemodels.DirectionOutbound && !seen[m.LeadID] {
			seen[m.LeadID] = true
			out = append(out, m.LeadID)
		}
	}
	for _, st := range s.states {
		if !st.IsTerminal() && !seen[st.LeadID] {
			seen[st.LeadID] = true
			out = append(out, st.LeadID)
		}
	}
	return out, nil
}

func (s *fakeStore) CountStates(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	var count int64
	for _, st := range s.states {
		if st.CampaignID == campaignID {
			count++
		}
	}
	return count, nil
}

// Activity

func (s *fakeStore) RecordActivity(ctx context.Context, activity runtimemodels.LeadActivity) error {
	activity.ID = primitive.NewObjectID()
	activity.CreatedAt = s.nowMilli
	s.activities = append(s.activities, activity)
	return nil
}

func (s *fakeStore) HasActivitySince(ctx context.Context, leadID, campaignID primitive.ObjectID, activityType string, sinceMilli int64) (bool, error) {
	for _, a := range s.activities {
		if a.LeadID == leadID && a.CampaignID == campaignID &&
			a.ActivityType == activityType && a.OccurredAt >= sinceMilli {
			return true, nil
		}
	}
	return false, nil
}

// Message log

func (s *fakeStore) GetOrCreateMessage(ctx context.Context, msg runtimemodels.OutboundMessage) (runtimemodels.OutboundMessage, bool, error) {
	for _, existing := range s.messages {
		if existing.MessageID == msg.MessageID {
			return existing, false, nil
		}
	}
	msg.ID = primitive.NewObjectID()
	msg.CreatedAt = s.nowMilli
	s.messages = append(s.messages, msg)
	return msg, true, nil
}

func (s *fakeStore) LastOutboundMessage(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.OutboundMessage, bool, error) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.LeadID == leadID && m.CampaignID == campaignID && m.Direction == runtimemodels.DirectionOutbound {
			return m, true, nil
		}
	}
	return runtimemodels.OutboundMessage{}, false, nil
}

func (s *fakeStore) OutboundMessageByID(ctx context.Context, messageID string) (runtimemodels.OutboundMessage, bool, error) {
	for _, m := range s.messages {
		if m.MessageID == messageID && m.Direction == runtimemodels.DirectionOutbound {
			return m, true, nil
		}
	}
	return runtimemodels.OutboundMessage{}, false, nil
}

func (s *fakeStore) MaxInboundUID(ctx context.Context, inboxID primitive.ObjectID) (uint32, error) {
	var max uint32
	for _, m := range s.messages {
		if m.InboxID == inboxID && m.Direction == runtimemodels.DirectionInbound && m.ImapUID > max {
			max = m.ImapUID
		}
	}
	return max, nil
}

// Draft

func (s *fakeStore) CreateDraft(ctx context.Context, draft runtimemodels.CampaignEmailDraft) (runtimemodels.CampaignEmailDraft, error) {
	draft.ID = primitive.NewObjectID()
	draft.CreatedAt = s.nowMilli
	s.drafts = append(s.drafts, draft)
	return draft, nil
}

func (s *fakeStore) PendingDraft(ctx context.Context, leadID, campaignID primitive.ObjectID) (runtimemodels.CampaignEmailDraft, bool, error) {
	for _, d := range s.drafts {
		if d.LeadID == leadID && d.CampaignID == campaignID && d.Status == runtimemodels.DraftStatusPending {
			return d, true, nil
		}
	}
	return runtimemodels.CampaignEmailDraft{}, false, nil
}

func (s *fakeStore) ClaimPendingDraft(ctx context.Context, draftID primitive.ObjectID, decidedBy string) (runtimemodels.CampaignEmailDraft, bool, error) {
	for i, d := range s.drafts {
		if d.ID != draftID {
			continue
		}
		if d.Status != runtimemodels.DraftStatusPending {
			return runtimemodels.CampaignEmailDraft{}, false, nil
		}
		d.Status = runtimemodels.DraftStatusSent
		d.ApprovedBy = decidedBy
		d.ApprovedAt = s.nowMilli
		d.SentAt = s.nowMilli
		s.drafts[i] = d
		return d, true, nil
	}
	return runtimemodels.CampaignEmailDraft{}, false, common.ErrNotFound
}

func (s *fakeStore) ReopenDraft(ctx context.Context, draftID primitive.ObjectID) error {
	for i, d := range s.drafts {
		if d.ID == draftID && d.Status == runtimemodels.DraftStatusSent {
			d.Status = runtimemodels.DraftStatusPending
			d.ApprovedBy = ""
			d.ApprovedAt = 0
			d.SentAt = 0
			s.drafts[i] = d
			return nil
		}
	}
	return nil
}

// Pool inbox

func (s *fakeStore) ActiveInboxes(ctx context.Context) ([]runtimemodels.OutboundInbox, error) {
	var out []runtimemodels.OutboundInbox
	for _, id := range s.inboxOrder {
		if inbox := s.inboxes[id]; inbox.Active {
			out = append(out, inbox)
		}
	}
	return out, nil
}

func (s *fakeStore) IMAPInboxes(ctx context.Context) ([]runtimemodels.OutboundInbox, error) {
	var out []runtimemodels.OutboundInbox
	for _, id := range s.inboxOrder {
		inbox := s.inboxes[id]
		if inbox.Active && inbox.HasIMAP() {
			out = append(out, inbox)
		}
	}
	return out, nil
}

func (s *fakeStore) Inbox(ctx context.Context, inboxID primitive.ObjectID) (runtimemodels.OutboundInbox, error) {
	inbox, ok := s.inboxes[inboxID]
	if !ok {
		return runtimemodels.OutboundInbox{}, common.ErrNotFound
	}
	return inbox, nil
}

func (s *fakeStore) ResetInboxDaily(ctx context.Context, inbox *runtimemodels.OutboundInbox, now time.Time) error {
	if !inbox.NeedsDailyReset(now) {
		return nil
	}
	inbox.DailySent = 0
	inbox.LastResetAt = now.UnixMilli()
	s.inboxes[inbox.ID] = *inbox
	return nil
}

func (s *fakeStore) ClaimInboxSlot(ctx context.Context, inboxID primitive.ObjectID, cap int) (bool, error) {
	inbox, ok := s.inboxes[inboxID]
	if !ok {
		return false, common.ErrNotFound
	}
	if inbox.DailySent >= cap {
		return false, nil
	}
	inbox.DailySent++
	s.inboxes[inboxID] = inbox
	return true, nil
}

func (s *fakeStore) ReleaseInboxSlot(ctx context.Context, inboxID primitive.ObjectID) error {
	inbox, ok := s.inboxes[inboxID]
	if !ok {
		return common.ErrNotFound
	}
	if inbox.DailySent > 0 {
		inbox.DailySent--
	}
	s.inboxes[inboxID] = inbox
	return nil
}

func (s *fakeStore) UpdateInboxUID(ctx context.Context, inboxID primitive.ObjectID, uid uint32, checkedAt int64) error {
	inbox, ok := s.inboxes[inboxID]
	if !ok {
		return common.ErrNotFound
	}
	if uid > inbox.IMAPLastUID {
		inbox.IMAPLastUID = uid
	}
	inbox.IMAPLastCheckedAt = checkedAt
	s.inboxes[inboxID] = inbox
	return nil
}

// fakeMailer ghi lại mọi email gửi đi, có thể ép lỗi.
type fakeMailer struct {
	sent    []channels.OutgoingEmail
	sentVia []string
	failErr error
}

func (m *fakeMailer) Send(inbox *runtimemodels.OutboundInbox, email *channels.OutgoingEmail) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.sent = append(m.sent, *email)
	m.sentVia = append(m.sentVia, inbox.EmailAddress)
	return nil
}

// fakeMailbox trả về email inbound cài sẵn theo inbox và thread cài sẵn theo
// địa chỉ lead.
type fakeMailbox struct {
	emails  map[primitive.ObjectID][]mailbox.InboundEmail
	threads map[string][]mailbox.InboundEmail
}

func (m *fakeMailbox) FetchNew(inbox *runtimemodels.OutboundInbox, sinceUID uint32, limit int) ([]mailbox.InboundEmail, uint32, error) {
	var out []mailbox.InboundEmail
	var maxUID uint32 = sinceUID
	for _, email := range m.emails[inbox.ID] {
		if email.UID > maxUID {
			maxUID = email.UID
		}
		if email.UID > sinceUID && len(out) < limit {
			out = append(out, email)
		}
	}
	return out, maxUID, nil
}

func (m *fakeMailbox) FetchThread(inbox *runtimemodels.OutboundInbox, leadAddress string, limit int) ([]mailbox.InboundEmail, error) {
	thread := m.threads[leadAddress]
	if limit > 0 && len(thread) > limit {
		thread = thread[len(thread)-limit:]
	}
	return thread, nil
}

// fakeCompleter trả về output cài sẵn, ghi lại prompt đã nhận.
type fakeCompleter struct {
	output string
	err    error
	calls  [][]ai.Message
}

func (c *fakeCompleter) Complete(ctx context.Context, model string, messages []ai.Message) (string, error) {
	c.calls = append(c.calls, messages)
	if c.err != nil {
		return "", c.err
	}
	return c.output, nil
}

// newTestEngine dựng engine với store fake và đồng hồ cố định theo store.
func newTestEngine(store *fakeStore, mailer *fakeMailer, mbox *fakeMailbox, completer Completer) *Engine {
	if mailer == nil {
		mailer = &fakeMailer{}
	}
	if mbox == nil {
		mbox = &fakeMailbox{}
	}
	if mbox.emails == nil {
		mbox.emails = map[primitive.ObjectID][]mailbox.InboundEmail{}
	}
	if mbox.threads == nil {
		mbox.threads = map[string][]mailbox.InboundEmail{}
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	e := NewEngine(store, mailer, mbox, completer, Options{
		PublicBaseURL:     "https://crm.example.com",
		UnsubscribeSecret: "test-secret",
		DefaultModel:      "gpt-4o-mini",
	}, log)
	e.SetClock(func() time.Time { return time.UnixMilli(store.nowMilli).UTC() })
	return e
}
