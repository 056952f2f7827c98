// Enrollment: chọn lead đủ điều kiện đưa vào chiến dịch.
package runtime

import (
	"context"
	"strconv"
	"strings"

	campaignmodels "copper_crm/internal/api/campaign/models"
	crmmodels "copper_crm/internal/api/crm/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
)

// EnrollLeads enroll lead mới vào một chiến dịch đang chạy:
//   - chỉ lấy lead chưa từng xuất hiện trong bất kỳ chiến dịch nào
//   - lọc theo entry filter của bước entry
//   - tôn trọng audience cap của chiến dịch
//
// Trả về số lead đã enroll.
func (e *Engine) EnrollLeads(ctx context.Context, campaign campaignmodels.Campaign) (int, error) {
	if !campaign.IsRunnable() {
		return 0, nil
	}

	entry, err := e.store.EntryStep(ctx, campaign.ID)
	if err != nil {
		return 0, err
	}

	// Audience cap tính trên tổng số state của chiến dịch, mọi trạng thái
	remaining := e.opts.EnrollBatchSize
	if campaign.AudienceSize > 0 {
		enrolled, countErr := e.store.CountStates(ctx, campaign.ID)
		if countErr != nil {
			return 0, countErr
		}
		slots := int64(campaign.AudienceSize) - enrolled
		if slots <= 0 {
			return 0, nil
		}
		if slots < remaining {
			remaining = slots
		}
	}

	contacted, err := e.store.ContactedLeadIDs(ctx)
	if err != nil {
		return 0, err
	}

	// Lấy dư để bù các lead rớt entry filter
	candidates, err := e.store.ContactableLeads(ctx, contacted, remaining*4)
	if err != nil {
		return 0, err
	}

	filters := entry.EntryFilters()
	now := e.now().UnixMilli()
	count := 0
	for i := range candidates {
		if int64(count) >= remaining {
			break
		}
		lead := candidates[i]
		if lead.OptedOut || !lead.HasEmail() {
			continue
		}
		if !matchesEntryFilters(&lead, filters, e.companyName(ctx, &lead, filters)) {
			continue
		}

		// Gán inbox ngay lúc enroll để cả chiến dịch của lead đi ra từ
		// một địa chỉ, suất gửi chỉ bị trừ khi gửi thật
		inbox, inboxErr := e.selectInbox(ctx)
		if inboxErr != nil {
			return count, inboxErr
		}

		state := runtimemodels.LeadCampaignState{
			LeadID:          lead.ID,
			CampaignID:      campaign.ID,
			Status:          runtimemodels.StateStatusActive,
			CurrentStepID:   entry.ID,
			AssignedInboxID: inbox.ID,
			NextStepAt:      0, // xử lý ngay tick này
		}
		_, created, enrollErr := e.store.EnrollState(ctx, state)
		if enrollErr != nil {
			return count, enrollErr
		}
		if !created {
			continue
		}

		activity := runtimemodels.LeadActivity{
			LeadID:       lead.ID,
			CampaignID:   campaign.ID,
			InboxID:      inbox.ID,
			ActivityType: runtimemodels.ActivityCampaignEnrolled,
			Metadata:     map[string]interface{}{"inbox": inbox.EmailAddress},
			OccurredAt:   now,
		}
		if recErr := e.store.RecordActivity(ctx, activity); recErr != nil {
			return count, recErr
		}
		if ptsErr := e.store.AddLeadPoints(ctx, lead.ID,
			runtimemodels.ActivityPoints(runtimemodels.ActivityCampaignEnrolled),
			runtimemodels.ActivityCampaignEnrolled, now); ptsErr != nil {
			return count, ptsErr
		}
		count++
	}

	if count > 0 {
		e.log.WithFields(map[string]interface{}{
			"campaignId": campaign.ID.Hex(),
			"enrolled":   count,
		}).Info("🎯 [ENGINE] Đã enroll lead vào chiến dịch")
	}
	return count, nil
}

// companyName tra tên công ty của lead, chỉ khi entry filter có lọc theo company.
func (e *Engine) companyName(ctx context.Context, lead *crmmodels.Lead, filters []campaignmodels.EntryFilter) string {
	needed := false
	for _, f := range filters {
		if f.Field == "company" {
			needed = true
			break
		}
	}
	if !needed || lead.CompanyID.IsZero() {
		return ""
	}
	company, found, err := e.store.Company(ctx, lead.CompanyID)
	if err != nil || !found {
		return ""
	}
	return company.CompanyName
}

// matchesEntryFilters kiểm tra lead qua toàn bộ entry filter (AND).
// Danh sách filter rỗng thì mọi lead đều qua.
func matchesEntryFilters(lead *crmmodels.Lead, filters []campaignmodels.EntryFilter, companyName string) bool {
	for _, f := range filters {
		if !matchesEntryFilter(lead, f, companyName) {
			return false
		}
	}
	return true
}

// matchesEntryFilter kiểm tra một filter trên một field của lead.
func matchesEntryFilter(lead *crmmodels.Lead, f campaignmodels.EntryFilter, companyName string) bool {
	values := leadFieldValues(lead, f.Field, companyName)

	switch f.Op {
	case "in", "":
		return anyOverlap(values, f.Values)
	case "not_in":
		return !anyOverlap(values, f.Values)
	case "equals":
		return len(f.Values) > 0 && len(values) > 0 &&
			strings.EqualFold(values[0], f.Values[0])
	case "contains":
		for _, v := range values {
			for _, want := range f.Values {
				if strings.Contains(strings.ToLower(v), strings.ToLower(want)) {
					return true
				}
			}
		}
		return false
	default:
		// Op lạ: coi như không qua để khỏi enroll nhầm
		return false
	}
}

// leadFieldValues lấy giá trị của field được phép lọc trên lead.
func leadFieldValues(lead *crmmodels.Lead, field, companyName string) []string {
	switch field {
	case "company":
		return []string{companyName}
	case "seniority":
		return []string{lead.Seniority}
	case "country":
		return []string{lead.Country}
	case "jobTitle":
		return []string{lead.JobTitle}
	case "departments":
		return splitList(lead.Departments)
	case "industries":
		return splitList(lead.Industries)
	case "workEmailStatus":
		return []string{lead.WorkEmailStatus}
	case "catchAllStatus":
		return []string{strconv.FormatBool(lead.CatchAllStatus)}
	default:
		return nil
	}
}

// splitList tách chuỗi danh sách phân tách bằng dấu phẩy.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// anyOverlap kiểm tra hai tập giá trị có phần tử chung (không phân biệt hoa thường).
func anyOverlap(have, want []string) bool {
	for _, h := range have {
		if h == "" {
			continue
		}
		for _, w := range want {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
