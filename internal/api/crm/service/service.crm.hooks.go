// Package crmvc - Event handlers cho CRM (OnDataChanged).
// Hook giữ lastActivityAt của lead luôn khớp với timeline hoạt động,
// kể cả các activity engine ghi mà không đi qua AddPoints.
package crmvc

import (
	"context"

	"copper_crm/internal/api/events"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/global"
	"copper_crm/internal/logger"
)

func init() {
	events.OnDataChanged(handleCrmDataChange)
}

// handleCrmDataChange xử lý thay đổi dữ liệu: activity mới của lead thì bump
// lastActivityAt trên lead. Chỉ bắt collection lead_activities nên không tự
// kích hoạt lại chính nó.
func handleCrmDataChange(ctx context.Context, e events.DataChangeEvent) {
	if e.CollectionName != global.MongoDB_ColNames.LeadActivities || e.Operation != events.OpInsert {
		return
	}
	activity, ok := toLeadActivity(e.Document)
	if !ok || activity.LeadID.IsZero() {
		return
	}

	leadSvc, err := NewLeadService()
	if err != nil {
		logger.GetAppLogger().WithError(err).Warn("🎯 [CRM] Không thể tạo LeadService trong hook")
		return
	}
	if err := leadSvc.TouchActivity(ctx, activity.LeadID, activity.ActivityType, activity.OccurredAt); err != nil {
		logger.GetAppLogger().WithError(err).WithField("leadId", activity.LeadID.Hex()).
			Warn("🎯 [CRM] Không cập nhật được lastActivityAt từ hook")
	}
}

func toLeadActivity(doc interface{}) (*runtimemodels.LeadActivity, bool) {
	if doc == nil {
		return nil, false
	}
	if d, ok := doc.(*runtimemodels.LeadActivity); ok {
		return d, true
	}
	if d, ok := doc.(runtimemodels.LeadActivity); ok {
		return &d, true
	}
	return nil, false
}
