// State machine xử lý từng lead qua graph chiến dịch.
package runtime

import (
	"context"
	"errors"
	"strings"

	campaignmodels "copper_crm/internal/api/campaign/models"
	crmmodels "copper_crm/internal/api/crm/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
)

// maxStepHops chặn vòng lặp vô hạn khi graph có chu trình always-edge.
const maxStepHops = 20

// ProcessState chạy một state qua các bước đến khi nó phải chờ
// (delay, condition window, phản hồi, duyệt draft) hoặc kết thúc.
// Trạng thái chờ đã đến hạn được xử lý trước, rồi mới dispatch theo loại bước.
func (e *Engine) ProcessState(ctx context.Context, campaign campaignmodels.Campaign, state runtimemodels.LeadCampaignState) error {
	// Opt-out được ưu tiên trước mọi xử lý khác
	lead, err := e.store.Lead(ctx, state.LeadID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Lead đã bị xóa, dừng state
			_, uErr := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
				"status": runtimemodels.StateStatusStopped,
			})
			return uErr
		}
		return err
	}
	if lead.OptedOut {
		_, err := e.store.StopStatesForLead(ctx, lead.ID)
		return err
	}

	for hops := 0; hops < maxStepHops; hops++ {
		nowMilli := e.now().UnixMilli()
		if state.IsTerminal() || !state.IsDue(nowMilli) {
			return nil
		}

		// Trạng thái chờ hết hạn đi theo cạnh tương ứng với việc "không có gì xảy ra"
		switch state.Status {
		case runtimemodels.StateStatusWaitingApproval:
			// Đóng băng đến khi người duyệt quyết định
			return nil

		case runtimemodels.StateStatusWaitingDelay:
			next, cont, wErr := e.expireWaiting(ctx, state, campaignmodels.EdgeConditionAlways)
			if wErr != nil {
				return wErr
			}
			if !cont {
				return nil
			}
			state = next
			continue

		case runtimemodels.StateStatusWaitingCondition:
			noType := campaignmodels.EdgeConditionNoEvent
			if step, sErr := e.store.CampaignStep(ctx, state.CurrentStepID); sErr == nil {
				_, _, noType = conditionEventTypes(&step)
			}
			next, cont, wErr := e.expireWaiting(ctx, state, noType)
			if wErr != nil {
				return wErr
			}
			if !cont {
				return nil
			}
			state = next
			continue

		case runtimemodels.StateStatusWaitingReply:
			next, cont, wErr := e.expireWaiting(ctx, state, campaignmodels.EdgeConditionNoReply)
			if wErr != nil {
				return wErr
			}
			if !cont {
				return nil
			}
			state = next
			continue
		}

		// State chưa có bước hiện tại thì nhảy về bước entry của chiến dịch
		if state.CurrentStepID.IsZero() {
			entry, eErr := e.store.EntryStep(ctx, campaign.ID)
			if eErr != nil {
				if errors.Is(eErr, common.ErrNotFound) {
					_, uErr := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
						"status": runtimemodels.StateStatusCompleted,
					})
					return uErr
				}
				return eErr
			}
			updated, uErr := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
				"status":        runtimemodels.StateStatusActive,
				"currentStepId": entry.ID,
				"nextStepAt":    0,
			})
			if uErr != nil {
				return uErr
			}
			state = updated
			continue
		}

		step, err := e.store.CampaignStep(ctx, state.CurrentStepID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				// Bước đã bị xóa khỏi graph, không còn đường đi tiếp
				_, uErr := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
					"status": runtimemodels.StateStatusStopped,
				})
				return uErr
			}
			return err
		}

		next, cont, err := e.processStep(ctx, campaign, &lead, state, step)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		state = next
	}

	e.log.WithFields(map[string]interface{}{
		"stateId":    state.ID.Hex(),
		"campaignId": campaign.ID.Hex(),
	}).Warn("⚙️ [ENGINE] State vượt quá số bước cho phép trong một tick, dừng lại chờ tick sau")
	return nil
}

// expireWaiting xử lý một trạng thái chờ đã đến hạn: đi theo cạnh loại
// conditionType của bước hiện tại. State không còn bước thì hoàn thành.
func (e *Engine) expireWaiting(ctx context.Context, state runtimemodels.LeadCampaignState, conditionType string) (runtimemodels.LeadCampaignState, bool, error) {
	if state.CurrentStepID.IsZero() {
		updated, err := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
			"status": runtimemodels.StateStatusCompleted,
		})
		return updated, false, err
	}
	step, err := e.store.CampaignStep(ctx, state.CurrentStepID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			updated, uErr := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
				"status": runtimemodels.StateStatusStopped,
			})
			return updated, false, uErr
		}
		return state, false, err
	}
	edge, err := e.resolveEdge(ctx, state.CampaignID, step.ID, conditionType, "")
	if err != nil {
		return state, false, err
	}
	return e.transitionToEdge(ctx, state, step, edge, true)
}

// processStep xử lý state tại một bước. Trả về state mới và cont = true
// nếu state đã sang bước khác và xử lý tiếp được ngay trong tick này.
func (e *Engine) processStep(ctx context.Context, campaign campaignmodels.Campaign, lead *crmmodels.Lead, state runtimemodels.LeadCampaignState, step campaignmodels.CampaignStep) (runtimemodels.LeadCampaignState, bool, error) {
	now := e.now()
	nowMilli := now.UnixMilli()

	switch step.StepType {
	case campaignmodels.StepTypeEntry:
		return e.followEdge(ctx, state, step, campaignmodels.EdgeConditionAlways, "")

	case campaignmodels.StepTypeDelay:
		updated, err := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
			"status":     runtimemodels.StateStatusWaitingDelay,
			"nextStepAt": now.Add(step.DelayDuration()).UnixMilli(),
		})
		return updated, false, err

	case campaignmodels.StepTypeCondition:
		activityType, yesType, noType := conditionEventTypes(&step)
		since := observationStart(&state, nowMilli)

		happened, err := e.store.HasActivitySince(ctx, state.LeadID, state.CampaignID, activityType, since)
		if err != nil {
			return state, false, err
		}
		if happened {
			return e.followEdge(ctx, state, step, yesType, "")
		}

		expiresAt := since + step.ConditionWindow().Milliseconds()
		if nowMilli < expiresAt {
			updated, uErr := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
				"status":     runtimemodels.StateStatusWaitingCondition,
				"nextStepAt": expiresAt,
			})
			return updated, false, uErr
		}
		return e.followEdge(ctx, state, step, noType, "")

	case campaignmodels.StepTypeAIEmail:
		if _, found, pErr := e.store.PendingDraft(ctx, state.LeadID, state.CampaignID); pErr != nil {
			return state, false, pErr
		} else if found {
			// Draft cũ còn pending, chỉ cần chuyển trạng thái chờ duyệt
			updated, uErr := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
				"status": runtimemodels.StateStatusWaitingApproval,
			})
			return updated, false, uErr
		}
		if _, gErr := e.generateDraft(ctx, campaign, step, lead, &state); gErr != nil {
			return state, false, gErr
		}
		updated, uErr := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
			"status": runtimemodels.StateStatusWaitingApproval,
		})
		return updated, false, uErr

	case campaignmodels.StepTypeAIDecision:
		return e.decideByThread(ctx, lead, state, step, nowMilli)

	case campaignmodels.StepTypePoints:
		points, reason := step.AwardPoints()
		if points != 0 {
			activity := runtimemodels.LeadActivity{
				LeadID:       state.LeadID,
				CampaignID:   state.CampaignID,
				ActivityType: runtimemodels.ActivityPointsAwarded,
				Metadata:     map[string]interface{}{"points": points, "reason": reason, "stepId": step.ID.Hex()},
				OccurredAt:   nowMilli,
			}
			if err := e.store.RecordActivity(ctx, activity); err != nil {
				return state, false, err
			}
			if err := e.store.AddLeadPoints(ctx, state.LeadID, points, runtimemodels.ActivityPointsAwarded, nowMilli); err != nil {
				return state, false, err
			}
		}
		return e.followEdge(ctx, state, step, campaignmodels.EdgeConditionAlways, "")

	case campaignmodels.StepTypeGoal:
		activity := runtimemodels.LeadActivity{
			LeadID:       state.LeadID,
			CampaignID:   state.CampaignID,
			ActivityType: runtimemodels.ActivityGoalReached,
			Metadata:     map[string]interface{}{"stepId": step.ID.Hex()},
			OccurredAt:   nowMilli,
		}
		if err := e.store.RecordActivity(ctx, activity); err != nil {
			return state, false, err
		}
		if err := e.store.AddLeadPoints(ctx, state.LeadID,
			runtimemodels.ActivityPoints(runtimemodels.ActivityGoalReached),
			runtimemodels.ActivityGoalReached, nowMilli); err != nil {
			return state, false, err
		}
		updated, err := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
			"status": runtimemodels.StateStatusCompleted,
		})
		return updated, false, err

	case campaignmodels.StepTypeExit:
		// Exit là kết thúc không đạt mục tiêu, phân biệt với completed của goal
		updated, err := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
			"status": runtimemodels.StateStatusStopped,
		})
		return updated, false, err

	default:
		e.log.WithFields(map[string]interface{}{
			"stateId":  state.ID.Hex(),
			"stepType": step.StepType,
		}).Warn("⚙️ [ENGINE] Loại bước không biết, dừng state")
		updated, err := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
			"status": runtimemodels.StateStatusStopped,
		})
		return updated, false, err
	}
}

// decideByThread xử lý bước ai_decision: đọc hội thoại với lead qua IMAP,
// phân loại intent trong các nhãn khai báo trên cạnh rồi đi theo cạnh intent.
// Không có hội thoại thì coi như chưa phản hồi và đi theo cạnh no_reply.
func (e *Engine) decideByThread(ctx context.Context, lead *crmmodels.Lead, state runtimemodels.LeadCampaignState, step campaignmodels.CampaignStep, nowMilli int64) (runtimemodels.LeadCampaignState, bool, error) {
	threadText := ""
	if !state.AssignedInboxID.IsZero() {
		inbox, err := e.store.Inbox(ctx, state.AssignedInboxID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return state, false, err
		}
		if err == nil {
			threadText = e.fetchThreadText(&inbox, lead.BestEmail())
		}
	}
	if threadText == "" {
		return e.followEdge(ctx, state, step, campaignmodels.EdgeConditionNoReply, "")
	}

	labels, err := e.intentLabelsForStep(ctx, state.CampaignID, step.ID)
	if err != nil {
		return state, false, err
	}
	intent := e.classifyIntent(ctx, threadText, labels, step.GenerationModel(e.opts.DefaultModel))

	next, cont, err := e.followEdge(ctx, state, step, campaignmodels.EdgeConditionIntent, intent)
	if err != nil {
		return next, cont, err
	}

	activity := runtimemodels.LeadActivity{
		LeadID:       state.LeadID,
		CampaignID:   state.CampaignID,
		InboxID:      state.AssignedInboxID,
		ActivityType: runtimemodels.ActivityDecision,
		Metadata:     map[string]interface{}{"intent": intent, "stepId": step.ID.Hex()},
		OccurredAt:   nowMilli,
	}
	if recErr := e.store.RecordActivity(ctx, activity); recErr != nil {
		return next, false, recErr
	}
	return next, cont, nil
}

// followEdge chọn cạnh theo loại điều kiện rồi chuyển state theo cạnh đó.
func (e *Engine) followEdge(ctx context.Context, state runtimemodels.LeadCampaignState, step campaignmodels.CampaignStep, conditionType, conditionValue string) (runtimemodels.LeadCampaignState, bool, error) {
	edge, err := e.resolveEdge(ctx, state.CampaignID, step.ID, conditionType, conditionValue)
	if err != nil {
		return state, false, err
	}
	return e.transitionToEdge(ctx, state, step, edge, true)
}

// conditionEventTypes map sự kiện của bước condition sang loại activity cần
// tìm và cặp loại cạnh yes/no tương ứng.
func conditionEventTypes(step *campaignmodels.CampaignStep) (activityType, yesType, noType string) {
	switch event := strings.ToLower(strings.TrimSpace(step.ConditionEvent())); event {
	case "reply", "email_reply":
		return runtimemodels.ActivityEmailReply, campaignmodels.EdgeConditionReply, campaignmodels.EdgeConditionNoReply
	case "", "open", "opened", "email_open":
		return runtimemodels.ActivityEmailOpen, campaignmodels.EdgeConditionOpen, campaignmodels.EdgeConditionNoOpen
	default:
		return event, campaignmodels.EdgeConditionEvent, campaignmodels.EdgeConditionNoEvent
	}
}

// observationStart là mốc bắt đầu cửa sổ quan sát của bước condition:
// lần gửi gần nhất, rồi lần state thay đổi gần nhất, rồi lúc enroll.
func observationStart(state *runtimemodels.LeadCampaignState, nowMilli int64) int64 {
	if state.LastSentAt > 0 {
		return state.LastSentAt
	}
	if state.UpdatedAt > 0 {
		return state.UpdatedAt
	}
	if state.CreatedAt > 0 {
		return state.CreatedAt
	}
	return nowMilli
}
