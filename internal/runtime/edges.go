// Chọn cạnh đi ra của một bước theo loại điều kiện và chuyển state theo cạnh.
package runtime

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	campaignmodels "copper_crm/internal/api/campaign/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
)

// resolveEdge tìm cạnh đi ra đầu tiên (theo order, _id) của bước có đúng
// loại điều kiện conditionType. conditionValue khác rỗng thì phải khớp thêm
// giá trị điều kiện, với intent so không phân biệt hoa thường.
// Không có cạnh nào khớp thì fallback về cạnh always của bước (trừ khi
// đang tìm chính always). Trả về nil khi bước không còn đường đi loại đó.
func (e *Engine) resolveEdge(ctx context.Context, campaignID, fromStepID primitive.ObjectID, conditionType, conditionValue string) (*campaignmodels.CampaignEdge, error) {
	edges, err := e.store.EdgesFrom(ctx, campaignID, fromStepID)
	if err != nil {
		return nil, err
	}

	for i := range edges {
		edge := &edges[i]
		if edge.ConditionType != conditionType {
			continue
		}
		if conditionValue != "" {
			if conditionType == campaignmodels.EdgeConditionIntent {
				if !strings.EqualFold(edge.ConditionValue, conditionValue) {
					continue
				}
			} else if edge.ConditionValue != conditionValue {
				continue
			}
		}
		return edge, nil
	}

	if conditionType != campaignmodels.EdgeConditionAlways {
		for i := range edges {
			if edges[i].ConditionType == campaignmodels.EdgeConditionAlways {
				return &edges[i], nil
			}
		}
	}
	return nil, nil
}

// intentLabelsForStep gom các nhãn intent khai báo trên cạnh đi ra của bước,
// chuẩn hóa lowercase và loại trùng, giữ thứ tự (order, _id).
func (e *Engine) intentLabelsForStep(ctx context.Context, campaignID, fromStepID primitive.ObjectID) ([]string, error) {
	edges, err := e.store.EdgesFrom(ctx, campaignID, fromStepID)
	if err != nil {
		return nil, err
	}
	var labels []string
	seen := make(map[string]bool)
	for i := range edges {
		if edges[i].ConditionType != campaignmodels.EdgeConditionIntent {
			continue
		}
		value := strings.ToLower(strings.TrimSpace(edges[i].ConditionValue))
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		labels = append(labels, value)
	}
	return labels, nil
}

// transitionToEdge chuyển state theo cạnh đã chọn:
//   - có cạnh: sang bước đích, status active, đến hạn ngay
//   - không có cạnh và fallbackToSequence: sang bước có sequence kế tiếp
//   - hết đường: state chuyển completed
//
// Trả về state mới và cont = true nếu state còn đi tiếp được trong tick này.
func (e *Engine) transitionToEdge(ctx context.Context, state runtimemodels.LeadCampaignState, step campaignmodels.CampaignStep, edge *campaignmodels.CampaignEdge, fallbackToSequence bool) (runtimemodels.LeadCampaignState, bool, error) {
	if edge != nil {
		updated, err := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
			"status":        runtimemodels.StateStatusActive,
			"currentStepId": edge.ToStepID,
			"nextStepAt":    0,
		})
		return updated, err == nil, err
	}

	if fallbackToSequence {
		seq, found, err := e.store.NextSequentialStep(ctx, state.CampaignID, step.Sequence)
		if err != nil {
			return state, false, err
		}
		if found {
			updated, uErr := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
				"status":        runtimemodels.StateStatusActive,
				"currentStepId": seq.ID,
				"nextStepAt":    0,
			})
			return updated, uErr == nil, uErr
		}
	}

	updated, err := e.store.UpdateState(ctx, state.ID, map[string]interface{}{
		"status":     runtimemodels.StateStatusCompleted,
		"nextStepAt": 0,
	})
	return updated, false, err
}
