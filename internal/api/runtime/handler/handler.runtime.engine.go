// Package runtimehdl chứa HTTP handler cho domain runtime:
// tick endpoint cho cron ngoài, enroll thủ công và luồng duyệt bản nháp.
package runtimehdl

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basehdl "copper_crm/internal/api/base/handler"
	campaignsvc "copper_crm/internal/api/campaign/service"
	crmsvc "copper_crm/internal/api/crm/service"
	runtimedto "copper_crm/internal/api/runtime/dto"
	runtimemodels "copper_crm/internal/api/runtime/models"
	runtimesvc "copper_crm/internal/api/runtime/service"
	"copper_crm/internal/common"
	"copper_crm/internal/global"
	"copper_crm/internal/runtime"
	"copper_crm/internal/tracking"
)

// CampaignRuntimeHandler xử lý các request điều khiển engine.
type CampaignRuntimeHandler struct {
	engine          *runtime.Engine
	campaignService *campaignsvc.CampaignService
	leadService     *crmsvc.LeadService
	draftService    *runtimesvc.CampaignEmailDraftService
	stateService    *runtimesvc.LeadCampaignStateService
}

// NewCampaignRuntimeHandler tạo mới CampaignRuntimeHandler gắn với engine đã khởi tạo.
func NewCampaignRuntimeHandler(engine *runtime.Engine) (*CampaignRuntimeHandler, error) {
	campaignService, err := campaignsvc.NewCampaignService()
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign service: %v", err)
	}
	leadService, err := crmsvc.NewLeadService()
	if err != nil {
		return nil, fmt.Errorf("failed to create lead service: %v", err)
	}
	draftService, err := runtimesvc.NewCampaignEmailDraftService()
	if err != nil {
		return nil, fmt.Errorf("failed to create draft service: %v", err)
	}
	stateService, err := runtimesvc.NewLeadCampaignStateService()
	if err != nil {
		return nil, fmt.Errorf("failed to create state service: %v", err)
	}

	return &CampaignRuntimeHandler{
		engine:          engine,
		campaignService: campaignService,
		leadService:     leadService,
		draftService:    draftService,
		stateService:    stateService,
	}, nil
}

// Tick chạy một vòng engine: ingest reply, enroll và xử lý các state đến hạn.
// Được cron ngoài gọi định kỳ, bảo vệ bằng CronSecretMiddleware.
// Query param campaignId giới hạn tick vào một chiến dịch duy nhất.
func (h *CampaignRuntimeHandler) Tick(c fiber.Ctx) error {
	campaignID := primitive.NilObjectID
	if raw := c.Query("campaignId"); raw != "" {
		parsed, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			basehdl.HandleResponse(c, nil, common.NewError(common.ErrCodeValidationFormat, fmt.Sprintf("ID chiến dịch không hợp lệ: %s", raw), common.StatusBadRequest, err))
			return nil
		}
		campaignID = parsed
	}

	result, err := h.engine.Tick(c.Context(), campaignID)
	if err != nil {
		basehdl.HandleResponse(c, nil, err)
		return nil
	}
	basehdl.HandleResponse(c, result, nil)
	return nil
}

// Enroll enroll lead đủ điều kiện vào một chiến dịch đang active.
func (h *CampaignRuntimeHandler) Enroll(c fiber.Ctx) error {
	var input runtimedto.EnrollInput
	if err := h.parseBody(c, &input); err != nil {
		basehdl.HandleResponse(c, nil, err)
		return nil
	}
	campaignID, err := primitive.ObjectIDFromHex(input.CampaignID)
	if err != nil {
		basehdl.HandleResponse(c, nil, common.NewError(common.ErrCodeValidationFormat, fmt.Sprintf("ID chiến dịch không hợp lệ: %s", input.CampaignID), common.StatusBadRequest, err))
		return nil
	}

	campaign, err := h.campaignService.FindOneById(c.Context(), campaignID)
	if err != nil {
		basehdl.HandleResponse(c, nil, err)
		return nil
	}
	if !campaign.IsRunnable() {
		basehdl.HandleResponse(c, nil, common.ErrCampaignInactive)
		return nil
	}

	enrolled, err := h.engine.EnrollLeads(c.Context(), campaign)
	if err != nil {
		basehdl.HandleResponse(c, nil, err)
		return nil
	}
	basehdl.HandleResponse(c, fiber.Map{"campaignId": campaign.ID.Hex(), "enrolled": enrolled}, nil)
	return nil
}

// NextDraft trả về bản nháp pending cũ nhất kèm preview link unsubscribe.
func (h *CampaignRuntimeHandler) NextDraft(c fiber.Ctx) error {
	draft, found, err := h.draftService.NextPending(c.Context())
	if err != nil {
		basehdl.HandleResponse(c, nil, err)
		return nil
	}
	if !found {
		basehdl.HandleResponse(c, fiber.Map{"draft": nil}, nil)
		return nil
	}

	// Preview đúng link unsubscribe sẽ gắn vào email khi gửi
	unsubURL := ""
	if lead, leadErr := h.leadService.FindOneById(c.Context(), draft.LeadID); leadErr == nil {
		toEmail := draft.ToEmail
		if toEmail == "" {
			toEmail = lead.BestEmail()
		}
		token := tracking.BuildUnsubscribeToken(global.ServerConfig.UnsubscribeSecret, lead.ID, toEmail)
		unsubURL = tracking.UnsubscribeURL(global.ServerConfig.PublicBaseURL, token)
	}

	basehdl.HandleResponse(c, fiber.Map{"draft": draft, "unsubscribeUrl": unsubURL}, nil)
	return nil
}

// DecideDraft duyệt hoặc từ chối một bản nháp pending.
// Duyệt thì gửi ngay qua engine; từ chối thì dừng hẳn state của lead.
func (h *CampaignRuntimeHandler) DecideDraft(c fiber.Ctx) error {
	var input runtimedto.DraftDecisionInput
	if err := h.parseBody(c, &input); err != nil {
		basehdl.HandleResponse(c, nil, err)
		return nil
	}
	draftID, err := primitive.ObjectIDFromHex(input.DraftID)
	if err != nil {
		basehdl.HandleResponse(c, nil, common.NewError(common.ErrCodeValidationFormat, fmt.Sprintf("ID bản nháp không hợp lệ: %s", input.DraftID), common.StatusBadRequest, err))
		return nil
	}

	if input.Approved() {
		// Engine claim draft rồi mới gửi; gửi hỏng thì draft quay về pending
		draft, deliverErr := h.engine.ApproveAndDeliverDraft(c.Context(), draftID, input.DecidedBy)
		if deliverErr != nil {
			basehdl.HandleResponse(c, nil, deliverErr)
			return nil
		}
		basehdl.HandleResponse(c, draft, nil)
		return nil
	}

	draft, err := h.draftService.Decide(c.Context(), draftID, false, input.DecidedBy)
	if err != nil {
		basehdl.HandleResponse(c, nil, err)
		return nil
	}
	// Bản nháp bị từ chối kết thúc hành trình của lead trong chiến dịch
	if err := h.stopRejectedState(c, draft); err != nil {
		basehdl.HandleResponse(c, nil, err)
		return nil
	}
	basehdl.HandleResponse(c, draft, nil)
	return nil
}

// DraftStats đếm bản nháp theo trạng thái, phục vụ màn hình duyệt.
func (h *CampaignRuntimeHandler) DraftStats(c fiber.Ctx) error {
	stats, err := h.draftService.Stats(c.Context())
	basehdl.HandleResponse(c, stats, err)
	return nil
}

func (h *CampaignRuntimeHandler) stopRejectedState(c fiber.Ctx, draft runtimemodels.CampaignEmailDraft) error {
	state, err := h.stateService.FindByLeadAndCampaign(c.Context(), draft.LeadID, draft.CampaignID)
	if err != nil {
		return err
	}
	_, err = h.stateService.Transition(c.Context(), state.ID, runtimemodels.StateStatusWaitingApproval, map[string]interface{}{
		"status": runtimemodels.StateStatusStopped,
	})
	return err
}

func (h *CampaignRuntimeHandler) parseBody(c fiber.Ctx, input interface{}) error {
	if err := json.Unmarshal(c.Body(), input); err != nil {
		return common.NewError(common.ErrCodeValidationFormat, common.MsgValidationError, common.StatusBadRequest, err)
	}
	if err := global.Validate.Struct(input); err != nil {
		return common.NewError(common.ErrCodeValidationInput, common.MsgValidationError, common.StatusBadRequest, err)
	}
	return nil
}
