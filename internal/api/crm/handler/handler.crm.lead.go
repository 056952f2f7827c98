// Package crmhdl chứa HTTP handler cho domain CRM.
package crmhdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basehdl "copper_crm/internal/api/base/handler"
	crmdto "copper_crm/internal/api/crm/dto"
	crmmodels "copper_crm/internal/api/crm/models"
	crmsvc "copper_crm/internal/api/crm/service"
	runtimesvc "copper_crm/internal/api/runtime/service"
	"copper_crm/internal/common"
)

// LeadHandler xử lý các request liên quan đến lead.
// Ngoài CRUD còn có activity feed và opt-out thủ công.
type LeadHandler struct {
	basehdl.BaseHandler[crmmodels.Lead, crmdto.LeadCreateInput, crmdto.LeadUpdateInput]
	leadService     *crmsvc.LeadService
	activityService *runtimesvc.LeadActivityService
	stateService    *runtimesvc.LeadCampaignStateService
}

// NewLeadHandler tạo mới LeadHandler
func NewLeadHandler() (*LeadHandler, error) {
	leadService, err := crmsvc.NewLeadService()
	if err != nil {
		return nil, fmt.Errorf("failed to create lead service: %v", err)
	}
	activityService, err := runtimesvc.NewLeadActivityService()
	if err != nil {
		return nil, fmt.Errorf("failed to create lead activity service: %v", err)
	}
	stateService, err := runtimesvc.NewLeadCampaignStateService()
	if err != nil {
		return nil, fmt.Errorf("failed to create lead campaign state service: %v", err)
	}

	baseHandler := basehdl.NewBaseHandler[crmmodels.Lead, crmdto.LeadCreateInput, crmdto.LeadUpdateInput](leadService)
	return &LeadHandler{
		BaseHandler:     *baseHandler,
		leadService:     leadService,
		activityService: activityService,
		stateService:    stateService,
	}, nil
}

// Activities trả về các hoạt động gần nhất của một lead, mới nhất trước.
func (h *LeadHandler) Activities(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.leadIDParam(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		limit := int64(basehdl.ParseIntQuery(c, "limit", 50))
		activities, err := h.activityService.FindRecentByLead(c.Context(), id, limit)
		h.HandleResponse(c, activities, err)
		return nil
	})
}

// OptOut đánh dấu lead opt-out thủ công và dừng mọi state đang chạy của lead.
func (h *LeadHandler) OptOut(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.leadIDParam(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.leadService.MarkOptedOut(c.Context(), id); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		stopped, err := h.stateService.StopForLead(c.Context(), id)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		h.HandleResponse(c, fiber.Map{"leadId": id.Hex(), "stoppedStates": stopped}, nil)
		return nil
	})
}

func (h *LeadHandler) leadIDParam(c fiber.Ctx) (primitive.ObjectID, error) {
	raw := c.Params("id")
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, common.NewError(common.ErrCodeValidationFormat, fmt.Sprintf("ID lead không hợp lệ: %s", raw), common.StatusBadRequest, err)
	}
	return id, nil
}
