// Package campaignhdl chứa HTTP handler cho domain chiến dịch.
package campaignhdl

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basehdl "copper_crm/internal/api/base/handler"
	campaigndto "copper_crm/internal/api/campaign/dto"
	campaignmodels "copper_crm/internal/api/campaign/models"
	campaignsvc "copper_crm/internal/api/campaign/service"
	"copper_crm/internal/api/initsvc"
	"copper_crm/internal/common"
)

// CampaignHandler xử lý các request liên quan đến chiến dịch.
// Ngoài CRUD còn có ba thao tác vòng đời (launch, pause, archive) và seed đồ thị preset.
type CampaignHandler struct {
	basehdl.BaseHandler[campaignmodels.Campaign, campaigndto.CampaignCreateInput, campaigndto.CampaignUpdateInput]
	campaignService *campaignsvc.CampaignService
	initService     *initsvc.InitService
}

// NewCampaignHandler tạo mới CampaignHandler
func NewCampaignHandler() (*CampaignHandler, error) {
	campaignService, err := campaignsvc.NewCampaignService()
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign service: %v", err)
	}
	initService, err := initsvc.NewInitService()
	if err != nil {
		return nil, fmt.Errorf("failed to create init service: %v", err)
	}

	baseHandler := basehdl.NewBaseHandler[campaignmodels.Campaign, campaigndto.CampaignCreateInput, campaigndto.CampaignUpdateInput](campaignService)
	return &CampaignHandler{
		BaseHandler:     *baseHandler,
		campaignService: campaignService,
		initService:     initService,
	}, nil
}

// Launch chuyển chiến dịch draft sang active. Chỉ đi một chiều, không launch lại.
func (h *CampaignHandler) Launch(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.campaignIDParam(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		// Body là tùy chọn, chỉ chứa ghi chú launch
		var input campaigndto.CampaignLaunchInput
		if len(c.Body()) > 0 {
			if err := json.Unmarshal(c.Body(), &input); err != nil {
				h.HandleResponse(c, nil, common.NewError(common.ErrCodeValidationFormat, common.MsgValidationError, common.StatusBadRequest, err))
				return nil
			}
		}

		campaign, err := h.campaignService.Launch(c.Context(), id, input.Notes)
		h.HandleResponse(c, campaign, err)
		return nil
	})
}

// Pause tạm dừng chiến dịch đang active.
func (h *CampaignHandler) Pause(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.campaignIDParam(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		campaign, err := h.campaignService.Pause(c.Context(), id)
		h.HandleResponse(c, campaign, err)
		return nil
	})
}

// Archive lưu trữ chiến dịch, loại khỏi mọi xử lý của engine.
func (h *CampaignHandler) Archive(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.campaignIDParam(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		campaign, err := h.campaignService.Archive(c.Context(), id)
		h.HandleResponse(c, campaign, err)
		return nil
	})
}

// SeedPreset dựng đồ thị bước và cạnh theo presetKey của chiến dịch.
// Không làm gì nếu chiến dịch đã có bước, tránh ghi đè đồ thị người dùng tự sửa.
func (h *CampaignHandler) SeedPreset(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.campaignIDParam(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		campaign, err := h.campaignService.FindOneById(c.Context(), id)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if campaign.PresetKey == "" {
			h.HandleResponse(c, nil, common.NewError(common.ErrCodeConfiguration, "Chiến dịch không có presetKey", common.StatusBadRequest, nil))
			return nil
		}
		if err := h.initService.SeedPresetGraph(c.Context(), campaign.ID, campaign.PresetKey); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		h.HandleResponse(c, fiber.Map{"campaignId": campaign.ID.Hex(), "presetKey": campaign.PresetKey}, nil)
		return nil
	})
}

func (h *CampaignHandler) campaignIDParam(c fiber.Ctx) (primitive.ObjectID, error) {
	raw := c.Params("id")
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, common.NewError(common.ErrCodeValidationFormat, fmt.Sprintf("ID chiến dịch không hợp lệ: %s", raw), common.StatusBadRequest, err)
	}
	return id, nil
}
