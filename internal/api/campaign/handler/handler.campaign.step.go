package campaignhdl

import (
	"fmt"

	basehdl "copper_crm/internal/api/base/handler"
	campaigndto "copper_crm/internal/api/campaign/dto"
	campaignmodels "copper_crm/internal/api/campaign/models"
	campaignsvc "copper_crm/internal/api/campaign/service"
)

// CampaignStepHandler xử lý CRUD cho bước chiến dịch
type CampaignStepHandler struct {
	basehdl.BaseHandler[campaignmodels.CampaignStep, campaigndto.CampaignStepCreateInput, campaigndto.CampaignStepUpdateInput]
}

// NewCampaignStepHandler tạo mới CampaignStepHandler
func NewCampaignStepHandler() (*CampaignStepHandler, error) {
	stepService, err := campaignsvc.NewCampaignStepService()
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign step service: %v", err)
	}

	baseHandler := basehdl.NewBaseHandler[campaignmodels.CampaignStep, campaigndto.CampaignStepCreateInput, campaigndto.CampaignStepUpdateInput](stepService)
	return &CampaignStepHandler{BaseHandler: *baseHandler}, nil
}
