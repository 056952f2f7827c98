package campaignhdl

import (
	"fmt"

	basehdl "copper_crm/internal/api/base/handler"
	campaigndto "copper_crm/internal/api/campaign/dto"
	campaignmodels "copper_crm/internal/api/campaign/models"
	campaignsvc "copper_crm/internal/api/campaign/service"
)

// CampaignEdgeHandler xử lý CRUD cho cạnh chiến dịch
type CampaignEdgeHandler struct {
	basehdl.BaseHandler[campaignmodels.CampaignEdge, campaigndto.CampaignEdgeCreateInput, campaigndto.CampaignEdgeUpdateInput]
}

// NewCampaignEdgeHandler tạo mới CampaignEdgeHandler
func NewCampaignEdgeHandler() (*CampaignEdgeHandler, error) {
	edgeService, err := campaignsvc.NewCampaignEdgeService()
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign edge service: %v", err)
	}

	baseHandler := basehdl.NewBaseHandler[campaignmodels.CampaignEdge, campaigndto.CampaignEdgeCreateInput, campaigndto.CampaignEdgeUpdateInput](edgeService)
	return &CampaignEdgeHandler{BaseHandler: *baseHandler}, nil
}
