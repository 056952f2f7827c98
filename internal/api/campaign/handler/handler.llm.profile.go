package campaignhdl

import (
	"fmt"

	basehdl "copper_crm/internal/api/base/handler"
	campaigndto "copper_crm/internal/api/campaign/dto"
	campaignmodels "copper_crm/internal/api/campaign/models"
	campaignsvc "copper_crm/internal/api/campaign/service"
)

// LLMProfileHandler xử lý CRUD cho hồ sơ giọng văn
type LLMProfileHandler struct {
	basehdl.BaseHandler[campaignmodels.LLMProfile, campaigndto.LLMProfileCreateInput, campaigndto.LLMProfileUpdateInput]
}

// NewLLMProfileHandler tạo mới LLMProfileHandler
func NewLLMProfileHandler() (*LLMProfileHandler, error) {
	profileService, err := campaignsvc.NewLLMProfileService()
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM profile service: %v", err)
	}

	baseHandler := basehdl.NewBaseHandler[campaignmodels.LLMProfile, campaigndto.LLMProfileCreateInput, campaigndto.LLMProfileUpdateInput](profileService)
	return &LLMProfileHandler{BaseHandler: *baseHandler}, nil
}
