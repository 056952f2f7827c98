package crmhdl

import (
	"fmt"

	basehdl "copper_crm/internal/api/base/handler"
	crmdto "copper_crm/internal/api/crm/dto"
	crmmodels "copper_crm/internal/api/crm/models"
	crmsvc "copper_crm/internal/api/crm/service"
)

// CompanyHandler xử lý CRUD cho công ty
type CompanyHandler struct {
	basehdl.BaseHandler[crmmodels.Company, crmdto.CompanyCreateInput, crmdto.CompanyUpdateInput]
}

// NewCompanyHandler tạo mới CompanyHandler
func NewCompanyHandler() (*CompanyHandler, error) {
	companyService, err := crmsvc.NewCompanyService()
	if err != nil {
		return nil, fmt.Errorf("failed to create company service: %v", err)
	}

	baseHandler := basehdl.NewBaseHandler[crmmodels.Company, crmdto.CompanyCreateInput, crmdto.CompanyUpdateInput](companyService)
	return &CompanyHandler{BaseHandler: *baseHandler}, nil
}
