package runtimehdl

import (
	"fmt"

	basehdl "copper_crm/internal/api/base/handler"
	runtimedto "copper_crm/internal/api/runtime/dto"
	runtimemodels "copper_crm/internal/api/runtime/models"
	runtimesvc "copper_crm/internal/api/runtime/service"
)

// OutboundInboxHandler xử lý CRUD cho hộp thư gửi đi
type OutboundInboxHandler struct {
	basehdl.BaseHandler[runtimemodels.OutboundInbox, runtimedto.OutboundInboxCreateInput, runtimedto.OutboundInboxUpdateInput]
}

// NewOutboundInboxHandler tạo mới OutboundInboxHandler
func NewOutboundInboxHandler() (*OutboundInboxHandler, error) {
	inboxService, err := runtimesvc.NewOutboundInboxService()
	if err != nil {
		return nil, fmt.Errorf("failed to create outbound inbox service: %v", err)
	}

	baseHandler := basehdl.NewBaseHandler[runtimemodels.OutboundInbox, runtimedto.OutboundInboxCreateInput, runtimedto.OutboundInboxUpdateInput](inboxService)
	return &OutboundInboxHandler{BaseHandler: *baseHandler}, nil
}
