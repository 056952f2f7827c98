// Package router đăng ký các route thuộc domain CRM: Lead, Company.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	crmhdl "copper_crm/internal/api/crm/handler"
	apirouter "copper_crm/internal/api/router"
)

// Register đăng ký tất cả route CRM lên v1.
func Register(v1 fiber.Router, r *apirouter.Router) error {
	leadHandler, err := crmhdl.NewLeadHandler()
	if err != nil {
		return fmt.Errorf("create lead handler: %w", err)
	}
	companyHandler, err := crmhdl.NewCompanyHandler()
	if err != nil {
		return fmt.Errorf("create company handler: %w", err)
	}

	r.RegisterCRUDRoutes(v1, "/leads", leadHandler, apirouter.ReadWriteConfig)
	r.RegisterCRUDRoutes(v1, "/companies", companyHandler, apirouter.ReadWriteConfig)

	leads := v1.Group("/leads")
	leads.Get("/:id/activities", leadHandler.Activities)
	leads.Post("/:id/opt-out", leadHandler.OptOut)

	return nil
}
