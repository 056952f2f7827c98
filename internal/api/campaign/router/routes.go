// Package router đăng ký các route thuộc domain chiến dịch:
// Campaign (CRUD + launch/pause/archive), CampaignStep, CampaignEdge, LLMProfile.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	campaignhdl "copper_crm/internal/api/campaign/handler"
	apirouter "copper_crm/internal/api/router"
)

// Register đăng ký tất cả route domain chiến dịch lên v1.
func Register(v1 fiber.Router, r *apirouter.Router) error {
	campaignHandler, err := campaignhdl.NewCampaignHandler()
	if err != nil {
		return fmt.Errorf("create campaign handler: %w", err)
	}
	stepHandler, err := campaignhdl.NewCampaignStepHandler()
	if err != nil {
		return fmt.Errorf("create campaign step handler: %w", err)
	}
	edgeHandler, err := campaignhdl.NewCampaignEdgeHandler()
	if err != nil {
		return fmt.Errorf("create campaign edge handler: %w", err)
	}
	profileHandler, err := campaignhdl.NewLLMProfileHandler()
	if err != nil {
		return fmt.Errorf("create LLM profile handler: %w", err)
	}

	r.RegisterCRUDRoutes(v1, "/campaigns", campaignHandler, apirouter.ReadWriteConfig)
	r.RegisterCRUDRoutes(v1, "/campaign-steps", stepHandler, apirouter.ReadWriteConfig)
	r.RegisterCRUDRoutes(v1, "/campaign-edges", edgeHandler, apirouter.ReadWriteConfig)
	r.RegisterCRUDRoutes(v1, "/llm-profiles", profileHandler, apirouter.ReadWriteConfig)

	// Vòng đời chiến dịch: launch một chiều, pause/archive
	campaigns := v1.Group("/campaigns")
	campaigns.Post("/:id/launch", campaignHandler.Launch)
	campaigns.Post("/:id/pause", campaignHandler.Pause)
	campaigns.Post("/:id/archive", campaignHandler.Archive)
	campaigns.Post("/:id/seed-preset", campaignHandler.SeedPreset)

	return nil
}
