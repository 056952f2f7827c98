package main

import (
	"context"

	"copper_crm/internal/api/initsvc"
	"copper_crm/internal/logger"
)

func InitDefaultData() {
	log := logger.GetAppLogger()
	log.Info("🔄 [INIT] Starting InitDefaultData...")

	initService, err := initsvc.NewInitService()
	if err != nil {
		log.Fatalf("Failed to initialize init service: %v", err)
	}

	// Hồ sơ giọng văn mặc định cho LLM, dùng khi chiến dịch không chọn hồ sơ riêng
	log.Info("🔄 [INIT] Step 1: Initializing default LLM profile...")
	if err := initService.InitDefaultLLMProfile(context.Background()); err != nil {
		log.WithError(err).Error("❌ [INIT] Step 1: Failed to initialize default LLM profile")
		log.Warnf("Failed to initialize default LLM profile: %v", err)
	} else {
		log.Info("✅ [INIT] Step 1: Default LLM profile initialized")
	}

	log.Info("✅ [INIT] InitDefaultData completed successfully")
}
