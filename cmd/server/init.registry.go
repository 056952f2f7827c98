package main

import (
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"copper_crm/config"
	"copper_crm/internal/global"
)

func InitRegistry() {

	logrus.Info("Initialized registry") // Ghi log thông báo đã khởi tạo registry

	// Khởi tạo registry và đăng ký các collections
	err := InitCollections(global.MongoDB_Session, global.ServerConfig)
	if err != nil {
		logrus.Fatalf("Failed to initialize collections: %v", err)
	}
	logrus.Info("Initialized collection registry")
}

// InitCollections khởi tạo và đăng ký các collections MongoDB
func InitCollections(client *mongo.Client, cfg *config.Configuration) error {
	db := client.Database(cfg.MongoDB_DBName_Data)
	colNames := []string{
		global.MongoDB_ColNames.Campaigns,
		global.MongoDB_ColNames.CampaignSteps,
		global.MongoDB_ColNames.CampaignEdges,
		global.MongoDB_ColNames.LLMProfiles,
		global.MongoDB_ColNames.Leads,
		global.MongoDB_ColNames.Companies,
		global.MongoDB_ColNames.LeadCampaignStates,
		global.MongoDB_ColNames.LeadActivities,
		global.MongoDB_ColNames.OutboundMessages,
		global.MongoDB_ColNames.CampaignEmailDrafts,
		global.MongoDB_ColNames.OutboundInboxes,
	}

	for _, name := range colNames {
		registered, err := global.RegistryCollections.Register(name, db.Collection(name))
		if err != nil {
			logrus.Errorf("Failed to register collection %s: %v", name, err)
			return err
		}

		if registered {
			logrus.Infof("Collection %s registered successfully", name)
		} else {
			logrus.Errorf("Collection %s already registered", name)
		}

	}

	return nil
}
