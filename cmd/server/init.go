package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"copper_crm/config"
	campaignmodels "copper_crm/internal/api/campaign/models"
	crmmodels "copper_crm/internal/api/crm/models"
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/database"
	"copper_crm/internal/global"
)

// Hàm khởi tạo các biến toàn cục
func InitGlobal() {
	initColNames()         // Khởi tạo tên các collection trong database
	initValidator()        // Khởi tạo validator
	initConfig()           // Khởi tạo cấu hình server
	initDatabase_MongoDB() // Khởi tạo kết nối database
}

// Hàm khởi tạo tên các collection trong database
func initColNames() {
	// Module chiến dịch (tiền tố campaign_, llm_)
	global.MongoDB_ColNames.Campaigns = "campaigns"
	global.MongoDB_ColNames.CampaignSteps = "campaign_steps"
	global.MongoDB_ColNames.CampaignEdges = "campaign_edges"
	global.MongoDB_ColNames.LLMProfiles = "llm_profiles"

	// Module CRM
	global.MongoDB_ColNames.Leads = "leads"
	global.MongoDB_ColNames.Companies = "companies"

	// Module runtime của engine
	global.MongoDB_ColNames.LeadCampaignStates = "lead_campaign_states"
	global.MongoDB_ColNames.LeadActivities = "lead_activities"
	global.MongoDB_ColNames.OutboundMessages = "outbound_messages"
	global.MongoDB_ColNames.CampaignEmailDrafts = "campaign_email_drafts"
	global.MongoDB_ColNames.OutboundInboxes = "outbound_inboxes"

	logrus.Info("Initialized collection names") // Ghi log thông báo đã khởi tạo tên các collection
}

// Hàm khởi tạo validator (dùng global.InitValidator để đăng ký custom validators: no_xss, ...)
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator") // Ghi log thông báo đã khởi tạo validator
}

// Hàm khởi tạo cấu hình server
func initConfig() {
	global.ServerConfig = config.NewConfig()
	if global.ServerConfig == nil {
		logrus.Fatalf("Failed to initialize config: config is nil") // Ghi log lỗi nếu khởi tạo cấu hình thất bại
	}
	logrus.Info("Initialized server config") // Ghi log thông báo đã khởi tạo cấu hình server
}

// Hàm khởi tạo kết nối database
func initDatabase_MongoDB() {
	var err error
	global.MongoDB_Session, err = database.GetInstance(global.ServerConfig)
	if err != nil {
		logrus.Fatalf("Failed to get database instance: %v", err) // Ghi log lỗi nếu kết nối database thất bại
	}
	logrus.Info("Connected to MongoDB") // Ghi log thông báo đã kết nối database thành công

	// Khởi tạo các db và collections nếu chưa có
	database.EnsureDatabaseAndCollections(global.MongoDB_Session)
	logrus.Info("Ensured database and collections") // Ghi log thông báo đã đảm bảo database và các collection

	// Khởi tạo các index cho các collection từ tag trên model
	dbName := global.ServerConfig.MongoDB_DBName_Data
	db := global.MongoDB_Session.Database(dbName)

	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.Campaigns), campaignmodels.Campaign{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.CampaignSteps), campaignmodels.CampaignStep{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.CampaignEdges), campaignmodels.CampaignEdge{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.LLMProfiles), campaignmodels.LLMProfile{})

	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.Leads), crmmodels.Lead{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.Companies), crmmodels.Company{})

	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.LeadCampaignStates), runtimemodels.LeadCampaignState{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.LeadActivities), runtimemodels.LeadActivity{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.OutboundMessages), runtimemodels.OutboundMessage{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.CampaignEmailDrafts), runtimemodels.CampaignEmailDraft{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.OutboundInboxes), runtimemodels.OutboundInbox{})

	// Index compound nhiều field của engine không khai báo được qua model tag
	if err := database.CreateRuntimeAdditionalIndexes(context.TODO(), db); err != nil {
		logrus.Errorf("Failed to create runtime additional indexes: %v", err)
	}
}
