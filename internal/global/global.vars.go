package global

import (
	"copper_crm/config"
	"copper_crm/internal/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_CollectionName chứa tên các collection trong MongoDB
type MongoDB_CollectionName struct {
	// Campaign Collections
	Campaigns     string // Tên collection cho chiến dịch
	CampaignSteps string // Tên collection cho bước chiến dịch
	CampaignEdges string // Tên collection cho cạnh nối giữa các bước
	LLMProfiles   string // Tên collection cho hồ sơ LLM

	// CRM Collections
	Leads     string // Tên collection cho khách hàng tiềm năng
	Companies string // Tên collection cho công ty

	// Campaign Runtime Collections
	LeadCampaignStates  string // Tên collection cho trạng thái lead trong chiến dịch
	LeadActivities      string // Tên collection cho hoạt động của lead
	OutboundMessages    string // Tên collection cho email đã gửi và phản hồi
	CampaignEmailDrafts string // Tên collection cho bản nháp email chờ duyệt
	OutboundInboxes     string // Tên collection cho hộp thư gửi đi
}

// Các biến toàn cục
var Validate *validator.Validate              // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client             // Phiên kết nối tới MongoDB
var ServerConfig *config.Configuration        // Cấu hình của server
var MongoDB_ColNames = MongoDB_CollectionName{} // Tên các collection

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections
var RegistryDatabase = registry.NewRegistry[*mongo.Database]()      // Registry chứa các databases
