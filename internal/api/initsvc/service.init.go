// Package initsvc chứa InitService dùng để khởi tạo dữ liệu ban đầu
// (hồ sơ LLM mặc định, đồ thị preset cho chiến dịch mới).
// Tách ra package riêng để tránh import cycle giữa campaign/service và handler.
package initsvc

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	campaignmodels "copper_crm/internal/api/campaign/models"
	campaignsvc "copper_crm/internal/api/campaign/service"
	"copper_crm/internal/logger"
	"copper_crm/internal/utility"
)

// PresetColdOutboundBasic là preset đồ thị mặc định:
// entry → email đầu → (reply → goal | no_reply → email nhắc) → (reply → goal | no_reply → exit).
const PresetColdOutboundBasic = "cold_outbound_basic"

// defaultProfileRules là khối rules của hồ sơ giọng văn mặc định.
const defaultProfileRules = `Viết email ngắn gọn, tối đa 120 từ.
Giọng chuyên nghiệp nhưng thân thiện, không dùng từ ngữ quảng cáo rỗng.
Mở đầu bằng chi tiết cá nhân hóa từ thông tin lead nếu có.
Kết thúc bằng đúng một câu hỏi hoặc lời mời hành động.
Không hứa hẹn tính năng hoặc số liệu không có trong brief.`

// InitService khởi tạo dữ liệu mặc định cho hệ thống chiến dịch.
type InitService struct {
	profileService  *campaignsvc.LLMProfileService
	campaignService *campaignsvc.CampaignService
	stepService     *campaignsvc.CampaignStepService
	edgeService     *campaignsvc.CampaignEdgeService
}

// NewInitService tạo mới InitService
func NewInitService() (*InitService, error) {
	profileService, err := campaignsvc.NewLLMProfileService()
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM profile service: %v", err)
	}
	campaignService, err := campaignsvc.NewCampaignService()
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign service: %v", err)
	}
	stepService, err := campaignsvc.NewCampaignStepService()
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign step service: %v", err)
	}
	edgeService, err := campaignsvc.NewCampaignEdgeService()
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign edge service: %v", err)
	}

	return &InitService{
		profileService:  profileService,
		campaignService: campaignService,
		stepService:     stepService,
		edgeService:     edgeService,
	}, nil
}

// InitDefaultLLMProfile tạo hồ sơ giọng văn mặc định nếu hệ thống chưa có hồ sơ default nào.
func (s *InitService) InitDefaultLLMProfile(ctx context.Context) error {
	log := logger.GetAppLogger()

	exists, err := s.profileService.DocumentExists(ctx, bson.M{"isDefault": true})
	if err != nil {
		return err
	}
	if exists {
		log.Info("Default LLM profile already exists, skipping")
		return nil
	}

	now := utility.CurrentTimeInMilli()
	profile := campaignmodels.LLMProfile{
		Name:        "Giọng outbound mặc định",
		Description: "Hồ sơ giọng văn mặc định cho email outbound, dùng khi chiến dịch không chọn hồ sơ riêng",
		Rules:       defaultProfileRules,
		Category:    "general",
		IsDefault:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.profileService.InsertOne(ctx, profile)
	if err != nil {
		return err
	}
	log.Infof("Created default LLM profile (ID: %s)", created.ID.Hex())
	return nil
}

// SeedPresetGraph dựng đồ thị bước và cạnh cho một chiến dịch theo presetKey.
// Chiến dịch đã có bước thì không làm gì để tránh ghi đè đồ thị người dùng tự sửa.
func (s *InitService) SeedPresetGraph(ctx context.Context, campaignID primitive.ObjectID, presetKey string) error {
	if presetKey != PresetColdOutboundBasic {
		return fmt.Errorf("preset không được hỗ trợ: %s", presetKey)
	}

	hasSteps, err := s.stepService.DocumentExists(ctx, bson.M{"campaignId": campaignID})
	if err != nil {
		return err
	}
	if hasSteps {
		return nil
	}

	now := utility.CurrentTimeInMilli()
	newStep := func(title, stepType string, sequence int, config campaignmodels.StepConfig) (campaignmodels.CampaignStep, error) {
		return s.stepService.InsertOne(ctx, campaignmodels.CampaignStep{
			CampaignID: campaignID,
			Title:      title,
			StepType:   stepType,
			Sequence:   sequence,
			Config:     config,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	entry, err := newStep("Điểm vào", campaignmodels.StepTypeEntry, 1, campaignmodels.StepConfig{})
	if err != nil {
		return err
	}
	firstEmail, err := newStep("Email mở đầu", campaignmodels.StepTypeAIEmail, 2, campaignmodels.StepConfig{
		AIEmail: &campaignmodels.AIEmailConfig{Variant: "first_touch", ReplyWaitHours: 72},
	})
	if err != nil {
		return err
	}
	followUp, err := newStep("Email nhắc lại", campaignmodels.StepTypeAIEmail, 3, campaignmodels.StepConfig{
		AIEmail: &campaignmodels.AIEmailConfig{Variant: "follow_up", ReplyWaitHours: 72},
	})
	if err != nil {
		return err
	}
	goal, err := newStep("Có phản hồi", campaignmodels.StepTypeGoal, 4, campaignmodels.StepConfig{})
	if err != nil {
		return err
	}
	exit, err := newStep("Không phản hồi", campaignmodels.StepTypeExit, 5, campaignmodels.StepConfig{})
	if err != nil {
		return err
	}

	newEdge := func(from, to primitive.ObjectID, conditionType string, order int) error {
		_, err := s.edgeService.InsertOne(ctx, campaignmodels.CampaignEdge{
			CampaignID:    campaignID,
			FromStepID:    from,
			ToStepID:      to,
			ConditionType: conditionType,
			Order:         order,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return err
	}

	if err := newEdge(entry.ID, firstEmail.ID, campaignmodels.EdgeConditionAlways, 0); err != nil {
		return err
	}
	if err := newEdge(firstEmail.ID, goal.ID, campaignmodels.EdgeConditionReply, 0); err != nil {
		return err
	}
	if err := newEdge(firstEmail.ID, followUp.ID, campaignmodels.EdgeConditionNoReply, 1); err != nil {
		return err
	}
	if err := newEdge(followUp.ID, goal.ID, campaignmodels.EdgeConditionReply, 0); err != nil {
		return err
	}
	if err := newEdge(followUp.ID, exit.ID, campaignmodels.EdgeConditionNoReply, 1); err != nil {
		return err
	}

	logger.GetAppLogger().Infof("Seeded preset graph %s for campaign %s", presetKey, campaignID.Hex())
	return nil
}
