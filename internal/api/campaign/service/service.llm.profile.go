// Package campaignvc - Service hồ sơ giọng điệu LLM (llm_profiles).
package campaignvc

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basesvc "copper_crm/internal/api/base/service"
	campaignmodels "copper_crm/internal/api/campaign/models"
	"copper_crm/internal/common"
	"copper_crm/internal/global"
)

// LLMProfileService xử lý CRUD hồ sơ giọng điệu dùng khi sinh email.
type LLMProfileService struct {
	*basesvc.BaseServiceMongoImpl[campaignmodels.LLMProfile]
}

// NewLLMProfileService tạo LLMProfileService mới.
func NewLLMProfileService() (*LLMProfileService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.LLMProfiles)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.LLMProfiles, common.ErrNotFound)
	}
	return &LLMProfileService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[campaignmodels.LLMProfile](coll),
	}, nil
}

// FindDefault trả về hồ sơ mặc định (isDefault = true) nếu có.
func (s *LLMProfileService) FindDefault(ctx context.Context) (campaignmodels.LLMProfile, bool, error) {
	var zero campaignmodels.LLMProfile
	profile, err := s.FindOne(ctx, bson.M{"isDefault": true}, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return profile, true, nil
}

// SetDefault đánh dấu một hồ sơ là mặc định và bỏ cờ ở các hồ sơ khác.
func (s *LLMProfileService) SetDefault(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.UpdateMany(ctx, bson.M{"isDefault": true}, bson.M{"isDefault": false}); err != nil {
		return err
	}
	_, err := s.UpdateById(ctx, id, bson.M{"isDefault": true})
	return err
}
