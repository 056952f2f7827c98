// Package crmvc - Service công ty CRM (companies).
package crmvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	basesvc "copper_crm/internal/api/base/service"
	crmmodels "copper_crm/internal/api/crm/models"
	"copper_crm/internal/common"
	"copper_crm/internal/global"
)

// CompanyService xử lý CRUD công ty.
type CompanyService struct {
	*basesvc.BaseServiceMongoImpl[crmmodels.Company]
}

// NewCompanyService tạo CompanyService mới.
func NewCompanyService() (*CompanyService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Companies)
	if !exist {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.Companies, common.ErrNotFound)
	}
	return &CompanyService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[crmmodels.Company](coll),
	}, nil
}

// FindByWebsite tìm công ty theo website.
func (s *CompanyService) FindByWebsite(ctx context.Context, website string) (crmmodels.Company, bool, error) {
	var zero crmmodels.Company
	d := strings.ToLower(strings.TrimSpace(website))
	if d == "" {
		return zero, false, nil
	}
	company, err := s.FindOne(ctx, bson.M{"website": d}, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return company, true, nil
}
