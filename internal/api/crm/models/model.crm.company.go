// Package models - Company thuộc domain CRM (companies).
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Company lưu một công ty gắn với lead (companies).
type Company struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	CompanyName string `json:"companyName" bson:"companyName" index:"single:1" validate:"required"`
	Website     string `json:"website,omitempty" bson:"website,omitempty" index:"single:1"`

	EmployeesAmount   string `json:"employeesAmount,omitempty" bson:"employeesAmount,omitempty"`
	CompanyAddress    string `json:"companyAddress,omitempty" bson:"companyAddress,omitempty"`
	CompanyCity       string `json:"companyCity,omitempty" bson:"companyCity,omitempty"`
	CompanyPhone      string `json:"companyPhone,omitempty" bson:"companyPhone,omitempty"`
	CompanyEmail      string `json:"companyEmail,omitempty" bson:"companyEmail,omitempty"`
	Technologies      string `json:"technologies,omitempty" bson:"technologies,omitempty"`
	LatestFunding     string `json:"latestFunding,omitempty" bson:"latestFunding,omitempty"`
	LatestFundingDate int64  `json:"latestFundingDate,omitempty" bson:"latestFundingDate,omitempty"`
	Facebook          string `json:"facebook,omitempty" bson:"facebook,omitempty"`
	Twitter           string `json:"twitter,omitempty" bson:"twitter,omitempty"`
	Youtube           string `json:"youtube,omitempty" bson:"youtube,omitempty"`
	Instagram         string `json:"instagram,omitempty" bson:"instagram,omitempty"`
	AnnualRevenue     string `json:"annualRevenue,omitempty" bson:"annualRevenue,omitempty"`

	// Metadata
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
