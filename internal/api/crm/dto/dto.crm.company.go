package crmdto

// CompanyCreateInput là input để tạo công ty mới.
type CompanyCreateInput struct {
	CompanyName string `json:"companyName" validate:"required"`
	Website     string `json:"website,omitempty"`

	EmployeesAmount   string `json:"employeesAmount,omitempty"`
	CompanyAddress    string `json:"companyAddress,omitempty"`
	CompanyCity       string `json:"companyCity,omitempty"`
	CompanyPhone      string `json:"companyPhone,omitempty"`
	CompanyEmail      string `json:"companyEmail,omitempty" validate:"omitempty,email"`
	Technologies      string `json:"technologies,omitempty"`
	LatestFunding     string `json:"latestFunding,omitempty"`
	LatestFundingDate int64  `json:"latestFundingDate,omitempty"`
	Facebook          string `json:"facebook,omitempty"`
	Twitter           string `json:"twitter,omitempty"`
	Youtube           string `json:"youtube,omitempty"`
	Instagram         string `json:"instagram,omitempty"`
	AnnualRevenue     string `json:"annualRevenue,omitempty"`
}

// CompanyUpdateInput là input để cập nhật công ty. Chỉ field khác zero được set.
type CompanyUpdateInput struct {
	CompanyName string `json:"companyName,omitempty"`
	Website     string `json:"website,omitempty"`

	EmployeesAmount   string `json:"employeesAmount,omitempty"`
	CompanyAddress    string `json:"companyAddress,omitempty"`
	CompanyCity       string `json:"companyCity,omitempty"`
	CompanyPhone      string `json:"companyPhone,omitempty"`
	CompanyEmail      string `json:"companyEmail,omitempty" validate:"omitempty,email"`
	Technologies      string `json:"technologies,omitempty"`
	LatestFunding     string `json:"latestFunding,omitempty"`
	LatestFundingDate int64  `json:"latestFundingDate,omitempty"`
	Facebook          string `json:"facebook,omitempty"`
	Twitter           string `json:"twitter,omitempty"`
	Youtube           string `json:"youtube,omitempty"`
	Instagram         string `json:"instagram,omitempty"`
	AnnualRevenue     string `json:"annualRevenue,omitempty"`
}
