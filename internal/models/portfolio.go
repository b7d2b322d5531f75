package models

// Investment is one holding in a user's portfolio joined with its project.
type Investment struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	ProjectID        int64     `json:"project_id"`
	Amount           float64   `json:"amount"`
	CurrentValue     float64   `json:"current_value"`
	InvestmentDate   string    `json:"investment_date,omitempty"`
	ProjectName      string    `json:"project_name"`
	RiskLevel        RiskLevel `json:"risk_level"`
	ExpectedROI      float64   `json:"expected_roi"`
	Category         string    `json:"category"`
	ReturnPercentage float64   `json:"return_percentage"`
	ReturnAmount     float64   `json:"return_amount"`
}

// Portfolio is a user's holdings with simulated valuation.
type Portfolio struct {
	User                  *User              `json:"user"`
	Investments           []Investment       `json:"investments"`
	TotalInvested         float64            `json:"total_invested"`
	CurrentValue          float64            `json:"current_value"`
	TotalReturn           float64            `json:"total_return"`
	TotalReturnPercentage float64            `json:"total_return_percentage"`
	Diversification       map[string]float64 `json:"diversification"`
}

// Empty reports whether the user holds nothing.
func (p *Portfolio) Empty() bool {
	return p == nil || len(p.Investments) == 0
}
