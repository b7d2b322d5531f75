package models

import "time"

// RiskLevel is the backend's coarse risk bucket for a project.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Project is a local business open for micro-investment.
type Project struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Category           string    `json:"category"`
	RiskLevel          RiskLevel `json:"risk_level"`
	ExpectedROI        float64   `json:"expected_roi"`
	FundingGoal        float64   `json:"funding_goal"`
	CurrentFunding     float64   `json:"current_funding"`
	Location           string    `json:"location"`
	ImageURL           string    `json:"image_url,omitempty"`
	CreatedAt          string    `json:"created_at,omitempty"`
	FundingPercentage  float64   `json:"funding_percentage"`
	CurrentMarketValue float64   `json:"current_market_value"`
	DaysRemaining      int       `json:"days_remaining"`
	InvestorCount      int       `json:"investor_count"`
}

// RemainingFunding is how much the project still needs to hit its goal.
func (p Project) RemainingFunding() float64 {
	if p.CurrentFunding >= p.FundingGoal {
		return 0
	}
	return p.FundingGoal - p.CurrentFunding
}

// FullyFunded reports whether the funding goal has been reached.
func (p Project) FullyFunded() bool {
	return p.FundingGoal > 0 && p.CurrentFunding >= p.FundingGoal
}

// User is the simulator's account holder.
type User struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Balance   float64 `json:"balance"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// InvestmentRequest is the body of POST /invest.
type InvestmentRequest struct {
	ProjectID int64   `json:"project_id"`
	Amount    float64 `json:"amount"`
	UserID    int64   `json:"user_id"`
}

// InvestmentReceipt is what the backend echoes back for a successful investment.
// Timestamp is in fractional unix seconds.
type InvestmentReceipt struct {
	ProjectID int64   `json:"project_id"`
	Amount    float64 `json:"amount"`
	Timestamp float64 `json:"timestamp"`
}

// Time converts the receipt timestamp.
func (r InvestmentReceipt) Time() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}
