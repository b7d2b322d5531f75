package models

// GrowthPoint is one month of simulated portfolio growth.
type GrowthPoint struct {
	Month    string  `json:"month"`
	Value    float64 `json:"value"`
	Invested float64 `json:"invested"`
}

// RiskSlice is one bucket of the simulated risk distribution.
type RiskSlice struct {
	RiskLevel  RiskLevel `json:"risk_level"`
	Percentage float64   `json:"percentage"`
	Amount     float64   `json:"amount"`
}

// EconomicImpact summarizes the community effect of invested money.
type EconomicImpact struct {
	JobsCreated             int     `json:"jobs_created"`
	LocalRevenueGenerated   float64 `json:"local_revenue_generated"`
	BusinessesSupported     int     `json:"businesses_supported"`
	CommunityProjectsFunded int     `json:"community_projects_funded"`
}

// MarketTrend compares the portfolio with a market index for one day.
type MarketTrend struct {
	Day           int     `json:"day"`
	MarketIndex   float64 `json:"market_index"`
	YourPortfolio float64 `json:"your_portfolio"`
}

// SimulationData feeds the simulation charts.
type SimulationData struct {
	PortfolioGrowth  []GrowthPoint  `json:"portfolio_growth"`
	RiskDistribution []RiskSlice    `json:"risk_distribution"`
	EconomicImpact   EconomicImpact `json:"economic_impact"`
	MarketTrends     []MarketTrend  `json:"market_trends"`
}
