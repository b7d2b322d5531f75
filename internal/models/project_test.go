package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_RemainingFunding(t *testing.T) {
	tests := []struct {
		name     string
		project  Project
		want     float64
		complete bool
	}{
		{"partially funded", Project{FundingGoal: 25000, CurrentFunding: 5000}, 20000, false},
		{"exactly funded", Project{FundingGoal: 8000, CurrentFunding: 8000}, 0, true},
		{"overfunded", Project{FundingGoal: 8000, CurrentFunding: 9000}, 0, true},
		{"no goal", Project{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.project.RemainingFunding())
			assert.Equal(t, tt.complete, tt.project.FullyFunded())
		})
	}
}

func TestProject_DecodeBackendJSON(t *testing.T) {
	raw := `{"id":3,"name":"Urban Vertical Farm","category":"Agriculture","risk_level":"High",
		"expected_roi":18.0,"funding_goal":50000.0,"current_funding":12000.0,"location":"Industrial Zone",
		"funding_percentage":24.0,"current_market_value":11800.5,"days_remaining":42,"investor_count":17}`

	var p Project
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, RiskHigh, p.RiskLevel)
	assert.Equal(t, 42, p.DaysRemaining)
	assert.Equal(t, 17, p.InvestorCount)
}

func TestInvestmentReceipt_Time(t *testing.T) {
	r := InvestmentReceipt{Timestamp: 1700000000.5}
	want := time.Unix(1700000000, int64(500*time.Millisecond))
	assert.True(t, r.Time().Equal(want), "Time() = %v, want %v", r.Time(), want)
}

func TestPortfolio_Empty(t *testing.T) {
	var nilPortfolio *Portfolio
	assert.True(t, nilPortfolio.Empty(), "nil portfolio")
	assert.True(t, (&Portfolio{}).Empty(), "portfolio without investments")

	p := &Portfolio{Investments: []Investment{{ProjectID: 1, Amount: 100}}}
	assert.False(t, p.Empty())
}
