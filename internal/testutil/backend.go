package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/johnrirwin/youthinvest/internal/models"
)

// MockBackend is an in-process stand-in for the investing backend. It keeps
// a balance and a list of investments and counts calls per path.
type MockBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	calls       map[string]int
	failures    map[string]int
	balance     float64
	projects    []models.Project
	investments []models.Investment
	lastHeaders http.Header
}

// StartingBalance is what the mock resets the user to.
const StartingBalance = 10000.0

// NewMockBackend starts a mock backend that is closed when the test ends.
func NewMockBackend(t *testing.T) *MockBackend {
	t.Helper()

	m := &MockBackend{
		calls:    make(map[string]int),
		failures: make(map[string]int),
		balance:  StartingBalance,
		projects: SampleProjects(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/projects", m.track(m.handleProjects))
	mux.HandleFunc("/portfolio", m.track(m.handlePortfolio))
	mux.HandleFunc("/user/balance", m.track(m.handleBalance))
	mux.HandleFunc("/simulation", m.track(m.handleSimulation))
	mux.HandleFunc("/invest", m.track(m.handleInvest))
	mux.HandleFunc("/user/reset-balance", m.track(m.handleReset))

	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Server.Close)
	return m
}

// URL is the base URL to hand to api.NewClient.
func (m *MockBackend) URL() string { return m.Server.URL }

// Calls returns how many requests reached path.
func (m *MockBackend) Calls(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[path]
}

// FailNext makes the next n requests to path answer 500.
func (m *MockBackend) FailNext(path string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = n
}

// SetBalance overrides the user's balance.
func (m *MockBackend) SetBalance(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance
}

func (m *MockBackend) Balance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance
}

// LastHeaders returns the headers of the most recent request.
func (m *MockBackend) LastHeaders() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeaders.Clone()
}

func (m *MockBackend) track(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.calls[r.URL.Path]++
		m.lastHeaders = r.Header.Clone()
		fail := m.failures[r.URL.Path] > 0
		if fail {
			m.failures[r.URL.Path]--
		}
		m.mu.Unlock()

		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"message": "Internal error",
			})
			return
		}
		next(w, r)
	}
}

func (m *MockBackend) handleProjects(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	projects := append([]models.Project(nil), m.projects...)
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"projects":       projects,
		"total_projects": len(projects),
	})
}

func (m *MockBackend) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("user_id") != "1" {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "message": "User not found"})
		return
	}

	m.mu.Lock()
	p := &models.Portfolio{
		User:            &models.User{ID: 1, Username: "demo_user", Balance: m.balance},
		Investments:     append([]models.Investment{}, m.investments...),
		Diversification: map[string]float64{},
	}
	m.mu.Unlock()

	for _, inv := range p.Investments {
		p.TotalInvested += inv.Amount
		p.CurrentValue += inv.CurrentValue
		p.Diversification[inv.Category] += inv.Amount
	}
	p.TotalReturn = p.CurrentValue - p.TotalInvested

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "portfolio": p})
}

func (m *MockBackend) handleBalance(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	balance := m.balance
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"balance": balance,
		"user":    models.User{ID: 1, Username: "demo_user", Balance: balance},
	})
}

func (m *MockBackend) handleSimulation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"simulation_data": SampleSimulation(),
	})
}

func (m *MockBackend) handleInvest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.InvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "No data provided"})
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "Investment amount must be positive"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balance < req.Amount {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "Insufficient balance"})
		return
	}

	var project *models.Project
	for i := range m.projects {
		if m.projects[i].ID == req.ProjectID {
			project = &m.projects[i]
		}
	}
	if project == nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "Project not found"})
		return
	}

	m.balance -= req.Amount
	project.CurrentFunding += req.Amount
	m.investments = append(m.investments, models.Investment{
		ID:           int64(len(m.investments) + 1),
		UserID:       req.UserID,
		ProjectID:    project.ID,
		Amount:       req.Amount,
		CurrentValue: req.Amount,
		ProjectName:  project.Name,
		RiskLevel:    project.RiskLevel,
		ExpectedROI:  project.ExpectedROI,
		Category:     project.Category,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Investment successful!",
		"investment": models.InvestmentReceipt{
			ProjectID: req.ProjectID,
			Amount:    req.Amount,
			Timestamp: float64(time.Now().Unix()),
		},
	})
}

func (m *MockBackend) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	m.mu.Lock()
	m.balance = StartingBalance
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"balance": StartingBalance,
		"message": "Balance successfully reset to $10,000",
	})
}

// SampleProjects is a small fixed catalogue.
func SampleProjects() []models.Project {
	return []models.Project{
		{ID: 1, Name: "Green Coffee Shop", Category: "Food & Beverage", RiskLevel: models.RiskMedium, ExpectedROI: 12.5, FundingGoal: 25000, CurrentFunding: 5000, Location: "Downtown District"},
		{ID: 2, Name: "Teen Tech Tutoring", Category: "Education", RiskLevel: models.RiskLow, ExpectedROI: 8, FundingGoal: 15000, CurrentFunding: 8000, Location: "School District"},
		{ID: 3, Name: "Urban Vertical Farm", Category: "Agriculture", RiskLevel: models.RiskHigh, ExpectedROI: 18, FundingGoal: 50000, CurrentFunding: 12000, Location: "Industrial Zone"},
	}
}

// SampleSimulation is fixed chart data.
func SampleSimulation() *models.SimulationData {
	return &models.SimulationData{
		PortfolioGrowth: []models.GrowthPoint{
			{Month: "Jan", Value: 10200, Invested: 10000},
			{Month: "Feb", Value: 10450, Invested: 10500},
		},
		RiskDistribution: []models.RiskSlice{
			{RiskLevel: models.RiskLow, Percentage: 30, Amount: 3000},
			{RiskLevel: models.RiskMedium, Percentage: 50, Amount: 5000},
			{RiskLevel: models.RiskHigh, Percentage: 20, Amount: 2000},
		},
		EconomicImpact: models.EconomicImpact{JobsCreated: 18, LocalRevenueGenerated: 72000, BusinessesSupported: 9, CommunityProjectsFunded: 4},
		MarketTrends:   []models.MarketTrend{{Day: 1, MarketIndex: 101.2, YourPortfolio: 103.4}},
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
