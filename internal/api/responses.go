package api

import "github.com/johnrirwin/youthinvest/internal/models"

// Envelope is the part every backend response shares. FromCache is set on
// the way out and never sent by the backend.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	FromCache bool   `json:"fromCache"`
}

func (e *Envelope) Succeeded() bool { return e.Success }

func (e *Envelope) SetFromCache(v bool) { e.FromCache = v }

// ProjectsResponse is returned by GET /projects.
type ProjectsResponse struct {
	Envelope
	Projects      []models.Project `json:"projects"`
	TotalProjects int              `json:"total_projects"`
}

func (r *ProjectsResponse) Payload() []models.Project { return r.Projects }

// CachedProjects builds the response served for a cache hit.
func CachedProjects(projects []models.Project) *ProjectsResponse {
	return &ProjectsResponse{
		Envelope:      Envelope{Success: true},
		Projects:      projects,
		TotalProjects: len(projects),
	}
}

// PortfolioResponse is returned by GET /portfolio.
type PortfolioResponse struct {
	Envelope
	Portfolio *models.Portfolio `json:"portfolio"`
}

func (r *PortfolioResponse) Payload() *models.Portfolio { return r.Portfolio }

func CachedPortfolio(p *models.Portfolio) *PortfolioResponse {
	return &PortfolioResponse{Envelope: Envelope{Success: true}, Portfolio: p}
}

// BalanceResponse is returned by GET /user/balance. Only the balance is cached,
// so a cache hit carries no User.
type BalanceResponse struct {
	Envelope
	Balance float64      `json:"balance"`
	User    *models.User `json:"user,omitempty"`
}

func (r *BalanceResponse) Payload() float64 { return r.Balance }

func CachedBalance(balance float64) *BalanceResponse {
	return &BalanceResponse{Envelope: Envelope{Success: true}, Balance: balance}
}

// SimulationResponse is returned by GET /simulation.
type SimulationResponse struct {
	Envelope
	SimulationData *models.SimulationData `json:"simulation_data"`
}

func (r *SimulationResponse) Payload() *models.SimulationData { return r.SimulationData }

func CachedSimulation(data *models.SimulationData) *SimulationResponse {
	return &SimulationResponse{Envelope: Envelope{Success: true}, SimulationData: data}
}

// InvestmentResponse is returned by POST /invest.
type InvestmentResponse struct {
	Envelope
	Investment *models.InvestmentReceipt `json:"investment,omitempty"`
}

// ResetBalanceResponse is returned by POST /user/reset-balance.
type ResetBalanceResponse struct {
	Envelope
	Balance float64 `json:"balance"`
}
