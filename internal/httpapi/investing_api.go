package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/johnrirwin/youthinvest/internal/api"
	"github.com/johnrirwin/youthinvest/internal/cache"
	"github.com/johnrirwin/youthinvest/internal/investing"
	"github.com/johnrirwin/youthinvest/internal/logging"
)

// InvestingService is what the routes need from investing.Service.
type InvestingService interface {
	Projects(ctx context.Context) (*api.ProjectsResponse, error)
	Portfolio(ctx context.Context) (*api.PortfolioResponse, error)
	Balance(ctx context.Context) (*api.BalanceResponse, error)
	Simulation(ctx context.Context) (*api.SimulationResponse, error)
	Dashboard(ctx context.Context) (*investing.Dashboard, error)
	Invest(ctx context.Context, projectID int64, amount float64) (*api.InvestmentResponse, error)
	ResetBalance(ctx context.Context) (*api.ResetBalanceResponse, error)
	CacheStatus() cache.StatusReport
	ClearCache()
}

// InvestingAPI serves the cache-backed investing routes.
type InvestingAPI struct {
	svc    InvestingService
	logger *logging.Logger
}

func NewInvestingAPI(svc InvestingService, logger *logging.Logger) *InvestingAPI {
	return &InvestingAPI{svc: svc, logger: logger}
}

// RegisterRoutes mounts the routes on r. protect wraps every route that
// changes state.
func (a *InvestingAPI) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Get("/projects", a.handleProjects)
	r.Get("/portfolio", a.handlePortfolio)
	r.Get("/balance", a.handleBalance)
	r.Get("/simulation", a.handleSimulation)
	r.Get("/dashboard", a.handleDashboard)
	r.Get("/cache/status", a.handleCacheStatus)

	r.Group(func(r chi.Router) {
		r.Use(protect)
		r.Post("/invest", a.handleInvest)
		r.Post("/balance/reset", a.handleResetBalance)
		r.Post("/cache/clear", a.handleClearCache)
	})
}

type investRequest struct {
	ProjectID int64   `json:"project_id"`
	Amount    float64 `json:"amount"`
}

// statusFor maps a backend envelope to the status the UI sees: refused
// requests are reported as bad requests.
func statusFor(succeeded bool) int {
	if succeeded {
		return http.StatusOK
	}
	return http.StatusBadRequest
}

func (a *InvestingAPI) handleProjects(w http.ResponseWriter, r *http.Request) {
	resp, err := a.svc.Projects(r.Context())
	if err != nil {
		a.backendError(w, r, "projects", err)
		return
	}
	writeJSON(w, statusFor(resp.Success), resp)
}

func (a *InvestingAPI) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	resp, err := a.svc.Portfolio(r.Context())
	if err != nil {
		a.backendError(w, r, "portfolio", err)
		return
	}
	writeJSON(w, statusFor(resp.Success), resp)
}

func (a *InvestingAPI) handleBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := a.svc.Balance(r.Context())
	if err != nil {
		a.backendError(w, r, "balance", err)
		return
	}
	writeJSON(w, statusFor(resp.Success), resp)
}

func (a *InvestingAPI) handleSimulation(w http.ResponseWriter, r *http.Request) {
	resp, err := a.svc.Simulation(r.Context())
	if err != nil {
		a.backendError(w, r, "simulation", err)
		return
	}
	writeJSON(w, statusFor(resp.Success), resp)
}

func (a *InvestingAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.Dashboard(r.Context())
	if err != nil {
		a.backendError(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *InvestingAPI) handleInvest(w http.ResponseWriter, r *http.Request) {
	var req investRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := a.svc.Invest(r.Context(), req.ProjectID, req.Amount)
	if errors.Is(err, investing.ErrInvalidAmount) {
		writeError(w, http.StatusBadRequest, "project_id and a positive amount are required")
		return
	}
	if err != nil {
		a.backendError(w, r, "invest", err)
		return
	}
	writeJSON(w, statusFor(resp.Success), resp)
}

func (a *InvestingAPI) handleResetBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := a.svc.ResetBalance(r.Context())
	if err != nil {
		a.backendError(w, r, "reset balance", err)
		return
	}
	writeJSON(w, statusFor(resp.Success), resp)
}

func (a *InvestingAPI) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.CacheStatus())
}

func (a *InvestingAPI) handleClearCache(w http.ResponseWriter, r *http.Request) {
	a.svc.ClearCache()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Cache cleared",
	})
}

func (a *InvestingAPI) backendError(w http.ResponseWriter, r *http.Request, op string, err error) {
	a.logger.Error("Backend request failed", logging.WithFields(map[string]interface{}{
		"op":         op,
		"request_id": middleware.GetReqID(r.Context()),
		"error":      err.Error(),
	}))
	writeError(w, http.StatusBadGateway, "investing backend unavailable")
}
