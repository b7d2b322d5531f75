// Package investing combines the backend client with the TTL cache: reads go
// through the cache, mutations go straight to the backend and then evict what
// they made stale.
package investing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/johnrirwin/youthinvest/internal/api"
	"github.com/johnrirwin/youthinvest/internal/cache"
	"github.com/johnrirwin/youthinvest/internal/logging"
	"github.com/johnrirwin/youthinvest/internal/models"
)

// ErrInvalidAmount is returned by Invest for requests the backend would refuse.
var ErrInvalidAmount = errors.New("investment needs a project and a positive amount")

// Backend is the subset of api.Client the service calls.
type Backend interface {
	GetProjects(ctx context.Context) (*api.ProjectsResponse, error)
	GetPortfolio(ctx context.Context) (*api.PortfolioResponse, error)
	GetUserBalance(ctx context.Context) (*api.BalanceResponse, error)
	GetSimulationData(ctx context.Context) (*api.SimulationResponse, error)
	MakeInvestment(ctx context.Context, projectID int64, amount float64) (*api.InvestmentResponse, error)
	ResetBalance(ctx context.Context) (*api.ResetBalanceResponse, error)
}

type Service struct {
	backend Backend
	cache   *cache.Cache
	logger  *logging.Logger
}

func NewService(backend Backend, c *cache.Cache, logger *logging.Logger) *Service {
	return &Service{
		backend: backend,
		cache:   c,
		logger:  logger.With(logging.WithField("component", "investing")),
	}
}

// Projects returns the project catalogue, cached for the projects TTL.
func (s *Service) Projects(ctx context.Context) (*api.ProjectsResponse, error) {
	return cache.ReadThrough[[]models.Project](ctx, s.cache, cache.Projects, s.backend.GetProjects, api.CachedProjects)
}

// Portfolio returns the user's holdings, cached for the portfolio TTL.
func (s *Service) Portfolio(ctx context.Context) (*api.PortfolioResponse, error) {
	return cache.ReadThrough[*models.Portfolio](ctx, s.cache, cache.Portfolio, s.backend.GetPortfolio, api.CachedPortfolio)
}

// Balance returns the user's cash balance, cached for the user balance TTL.
// A cache hit carries the balance only.
func (s *Service) Balance(ctx context.Context) (*api.BalanceResponse, error) {
	return cache.ReadThrough[float64](ctx, s.cache, cache.UserBalance, s.backend.GetUserBalance, api.CachedBalance)
}

// Simulation returns chart data, cached for the simulation TTL.
func (s *Service) Simulation(ctx context.Context) (*api.SimulationResponse, error) {
	return cache.ReadThrough[*models.SimulationData](ctx, s.cache, cache.SimulationData, s.backend.GetSimulationData, api.CachedSimulation)
}

// Invest sends an investment to the backend. Projects, portfolio and balance
// are evicted only when the backend reports success.
func (s *Service) Invest(ctx context.Context, projectID int64, amount float64) (*api.InvestmentResponse, error) {
	if projectID <= 0 || amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}

	resp, err := s.backend.MakeInvestment(ctx, projectID, amount)
	if err != nil {
		return nil, fmt.Errorf("invest in project %d: %w", projectID, err)
	}

	if !resp.Success {
		s.logger.Info("Investment refused", logging.WithFields(map[string]interface{}{
			"project_id": projectID,
			"amount":     amount,
			"message":    resp.Message,
		}))
		return resp, nil
	}

	s.cache.InvalidateOnMutation()
	s.logger.Info("Investment made", logging.WithFields(map[string]interface{}{
		"project_id": projectID,
		"amount":     amount,
	}))
	return resp, nil
}

// ResetBalance restores the starting balance and, on success, clears the
// whole cache.
func (s *Service) ResetBalance(ctx context.Context) (*api.ResetBalanceResponse, error) {
	resp, err := s.backend.ResetBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("reset balance: %w", err)
	}
	if resp.Success {
		s.cache.Clear()
	}
	return resp, nil
}

// Dashboard is the home view: balance, projects and portfolio together.
type Dashboard struct {
	Balance   *api.BalanceResponse   `json:"balance"`
	Projects  *api.ProjectsResponse  `json:"projects"`
	Portfolio *api.PortfolioResponse `json:"portfolio"`
}

// Dashboard loads its three parts concurrently, each through the cache. The
// first failure cancels the others and is returned.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resp, err := s.Balance(gctx)
		if err != nil {
			return fmt.Errorf("load balance: %w", err)
		}
		d.Balance = resp
		return nil
	})
	g.Go(func() error {
		resp, err := s.Projects(gctx)
		if err != nil {
			return fmt.Errorf("load projects: %w", err)
		}
		d.Projects = resp
		return nil
	})
	g.Go(func() error {
		resp, err := s.Portfolio(gctx)
		if err != nil {
			return fmt.Errorf("load portfolio: %w", err)
		}
		d.Portfolio = resp
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// CacheStatus reports what the cache holds.
func (s *Service) CacheStatus() cache.StatusReport {
	return s.cache.Status()
}

// ClearCache drops every cached domain.
func (s *Service) ClearCache() {
	s.cache.Clear()
}
