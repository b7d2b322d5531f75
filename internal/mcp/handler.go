package mcp

import (
	"context"
	"encoding/json"

	"github.com/johnrirwin/youthinvest/internal/api"
	"github.com/johnrirwin/youthinvest/internal/cache"
	"github.com/johnrirwin/youthinvest/internal/investing"
	"github.com/johnrirwin/youthinvest/internal/logging"
)

// InvestingService is what the tools need from investing.Service.
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

type Handler struct {
	svc    InvestingService
	logger *logging.Logger
}

func NewHandler(svc InvestingService, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type InvestParams struct {
	ProjectID int64   `json:"project_id"`
	Amount    float64 `json:"amount"`
}

var noArgs = json.RawMessage(`{"type": "object", "properties": {}}`)

func (h *Handler) GetTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "list_projects",
			Description: "List the local business projects open for investment, with funding goal, progress, risk level and expected ROI.",
			InputSchema: noArgs,
		},
		{
			Name:        "get_portfolio",
			Description: "Get the user's investments with current value and return percentage.",
			InputSchema: noArgs,
		},
		{
			Name:        "get_balance",
			Description: "Get the user's simulated cash balance.",
			InputSchema: noArgs,
		},
		{
			Name:        "get_simulation",
			Description: "Get simulated portfolio growth, risk distribution, economic impact and market trends.",
			InputSchema: noArgs,
		},
		{
			Name:        "get_dashboard",
			Description: "Get balance, projects and portfolio in one call.",
			InputSchema: noArgs,
		},
		{
			Name:        "invest",
			Description: "Invest simulated money in a project. Fails when the balance is too low or the project is unknown.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"project_id": {
						"type": "integer",
						"description": "Project to invest in"
					},
					"amount": {
						"type": "number",
						"description": "Amount in dollars, greater than zero"
					}
				},
				"required": ["project_id", "amount"]
			}`),
		},
		{
			Name:        "reset_balance",
			Description: "Reset the simulated balance to its starting value and drop all cached data.",
			InputSchema: noArgs,
		},
		{
			Name:        "cache_status",
			Description: "Show which data is cached locally, its age and the last sync time.",
			InputSchema: noArgs,
		},
		{
			Name:        "clear_cache",
			Description: "Drop all locally cached data so the next reads go to the backend.",
			InputSchema: noArgs,
		},
	}
}

func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "list_projects":
		return h.svc.Projects(ctx)
	case "get_portfolio":
		return h.svc.Portfolio(ctx)
	case "get_balance":
		return h.svc.Balance(ctx)
	case "get_simulation":
		return h.svc.Simulation(ctx)
	case "get_dashboard":
		return h.svc.Dashboard(ctx)
	case "invest":
		return h.handleInvest(ctx, arguments)
	case "reset_balance":
		return h.handleReset(ctx)
	case "cache_status":
		return h.svc.CacheStatus(), nil
	case "clear_cache":
		h.svc.ClearCache()
		return map[string]interface{}{"status": "success", "message": "Cache cleared"}, nil
	default:
		return nil, &ToolError{Message: "Unknown tool: " + name}
	}
}

func (h *Handler) handleInvest(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params InvestParams
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &params); err != nil {
			return nil, &ToolError{Message: "Invalid arguments: " + err.Error()}
		}
	}

	resp, err := h.svc.Invest(ctx, params.ProjectID, params.Amount)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ToolError{Message: "Investment refused: " + resp.Message}
	}
	h.logger.Debug("Invest tool call succeeded", logging.WithFields(map[string]interface{}{
		"project_id": params.ProjectID,
		"amount":     params.Amount,
	}))
	return resp, nil
}

func (h *Handler) handleReset(ctx context.Context) (interface{}, error) {
	resp, err := h.svc.ResetBalance(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ToolError{Message: "Reset refused: " + resp.Message}
	}
	return resp, nil
}

type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}
