// Package api is the typed client for the investing backend's JSON endpoints.
//
// Every endpoint answers with a success flag. A response the backend itself
// rejected (success false with a 2xx or 4xx status) is returned as a value so
// callers can inspect Message. Transport failures, 5xx statuses and bodies
// that are not JSON are returned as errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/youthinvest/internal/logging"
	"github.com/johnrirwin/youthinvest/internal/models"
	"github.com/johnrirwin/youthinvest/internal/ratelimit"
)

// ErrUnexpectedStatus is wrapped by every StatusError.
var ErrUnexpectedStatus = errors.New("unexpected backend status")

// StatusError is returned when the backend answers with a server error or a
// body that cannot be decoded.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// TokenSource supplies the bearer token sent with each request.
type TokenSource interface {
	IssueAccessToken(userID int64) (string, error)
}

// Config holds client settings
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserID    int64
	RateLimit time.Duration
}

// Client talks to one backend on behalf of one user. It is safe for
// concurrent use.
type Client struct {
	baseURL *url.URL
	userID  int64
	http    *http.Client
	limiter *ratelimit.Limiter
	tokens  TokenSource
	logger  *logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With(logging.WithField("component", "api"))
	}
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", cfg.BaseURL)
	}

	userID := cfg.UserID
	if userID <= 0 {
		userID = 1
	}

	c := &Client{
		baseURL: base,
		userID:  userID,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.New(cfg.RateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UserID is the user every request is made for.
func (c *Client) UserID() int64 { return c.userID }

// GetProjects fetches every investable project.
func (c *Client) GetProjects(ctx context.Context) (*ProjectsResponse, error) {
	var resp ProjectsResponse
	if err := c.do(ctx, http.MethodGet, "/projects", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPortfolio fetches the user's holdings.
func (c *Client) GetPortfolio(ctx context.Context) (*PortfolioResponse, error) {
	var resp PortfolioResponse
	if err := c.do(ctx, http.MethodGet, "/portfolio", c.userQuery(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetUserBalance fetches the user's cash balance.
func (c *Client) GetUserBalance(ctx context.Context) (*BalanceResponse, error) {
	var resp BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/user/balance", c.userQuery(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSimulationData fetches chart data for the simulation view.
func (c *Client) GetSimulationData(ctx context.Context) (*SimulationResponse, error) {
	var resp SimulationResponse
	if err := c.do(ctx, http.MethodGet, "/simulation", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MakeInvestment moves amount from the user's balance into a project. An
// investment the backend refuses, such as one exceeding the balance, comes
// back with Success false and no error.
func (c *Client) MakeInvestment(ctx context.Context, projectID int64, amount float64) (*InvestmentResponse, error) {
	body := models.InvestmentRequest{ProjectID: projectID, Amount: amount, UserID: c.userID}
	var resp InvestmentResponse
	if err := c.do(ctx, http.MethodPost, "/invest", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetBalance restores the user's starting balance.
func (c *Client) ResetBalance(ctx context.Context) (*ResetBalanceResponse, error) {
	body := map[string]int64{"user_id": c.userID}
	var resp ResetBalanceResponse
	if err := c.do(ctx, http.MethodPost, "/user/reset-balance", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) userQuery() url.Values {
	return url.Values{"user_id": []string{strconv.FormatInt(c.userID, 10)}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.IssueAccessToken(c.userID)
		if err != nil {
			return fmt.Errorf("failed to issue access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if err := c.limiter.Wait(ctx, c.baseURL.Host); err != nil {
		return fmt.Errorf("rate limit wait for %s %s: %w", method, path, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Backend request", logging.WithFields(map[string]interface{}{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"request_id": requestID,
		"duration":   time.Since(start).String(),
	}))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		var env Envelope
		_ = json.Unmarshal(data, &env)
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: env.Message}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    "undecodable response body",
		}
	}
	return nil
}
