package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/youthinvest/internal/testutil"
)

type staticToken string

func (s staticToken) IssueAccessToken(int64) (string, error) { return string(s), nil }

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.NullLogger())}, opts...)
	c, err := NewClient(Config{BaseURL: baseURL, Timeout: 5 * time.Second, UserID: 1}, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://example"})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "://nope"})
	assert.Error(t, err)
}

func TestNewClient_DefaultsUserID(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://localhost:5000"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.UserID())
}

func TestClient_ReadEndpoints(t *testing.T) {
	backend := testutil.NewMockBackend(t)
	c := newTestClient(t, backend.URL())
	ctx := context.Background()

	projects, err := c.GetProjects(ctx)
	require.NoError(t, err)
	assert.True(t, projects.Succeeded())
	assert.Len(t, projects.Payload(), 3)
	assert.Equal(t, 3, projects.TotalProjects)
	assert.False(t, projects.FromCache)

	portfolio, err := c.GetPortfolio(ctx)
	require.NoError(t, err)
	require.True(t, portfolio.Succeeded())
	assert.True(t, portfolio.Payload().Empty())
	assert.Equal(t, "demo_user", portfolio.Payload().User.Username)

	balance, err := c.GetUserBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.StartingBalance, balance.Payload())
	require.NotNil(t, balance.User)

	sim, err := c.GetSimulationData(ctx)
	require.NoError(t, err)
	assert.Len(t, sim.Payload().RiskDistribution, 3)
	assert.Equal(t, 18, sim.Payload().EconomicImpact.JobsCreated)
}

func TestClient_MakeInvestment(t *testing.T) {
	backend := testutil.NewMockBackend(t)
	c := newTestClient(t, backend.URL())
	ctx := context.Background()

	resp, err := c.MakeInvestment(ctx, 2, 250)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Investment)
	assert.Equal(t, int64(2), resp.Investment.ProjectID)
	assert.Equal(t, testutil.StartingBalance-250, backend.Balance())

	t.Run("refused investment is a value", func(t *testing.T) {
		backend.SetBalance(10)
		resp, err := c.MakeInvestment(ctx, 2, 250)
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "Insufficient balance", resp.Message)
	})
}

func TestClient_ResetBalance(t *testing.T) {
	backend := testutil.NewMockBackend(t)
	backend.SetBalance(12)
	c := newTestClient(t, backend.URL())

	resp, err := c.ResetBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, testutil.StartingBalance, resp.Balance)
	assert.Equal(t, testutil.StartingBalance, backend.Balance())
}

func TestClient_ServerError(t *testing.T) {
	backend := testutil.NewMockBackend(t)
	backend.FailNext("/projects", 1)
	c := newTestClient(t, backend.URL())

	_, err := c.GetProjects(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "Internal error", statusErr.Message)
	assert.Equal(t, "/projects", statusErr.Path)
}

func TestClient_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.GetSimulationData(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.GetUserBalance(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestClient_Headers(t *testing.T) {
	backend := testutil.NewMockBackend(t)
	c := newTestClient(t, backend.URL(), WithTokenSource(staticToken("abc.def.ghi")))

	_, err := c.GetUserBalance(context.Background())
	require.NoError(t, err)

	headers := backend.LastHeaders()
	assert.Equal(t, "Bearer abc.def.ghi", headers.Get("Authorization"))
	_, err = uuid.Parse(headers.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestClient_UserQuery(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"success":true,"balance":0}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/", UserID: 5, Timeout: time.Second})
	require.NoError(t, err)

	resp, err := c.GetUserBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user_id=5", query)
	assert.True(t, resp.Succeeded())
	assert.Zero(t, resp.Payload())
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{Method: "GET", Path: "/simulation", StatusCode: 502}
	assert.Equal(t, "GET /simulation returned status 502", err.Error())

	err.Message = "upstream down"
	assert.True(t, strings.HasSuffix(err.Error(), ": upstream down"))
}

func TestClient_RateLimit(t *testing.T) {
	backend := testutil.NewMockBackend(t)
	c, err := NewClient(Config{BaseURL: backend.URL(), Timeout: 5 * time.Second, RateLimit: time.Hour}, WithLogger(testutil.NullLogger()))
	require.NoError(t, err)

	_, err = c.GetProjects(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.GetProjects(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, backend.Calls("/projects"))
}
