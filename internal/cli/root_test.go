package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/youthinvest/internal/testutil"
)

type cliEnv struct {
	backend  *testutil.MockBackend
	cacheDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	for _, key := range []string{"CACHE_BACKEND", "LOG_LEVEL", "API_URL", "USER_ID", "CONFIG_FILE", "AUTH_REQUIRED", "CACHE_ENCRYPTION_KEY"} {
		t.Setenv(key, "")
	}
	return &cliEnv{backend: testutil.NewMockBackend(t), cacheDir: t.TempDir()}
}

// run executes one invocation, as a fresh process would.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *cliEnv) runWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	out, _, err := e.execute(t, input, e.backend.URL(), args...)
	return out, err
}

// execute runs one invocation against apiURL and returns the runtime so
// tests can inspect what it left behind.
func (e *cliEnv) execute(t *testing.T, input, apiURL string, args ...string) (string, *runtime, error) {
	t.Helper()

	cmd, rt := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--api-url", apiURL, "--cache-dir", e.cacheDir, "--log-level", "error"}, args...))
	err := execute(cmd, rt)
	return out.String(), rt, err
}

func TestCLI_ProjectsPersistBetweenRuns(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "Green Coffee Shop")
	assert.Contains(t, out, "$25,000.00")
	assert.Contains(t, out, "(from backend)")

	out, err = env.run(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "(from cache)")
	assert.Equal(t, 1, env.backend.Calls("/projects"))
}

func TestCLI_BalanceAndInvest(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance: $10,000.00 (from backend)")

	out, err = env.run(t, "invest", "1", "250")
	require.NoError(t, err)
	assert.Contains(t, out, "Invested $250.00 in project 1")

	out, err = env.run(t, "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance: $9,750.00 (from backend)")

	out, err = env.run(t, "portfolio")
	require.NoError(t, err)
	assert.Contains(t, out, "Green Coffee Shop")
}

func TestCLI_InvestErrors(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "invest", "abc", "10")
	assert.Error(t, err)

	_, err = env.run(t, "invest", "1", "0")
	assert.Error(t, err)

	env.backend.SetBalance(1)
	_, err = env.run(t, "invest", "1", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient balance")
}

func TestCLI_CacheStatusAndClear(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Last sync: never")

	_, err = env.run(t, "simulation")
	require.NoError(t, err)

	out, err = env.run(t, "cache", "status", "--json")
	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	entries := report["entries"].(map[string]interface{})
	assert.Equal(t, true, entries["simulationData"].(map[string]interface{})["exists"])
	assert.Equal(t, true, report["lastSync"].(map[string]interface{})["exists"])

	out, err = env.run(t, "cache", "clear")
	require.NoError(t, err)
	assert.Equal(t, "Cache cleared\n", out)

	out, err = env.run(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Last sync: never")
	for _, line := range strings.Split(out, "\n")[1:5] {
		assert.Contains(t, line, "false")
	}
}

func TestCLI_Reset(t *testing.T) {
	env := newCLIEnv(t)
	env.backend.SetBalance(3)

	_, err := env.run(t, "balance")
	require.NoError(t, err)

	out, err := env.run(t, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance reset to $10,000.00")

	out, err = env.run(t, "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "(from backend)")
}

func TestCLI_BackendDown(t *testing.T) {
	env := newCLIEnv(t)
	env.backend.FailNext("/simulation", 1)

	_, err := env.run(t, "simulation")
	assert.Error(t, err)
}

func TestCLI_MCP(t *testing.T) {
	env := newCLIEnv(t)

	input := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_balance"}}` + "\n"
	out, err := env.runWithInput(t, input, "mcp")
	require.NoError(t, err)
	assert.Contains(t, out, `"id":1`)
	assert.Contains(t, out, `\"balance\": 10000`)

	out, err = env.run(t, "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "(from cache)")
}

func TestCLI_SimulationWithoutPayload(t *testing.T) {
	env := newCLIEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	out, _, err := env.execute(t, "", srv.URL, "simulation")
	require.NoError(t, err)
	assert.Contains(t, out, "No simulation data")
}

func TestCLI_ClosesAppWhenCommandFails(t *testing.T) {
	env := newCLIEnv(t)
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	_, rt, err := env.execute(t, "", env.backend.URL(), "--store", "sqlite", "--sqlite-path", dbPath, "invest", "abc", "10")
	require.Error(t, err)
	require.NotNil(t, rt.app)
	assert.True(t, rt.closed)

	_, _, err = rt.app.Store.Get("youthInvest_projects")
	assert.Error(t, err, "sqlite store should be closed after a failed command")
}
