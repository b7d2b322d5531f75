// Package cli implements the youthinvest command line client. It shares the
// cache and backend client with the HTTP server, usually over a file or SQLite
// store so cached data survives between invocations.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/johnrirwin/youthinvest/internal/app"
	"github.com/johnrirwin/youthinvest/internal/config"
)

type options struct {
	apiURL     string
	userID     int64
	store      string
	cacheDir   string
	sqlitePath string
	logLevel   string
	jsonOutput bool
}

// runtime is built once per invocation in PersistentPreRunE and closed by
// execute, whether or not the command succeeded.
type runtime struct {
	app    *app.App
	closed bool
}

func (rt *runtime) close() error {
	if rt.app == nil || rt.closed {
		return nil
	}
	rt.closed = true
	return rt.app.Shutdown(context.Background())
}

// newRootCmd creates the root command with every subcommand attached, and
// the runtime its commands share.
func newRootCmd() (*cobra.Command, *runtime) {
	opts := &options{}
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:           "youthinvest",
		Short:         "Youth micro-investing simulator client",
		Long:          "youthinvest reads projects, portfolio, balance and simulation data through a local TTL cache and sends investments to the backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(cmd, opts)
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			rt.app = a
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", "", "Investing backend base URL (default from API_URL)")
	flags.Int64Var(&opts.userID, "user-id", 0, "Simulator user id (default from USER_ID)")
	flags.StringVar(&opts.store, "store", "file", "Cache store: memory, file, sqlite, redis or postgres")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "Directory for the file store")
	flags.StringVar(&opts.sqlitePath, "sqlite-path", "", "Path of the SQLite store")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print raw JSON responses")

	cmd.AddCommand(
		newProjectsCmd(rt, opts),
		newPortfolioCmd(rt, opts),
		newBalanceCmd(rt, opts),
		newSimulationCmd(rt, opts),
		newInvestCmd(rt, opts),
		newResetCmd(rt, opts),
		newCacheCmd(rt, opts),
		newMCPCmd(rt),
	)

	return cmd, rt
}

// execute runs cmd and then shuts the app down. Cobra skips post-run hooks
// when RunE fails, so closing cannot live in PersistentPostRunE.
func execute(cmd *cobra.Command, rt *runtime) error {
	err := cmd.Execute()
	if cerr := rt.close(); err == nil {
		err = cerr
	}
	return err
}

// buildConfig layers explicitly set flags over the environment. The store
// flag only wins over CACHE_BACKEND when it was given.
func buildConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("store") || os.Getenv("CACHE_BACKEND") == "" {
		cfg.Cache.Backend = opts.store
	}
	if flags.Changed("api-url") {
		cfg.API.BaseURL = opts.apiURL
	}
	if flags.Changed("user-id") {
		cfg.API.UserID = opts.userID
	}
	if flags.Changed("cache-dir") {
		cfg.Cache.FileDir = opts.cacheDir
	}
	if flags.Changed("sqlite-path") {
		cfg.Cache.SQLitePath = opts.sqlitePath
	}
	if flags.Changed("log-level") || os.Getenv("LOG_LEVEL") == "" {
		cfg.Logging.Level = opts.logLevel
	}
	cfg.Logging.Format = "console"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	cmd, rt := newRootCmd()
	if err := execute(cmd, rt); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}
