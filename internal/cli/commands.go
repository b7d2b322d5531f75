package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnrirwin/youthinvest/internal/cache"
	"github.com/johnrirwin/youthinvest/internal/investing"
)

func source(fromCache bool) string {
	if fromCache {
		return "cache"
	}
	return "backend"
}

func newProjectsCmd(rt *runtime, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List investable projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := rt.app.Service.Projects(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd, resp)
			}
			if !resp.Success {
				return errors.New(resp.Message)
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tRISK\tROI\tFUNDED\tGOAL")
			for _, p := range resp.Projects {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Name, p.Category, p.RiskLevel,
					investing.FormatPercent(p.ExpectedROI),
					investing.FormatCurrency(p.CurrentFunding),
					investing.FormatCurrency(p.FundingGoal))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d projects (from %s)\n", len(resp.Projects), source(resp.FromCache))
			return nil
		},
	}
}

func newPortfolioCmd(rt *runtime, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show your investments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := rt.app.Service.Portfolio(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd, resp)
			}
			if !resp.Success {
				return errors.New(resp.Message)
			}

			out := cmd.OutOrStdout()
			p := resp.Portfolio
			if p.Empty() {
				fmt.Fprintf(out, "No investments yet (from %s)\n", source(resp.FromCache))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROJECT\tINVESTED\tVALUE\tRETURN")
			for _, inv := range p.Investments {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", inv.ProjectName,
					investing.FormatCurrency(inv.Amount),
					investing.FormatCurrency(inv.CurrentValue),
					investing.FormatPercent(inv.ReturnPercentage))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Total invested %s, worth %s (%s) (from %s)\n",
				investing.FormatCurrency(p.TotalInvested),
				investing.FormatCurrency(p.CurrentValue),
				investing.FormatPercent(p.TotalReturnPercentage),
				source(resp.FromCache))
			return nil
		},
	}
}

func newBalanceCmd(rt *runtime, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show your cash balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := rt.app.Service.Balance(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd, resp)
			}
			if !resp.Success {
				return errors.New(resp.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s (from %s)\n",
				investing.FormatCurrency(resp.Balance), source(resp.FromCache))
			return nil
		},
	}
}

func newSimulationCmd(rt *runtime, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "simulation",
		Short: "Show simulated growth and community impact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := rt.app.Service.Simulation(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd, resp)
			}
			if !resp.Success {
				return errors.New(resp.Message)
			}

			out := cmd.OutOrStdout()
			sim := resp.SimulationData
			if sim == nil {
				fmt.Fprintf(out, "No simulation data (from %s)\n", source(resp.FromCache))
				return nil
			}
			for _, g := range sim.PortfolioGrowth {
				fmt.Fprintf(out, "%s  %s\n", g.Month, investing.FormatCurrency(g.Value))
			}
			impact := sim.EconomicImpact
			fmt.Fprintf(out, "Jobs created: %d, businesses supported: %d, local revenue: %s (from %s)\n",
				impact.JobsCreated, impact.BusinessesSupported,
				investing.FormatCurrency(impact.LocalRevenueGenerated),
				source(resp.FromCache))
			return nil
		},
	}
}

func newInvestCmd(rt *runtime, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "invest <project-id> <amount>",
		Short: "Invest in a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}

			resp, err := rt.app.Service.Invest(cmd.Context(), projectID, amount)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd, resp)
			}
			if !resp.Success {
				return fmt.Errorf("investment refused: %s", resp.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invested %s in project %d\n", investing.FormatCurrency(amount), projectID)
			return nil
		},
	}
}

func newResetCmd(rt *runtime, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset your balance and clear the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := rt.app.Service.ResetBalance(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd, resp)
			}
			if !resp.Success {
				return fmt.Errorf("reset refused: %s", resp.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Balance reset to %s\n", investing.FormatCurrency(resp.Balance))
			return nil
		},
	}
}

func newCacheCmd(rt *runtime, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local cache",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show what is cached and how old it is",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := rt.app.Service.CacheStatus()
			if opts.jsonOutput {
				return printJSON(cmd, report)
			}
			return writeStatus(cmd.OutOrStdout(), rt.app.Cache, report)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt.app.Service.ClearCache()
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}

	cmd.AddCommand(statusCmd, clearCmd)
	return cmd
}

func writeStatus(out io.Writer, c *cache.Cache, report cache.StatusReport) error {
	domains := cache.Domains()
	sort.Slice(domains, func(i, j int) bool { return domains[i] < domains[j] })

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tCACHED\tAGE\tTTL")
	for _, d := range domains {
		s := report.Entries[d]
		age := "-"
		if s.Exists {
			age = s.Age.Truncate(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", d, s.Exists, age, c.TTL(d))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if report.LastSync.Exists {
		fmt.Fprintf(out, "Last sync: %s\n", report.LastSync.StoredAt.Format(time.RFC3339))
	} else {
		fmt.Fprintln(out, "Last sync: never")
	}
	return nil
}

func newMCPCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the investing tools over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.app.MCPServer.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
