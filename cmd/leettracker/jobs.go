package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/usecase"
)

func collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Run one collection pass for every tracked user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			outcome, err := application.Collector().Collect(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d users, %d new records, %d skipped items\n",
				domain.FormatDay(outcome.Day), outcome.Identities, outcome.NewRecords, outcome.SkippedItems)
			for identifier, err := range outcome.IdentityErrors {
				fmt.Fprintf(out, "  %s: %v\n", identifier, err)
			}
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	var (
		dayFlag string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Send the report for a day to the registered group",
		Long: `Build the report for a day from whatever the ledger holds and post it.

Examples:
  leettracker report
  leettracker report --day today
  leettracker report --day 2025-11-08 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			reporter := application.Reporter()
			day, err := resolveDay(reporter, dayFlag)
			if err != nil {
				return err
			}

			var report usecase.Report
			if dryRun {
				report, err = reporter.Build(cmd.Context(), day)
			} else {
				report, err = reporter.Send(cmd.Context(), day)
			}
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), report.Text)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report for %s delivered (%d users)\n", domain.FormatDay(report.Day), len(report.Groups))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dayFlag, "day", "d", "yesterday", "yesterday, today or YYYY-MM-DD")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the report instead of sending it")

	return cmd
}

func resolveDay(reporter *usecase.Reporter, value string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "yesterday":
		return reporter.Yesterday(), nil
	case "today":
		return reporter.Today(), nil
	}
	day, err := domain.ParseDay(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --day %q: %w", value, domain.ErrInvalidArgument)
	}
	return day, nil
}

func sweepCmd() *cobra.Command {
	var horizon int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete observations older than the retention horizon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cfg, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			if !cmd.Flags().Changed("horizon") {
				horizon = cfg.Retention.HorizonDays
			}
			deleted, err := application.Sweeper().Sweep(cmd.Context(), horizon)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d observations\n", deleted)
			return nil
		},
	}

	cmd.Flags().IntVar(&horizon, "horizon", 0, "retention horizon in days (default from config)")

	return cmd
}
