package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/lukasbauer/callcontrol/internal/pricing"
	"github.com/spf13/cobra"
)

var rulesFile string

// errScheduleGaps makes `rules check` fail when part of the day is uncovered.
var errScheduleGaps = errors.New("schedule does not cover the whole day")

// rulesCmd groups the schedule commands
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and install pricing schedules",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a schedule file and report gaps and overlaps",
	Long: `Validate a schedule file. Overlapping windows are reported as warnings
since their per-minute rates add up. Uncovered stretches of the day make the
command fail: calls starting there cannot be priced.`,
	Args: cobra.NoArgs,
	RunE: runRulesCheck,
}

var rulesApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Replace the server's schedule with a schedule file",
	Long: `Validate a schedule file and install it in the database named by
DATABASE_URL. Calls already priced keep their price.`,
	Args: cobra.NoArgs,
	RunE: runRulesApply,
}

func init() {
	rulesCmd.PersistentFlags().StringVarP(&rulesFile, "rules", "r", "", "pricing rules JSON file (required)")
	_ = rulesCmd.MarkPersistentFlagRequired("rules")

	rulesCmd.AddCommand(rulesCheckCmd)
	rulesCmd.AddCommand(rulesApplyCmd)
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	rules, err := loadRulesFile(rulesFile)
	if err != nil {
		return err
	}
	if err := pricing.Validate(rules); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, r := range rules {
		fmt.Fprintf(out, "%d. %-12s %s (%s)  standing %s  per minute %s\n",
			i+1, r.Name, r.Window(), r.Window().Length(), r.StandingCharge.StringFixed(2), r.RatePerMinute.StringFixed(2))
	}

	for _, o := range pricing.Overlaps(rules) {
		fmt.Fprintf(out, "warning: %s and %s overlap for %s\n", o.First, o.Second, o.Shared)
	}

	gaps := pricing.CoverageGaps(rules)
	for _, g := range gaps {
		fmt.Fprintf(out, "error: no rule covers %s\n", g)
	}
	if len(gaps) > 0 {
		return errScheduleGaps
	}

	fmt.Fprintln(out, "ok")
	return nil
}

func runRulesApply(cmd *cobra.Command, args []string) error {
	rules, err := loadRulesFile(rulesFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Billing().ReplaceRules(ctx, rules); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "installed %d rules\n", len(rules))
	return nil
}
