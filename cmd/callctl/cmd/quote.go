package cmd

import (
	"fmt"
	"time"

	"github.com/lukasbauer/callcontrol/internal/billing"
	"github.com/lukasbauer/callcontrol/internal/pricing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	quoteRules    string
	quoteStart    string
	quoteEnd      string
	quoteTimezone string
	quoteMax      time.Duration
)

// quoteCmd prices one call offline
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a call against a schedule file",
	Long: `Price the interval [start, end] against the rules in a JSON file.

Times are RFC 3339. Rule windows are read in --timezone.`,
	Args: cobra.NoArgs,
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVarP(&quoteRules, "rules", "r", "", "pricing rules JSON file (required)")
	quoteCmd.Flags().StringVar(&quoteStart, "start", "", "call start, RFC 3339 (required)")
	quoteCmd.Flags().StringVar(&quoteEnd, "end", "", "call end, RFC 3339 (required)")
	quoteCmd.Flags().StringVar(&quoteTimezone, "timezone", "UTC", "billing timezone")
	quoteCmd.Flags().DurationVar(&quoteMax, "max-duration", 0, "reject longer calls (0 = no limit)")
	_ = quoteCmd.MarkFlagRequired("rules")
	_ = quoteCmd.MarkFlagRequired("start")
	_ = quoteCmd.MarkFlagRequired("end")
}

func runQuote(cmd *cobra.Command, args []string) error {
	rules, err := loadRulesFile(quoteRules)
	if err != nil {
		return err
	}
	if err := pricing.Validate(rules); err != nil {
		return err
	}

	loc, err := time.LoadLocation(quoteTimezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	start, err := time.Parse(time.RFC3339, quoteStart)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, quoteEnd)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}

	logger.Debug("quoting",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("rules", len(rules)))

	price, err := pricing.Pricer{MaxDuration: quoteMax}.Price(start.In(loc), end.In(loc), rules)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Duration: %s\n", billing.FormatDuration(end.Sub(start)))
	fmt.Fprintf(out, "Price:    %s (%s)\n", price.StringFixed(2), billing.FormatCurrency(price))
	return nil
}
