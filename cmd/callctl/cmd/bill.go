package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/lukasbauer/callcontrol/internal/app"
	"github.com/lukasbauer/callcontrol/internal/billing"
	"github.com/spf13/cobra"
)

var (
	billPhone  string
	billPeriod string
	billJSON   bool
)

// billCmd prints a subscriber's monthly bill from the server's database
var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Print a subscriber's bill for a closed month",
	Long: `Build a bill from the database named by DATABASE_URL. The period is
YYYY-MM or MM/YYYY and defaults to the previous month.`,
	Args: cobra.NoArgs,
	RunE: runBill,
}

func init() {
	billCmd.Flags().StringVarP(&billPhone, "phone", "p", "", "subscriber phone number (required)")
	billCmd.Flags().StringVar(&billPeriod, "period", "", "billing period (default: previous month)")
	billCmd.Flags().BoolVar(&billJSON, "json", false, "print the bill as JSON")
	_ = billCmd.MarkFlagRequired("phone")
}

// newApp wires the application from the same environment the server reads.
func newApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, app.LoadConfigFromEnv(), logger)
}

func runBill(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	bill, err := a.Billing().BillFor(ctx, billPhone, billPeriod)
	if err != nil {
		return err
	}
	return printBill(cmd, bill)
}

func printBill(cmd *cobra.Command, bill billing.Bill) error {
	out := cmd.OutOrStdout()
	if billJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(bill)
	}

	fmt.Fprintf(out, "Subscriber: %s\nPeriod:     %s\n\n", bill.Subscriber, bill.Period)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CALL\tDESTINATION\tDATE\tTIME\tDURATION\tPRICE")
	for _, it := range bill.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			it.CallID, it.Destination, it.StartDate, it.StartTime, it.Duration, it.PriceDisplay)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal: %s\n", bill.TotalDisplay)

	if !bill.Complete {
		fmt.Fprintf(out, "\n%d call(s) could not be priced:\n", len(bill.Unpriced))
		for _, u := range bill.Unpriced {
			fmt.Fprintf(out, "  %d %s %s %s: %s\n", u.CallID, u.Destination, u.StartDate, u.StartTime, u.Reason)
		}
	}
	return nil
}
