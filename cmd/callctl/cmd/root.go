// Package cmd provides the callctl commands.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lukasbauer/callcontrol/internal/logging"
	"github.com/lukasbauer/callcontrol/internal/pricing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X ...cmd.version=...".
var version = "dev"

var (
	verbose bool
	logger  = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "callctl",
	Short: "Price calls and inspect pricing schedules",
	Long: `callctl works with the same pricing engine as the call-control server.

Examples:
  callctl quote --rules rules.json --start 2018-02-28T21:57:13Z --end 2018-03-01T22:10:56Z
  callctl rules check --rules rules.json
  callctl bill --phone 99988526423 --period 2017-12`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := logging.Config{Level: "warn", Format: "console", Output: "stderr"}
		if verbose {
			cfg.Level = "debug"
		}
		l, err := logging.New(cfg)
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		logger = l
		return nil
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(billCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "callctl version %s\n", version)
	},
}

// loadRulesFile reads a schedule from a JSON file holding either a bare array
// of rules or an object with a "rules" array, as served by the HTTP API.
func loadRulesFile(path string) (pricing.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var rules pricing.Schedule
		if err := json.Unmarshal(trimmed, &rules); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return rules, nil
	}

	var wrapped struct {
		Rules pricing.Schedule `json:"rules"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return wrapped.Rules, nil
}
