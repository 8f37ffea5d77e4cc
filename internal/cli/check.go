package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legislens/internal/aggregator"
	"github.com/ppiankov/legislens/internal/llm"
)

var checkJSON bool

type availabilityReport struct {
	aggregator.Availability
	RecommendedLevel string `json:"recommendedLevel"`
	Congress         bool   `json:"congress"`
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which providers are available",
	Long: `Check probes the local model runtime for each capability and reports
which cloud providers have credentials, then names the richest analysis
level that can be served.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		rt, err := buildRuntime(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		av := rt.agg.CheckAvailability(ctx)
		if checkJSON {
			return newJSONEncoder(cmd.OutOrStdout()).Encode(availabilityReport{
				Availability:     av,
				RecommendedLevel: string(av.RecommendedLevel()),
				Congress:         rt.congress.Configured(),
			})
		}

		out := cmd.OutOrStdout()
		printAvailability(out, av)
		if rt.congress.Configured() {
			printSuccess(out, "Congress.gov API key configured")
		} else {
			printWarning(out, "Congress.gov API key missing: --bill and batch are disabled")
		}
		if cfg.Cloud.Provider != "" && !llm.ConfigFromModel(cfg.Cloud, cfg.HTTP).IsConfigured() {
			printWarning(out, "cloud provider %q has no API key", cfg.Cloud.Provider)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the availability report as JSON")
}
