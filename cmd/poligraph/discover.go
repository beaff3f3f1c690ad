package main

import (
	"github.com/spf13/cobra"

	"Poligraph/internal/usecase"
)

var discoverCmd = &cobra.Command{
	Use:   "discover-affairs",
	Short: "Collect candidate affairs and persist the ones not already known",
	Long: `Run the discovery phases (wikidata, wikipedia, judilibre by default) for each
politician. Every candidate goes through the duplicate gate: it is skipped
when an existing affair matches it with CERTAIN or HIGH confidence.

Examples:
  poligraph discover-affairs --dry-run
  poligraph discover-affairs --politician jean-dupont
  poligraph discover-affairs --phases wikidata,judilibre --limit 50`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		limit, _ := cmd.Flags().GetInt("limit")
		slug, _ := cmd.Flags().GetString("politician")
		phases, _ := cmd.Flags().GetStringSlice("phases")

		ctx := cmd.Context()
		application, _, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.Close()

		if dryRun {
			console.Warn("DRY RUN MODE - nothing will be written")
		}

		report, err := application.Discovery().Run(ctx, usecase.DiscoveryOptions{
			PoliticianSlug: slug,
			Limit:          limit,
			DryRun:         dryRun,
			Phases:         phases,
		})
		printDiscoveryReport(report)
		return err
	},
}

func printDiscoveryReport(report usecase.DiscoveryReport) {
	console.Heading("Discovery: %d politician(s)", report.Politicians)
	for _, p := range report.Phases {
		console.Info("  %-10s candidates=%d created=%d duplicates=%d errors=%d",
			p.Phase, p.Candidates, p.Created, p.Duplicates, p.Errors)
	}
	verb := "Created"
	if report.DryRun {
		verb = "Would create"
	}
	console.Success("%s %d affair(s), skipped %d duplicate(s)", verb, report.Created, report.Duplicates)
	if report.Errors > 0 {
		console.Warn("%d error(s), see logs", report.Errors)
	}
}

func init() {
	discoverCmd.Flags().Bool("dry-run", false, "Evaluate candidates without writing")
	discoverCmd.Flags().Int("limit", 0, "Maximum number of politicians (0 = all)")
	discoverCmd.Flags().String("politician", "", "Only this politician slug")
	discoverCmd.Flags().StringSlice("phases", nil, "Comma-separated phases, in order (default from config)")
	rootCmd.AddCommand(discoverCmd)
}
