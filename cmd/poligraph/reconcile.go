package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"Poligraph/internal/domain"
	"Poligraph/internal/usecase"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile-affairs",
	Short: "List, merge or dismiss potential duplicate affairs",
	Long: `Compare unverified affairs of each politician and list the pairs that look
like the same case. Without an action flag the pairs are printed, best first.

Examples:
  poligraph reconcile-affairs --limit 20
  poligraph reconcile-affairs --stats
  poligraph reconcile-affairs --merge KEEP_ID:REMOVE_ID
  poligraph reconcile-affairs --dismiss ID_A:ID_B
  poligraph reconcile-affairs --auto-merge --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		limit, _ := cmd.Flags().GetInt("limit")
		autoMerge, _ := cmd.Flags().GetBool("auto-merge")
		merge, _ := cmd.Flags().GetString("merge")
		dismiss, _ := cmd.Flags().GetString("dismiss")
		stats, _ := cmd.Flags().GetBool("stats")

		ctx := cmd.Context()
		application, _, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.Close()
		reconciler := application.Reconciler()

		switch {
		case merge != "":
			return runMerge(ctx, reconciler, merge, dryRun)
		case dismiss != "":
			return runDismiss(ctx, reconciler, dismiss, dryRun)
		case autoMerge:
			return runAutoMerge(ctx, reconciler, dryRun)
		case stats:
			return runStats(ctx, reconciler)
		default:
			return runList(ctx, reconciler, limit)
		}
	},
}

func splitPair(raw string) (string, string, error) {
	left, right, ok := strings.Cut(raw, ":")
	left, right = strings.TrimSpace(left), strings.TrimSpace(right)
	if !ok || left == "" || right == "" {
		return "", "", fmt.Errorf("expected ID:ID, got %q", raw)
	}
	return left, right, nil
}

func runMerge(ctx context.Context, r *usecase.Reconciler, raw string, dryRun bool) error {
	keep, remove, err := splitPair(raw)
	if err != nil {
		return err
	}
	if dryRun {
		console.Warn("DRY RUN MODE - would merge %s into %s", remove, keep)
		return nil
	}

	report, err := r.MergeAffairs(ctx, keep, remove)
	if err != nil {
		return err
	}
	console.Success("merged %s into %s", report.RemoveID, report.KeepID)
	console.Info("  sources moved=%d dropped=%d, events moved=%d, press links moved=%d dropped=%d",
		report.SourcesMoved, report.SourcesDropped, report.EventsMoved, report.PressLinksMoved, report.PressLinksDropped)
	if report.BackfilledECLI || report.BackfilledPourvoi {
		console.Info("  backfilled ecli=%t pourvoi=%t", report.BackfilledECLI, report.BackfilledPourvoi)
	}
	return nil
}

func runDismiss(ctx context.Context, r *usecase.Reconciler, raw string, dryRun bool) error {
	a, b, err := splitPair(raw)
	if err != nil {
		return err
	}
	if dryRun {
		console.Warn("DRY RUN MODE - would dismiss %s / %s", a, b)
		return nil
	}
	if err := r.DismissDuplicate(ctx, a, b); err != nil {
		return err
	}
	console.Success("pair %s / %s dismissed", a, b)
	return nil
}

func runAutoMerge(ctx context.Context, r *usecase.Reconciler, dryRun bool) error {
	report, err := r.AutoMerge(ctx, dryRun)
	if err != nil {
		return err
	}
	if dryRun {
		console.Warn("DRY RUN MODE - %d pair(s) eligible for automatic merge", len(report.Eligible))
		for _, d := range report.Eligible {
			printDuplicate(d)
		}
		return nil
	}
	console.Success("auto-merged %d pair(s), skipped %d, failed %d", report.Merged, report.Skipped, report.Failed)
	return nil
}

func runStats(ctx context.Context, r *usecase.Reconciler) error {
	stats, err := r.Stats(ctx)
	if err != nil {
		return err
	}
	console.Heading("Reconciliation")
	console.Info("  unverified affairs: %d", stats.Unverified)
	console.Info("  potential duplicates: %d (CERTAIN %d, HIGH %d, POSSIBLE %d)",
		stats.Duplicates,
		stats.ByConfidence[domain.ConfidenceCertain],
		stats.ByConfidence[domain.ConfidenceHigh],
		stats.ByConfidence[domain.ConfidencePossible])
	console.Info("  dismissed pairs: %d", stats.Dismissed)
	return nil
}

func runList(ctx context.Context, r *usecase.Reconciler, limit int) error {
	duplicates, err := r.FindPotentialDuplicates(ctx)
	if err != nil {
		return err
	}
	console.Heading("Potential duplicates: %d", len(duplicates))
	for i, d := range duplicates {
		if limit > 0 && i >= limit {
			console.Info("  ... %d more", len(duplicates)-limit)
			break
		}
		printDuplicate(d)
	}
	return nil
}

func printDuplicate(d usecase.PotentialDuplicate) {
	console.Info("  [%s %.2f by %s]", d.Confidence, d.Score, d.MatchedBy)
	console.Info("    A %s  %s", d.AffairA.ID, d.AffairA.Title)
	console.Info("    B %s  %s", d.AffairB.ID, d.AffairB.Title)
}

func init() {
	reconcileCmd.Flags().Bool("dry-run", false, "Show what would change without writing")
	reconcileCmd.Flags().Int("limit", 0, "Maximum number of pairs to print (0 = all)")
	reconcileCmd.Flags().Bool("auto-merge", false, "Merge every pair linked by ECLI or pourvoi number")
	reconcileCmd.Flags().String("merge", "", "Merge REMOVE into KEEP, given as KEEP:REMOVE")
	reconcileCmd.Flags().String("dismiss", "", "Mark a pair as not duplicate, given as A:B")
	reconcileCmd.Flags().Bool("stats", false, "Print reconciliation statistics")
	rootCmd.AddCommand(reconcileCmd)
}
