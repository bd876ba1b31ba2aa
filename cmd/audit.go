package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/structr/internal/batch"
)

func newAuditCommand() *cobra.Command {
	var (
		all    bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "audit [product-id...]",
		Short: "Audit persisted PDP bundles",
		Long: `Re-audit the stored markup of one or more bundles against SEO metadata
and Product schema rules, refreshing each bundle's audit record.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp()
			if err != nil {
				return err
			}

			ids := args
			if all {
				ids, err = application.store.List()
				if err != nil {
					return err
				}
			}

			if len(ids) == 0 {
				return fmt.Errorf("no bundles to audit: pass product ids or --all")
			}

			result := application.processor.AuditAll(cmd.Context(), ids)

			if asJSON {
				return printJSON(result)
			}

			renderAudits(result)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "audit every persisted bundle")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw batch result as JSON")

	return cmd
}

func newFixCommand() *cobra.Command {
	var (
		minScore float64
		dryRun   bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "fix [product-id...]",
		Short: "Remediate low-scoring bundles",
		Long: `Run the fix loop for bundles below the score threshold. With no
arguments every persisted bundle is checked and low scorers are repaired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp()
			if err != nil {
				return err
			}

			if minScore <= 0 {
				minScore = application.cfg.Remediation.Threshold
			}

			if dryRun {
				return listLowScores(application, minScore, asJSON)
			}

			var result batch.Result

			if len(args) == 0 {
				result, err = application.processor.FixAll(cmd.Context(), minScore)
				if err != nil {
					return err
				}
			} else {
				result = fixListed(cmd, application, args, minScore)
			}

			if asJSON {
				return printJSON(result)
			}

			renderOutcomes(result)

			return nil
		},
	}

	cmd.Flags().Float64VarP(&minScore, "min-score", "m", 0, "score threshold below which bundles are fixed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list bundles that would be fixed without fixing them")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw batch result as JSON")

	return cmd
}

// listLowScores reports the bundles a fix run would touch, without touching
// them.
func listLowScores(application *app, minScore float64, asJSON bool) error {
	ids, err := application.store.List()
	if err != nil {
		return err
	}

	var items []batch.ItemResult

	for _, id := range ids {
		auditResult, readErr := application.store.ReadAudit(id)
		if readErr != nil {
			items = append(items, batch.ItemResult{ProductID: id, Err: readErr.Error()})
			continue
		}

		if auditResult.Score < minScore {
			items = append(items, batch.ItemResult{ProductID: id, Audit: &auditResult})
		}
	}

	result := batch.Result{Operation: "fix (dry run)", Items: items}
	for _, item := range items {
		if item.Err != "" {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}

	if asJSON {
		return printJSON(result)
	}

	renderAudits(result)

	return nil
}

// fixListed remediates the named bundles regardless of their current score.
func fixListed(cmd *cobra.Command, application *app, ids []string, minScore float64) batch.Result {
	items := make([]batch.ItemResult, 0, len(ids))

	succeeded, failed := 0, 0

	for _, id := range ids {
		item := batch.ItemResult{ProductID: id}

		outcome, err := application.orchestrator.Fix(cmd.Context(), id, minScore)
		if err != nil {
			item.Err = err.Error()
			failed++
		} else {
			item.Outcome = &outcome
			succeeded++
		}

		items = append(items, item)
	}

	return batch.Result{
		Operation: "fix",
		Succeeded: succeeded,
		Failed:    failed,
		Items:     items,
	}
}
