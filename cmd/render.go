package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/structr/internal/batch"
)

// printJSON writes a value to stdout as indented JSON.
func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	return t
}

// renderOutcomes prints remediation outcomes from a generate or fix batch.
func renderOutcomes(result batch.Result) {
	t := newTable()
	t.AppendHeader(table.Row{"Product", "Status", "Initial", "Final", "Attempts", "Degraded"})

	for _, item := range result.Items {
		if item.Err != "" {
			t.AppendRow(table.Row{item.ProductID, "error: " + item.Err, "", "", "", ""})
			continue
		}

		if item.Outcome == nil {
			continue
		}

		t.AppendRow(table.Row{
			item.ProductID,
			item.Outcome.Status,
			fmt.Sprintf("%.2f", item.Outcome.InitialScore),
			fmt.Sprintf("%.2f", item.Outcome.FinalScore),
			item.Outcome.FixAttempts,
			item.Outcome.Degraded,
		})
	}

	t.Render()
	renderFooter(result)
}

// renderAudits prints audit scores and issue counts from an audit batch.
func renderAudits(result batch.Result) {
	t := newTable()
	t.AppendHeader(table.Row{"Product", "Score", "Missing", "Flagged", "Schema Errors"})

	for _, item := range result.Items {
		if item.Err != "" {
			t.AppendRow(table.Row{item.ProductID, "error: " + item.Err, "", "", ""})
			continue
		}

		if item.Audit == nil {
			continue
		}

		t.AppendRow(table.Row{
			item.ProductID,
			fmt.Sprintf("%.2f", item.Audit.Score),
			len(item.Audit.MissingFields),
			len(item.Audit.FlaggedIssues),
			len(item.Audit.SchemaErrors),
		})
	}

	t.Render()
	renderFooter(result)
}

// renderReports prints compliance scores and eligibility from a validate
// batch.
func renderReports(result batch.Result) {
	t := newTable()
	t.AppendHeader(table.Row{"Bundle", "Schema", "Compliance", "Eligible", "Issues"})

	for _, item := range result.Items {
		if item.Report == nil {
			t.AppendRow(table.Row{item.ProductID, "error: " + item.Err, "", "", ""})
			continue
		}

		report := item.Report

		if !report.SchemaFound {
			t.AppendRow(table.Row{report.BundleID, "not found", "", "", report.Error})
			continue
		}

		issues := 0
		if report.Summary != nil {
			issues = report.Summary.TotalIssues
		}

		t.AppendRow(table.Row{
			report.BundleID,
			report.SchemaType,
			fmt.Sprintf("%.1f%%", report.ComplianceScore),
			report.GoogleEligible,
			issues,
		})
	}

	t.Render()
	renderFooter(result)
}

func renderFooter(result batch.Result) {
	if result.RunID == "" {
		fmt.Printf("%d succeeded, %d failed\n", result.Succeeded, result.Failed)
		return
	}

	fmt.Printf("run %s: %d succeeded, %d failed in %.2fs\n",
		result.RunID, result.Succeeded, result.Failed, result.Duration)
}
