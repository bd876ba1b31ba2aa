package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/structr/internal/batch"
	"github.com/jonesrussell/structr/internal/monitor"
)

func newValidateCommand() *cobra.Command {
	var (
		all    bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "validate [product-id...]",
		Short: "Check bundles against Google Product schema requirements",
		Long: `Score each bundle's structured data against Google's required,
offers, and recommended Product fields and report rich-result eligibility.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp()
			if err != nil {
				return err
			}

			var result batch.Result

			if all || len(args) == 0 {
				result, err = application.processor.ValidateAll(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				items := make([]batch.ItemResult, 0, len(args))
				for _, id := range args {
					report := application.validator.Validate(id)
					items = append(items, batch.ItemResult{ProductID: id, Report: &report})
				}

				result = batch.Result{Operation: "validate", Items: items}
			}

			if asJSON {
				return printJSON(result)
			}

			renderReports(result)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "validate every persisted bundle")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw batch result as JSON")

	return cmd
}

func newMonitorCommand() *cobra.Command {
	var (
		schedule string
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run scheduled compliance sweeps",
		Long: `Validate every bundle on a schedule, record score history, and warn
when a bundle loses eligibility or drops below the alert floor.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp()
			if err != nil {
				return err
			}

			mon, err := monitor.New(
				application.processor,
				application.cfg.MonitoringDir(),
				application.cfg.Monitor.AlertFloor,
				application.log,
			)
			if err != nil {
				return err
			}

			if once {
				snapshot, sweepErr := mon.Sweep(cmd.Context())
				if sweepErr != nil {
					return sweepErr
				}

				fmt.Printf("Swept %d bundles\n", len(snapshot.Records))

				return nil
			}

			if schedule == "" {
				schedule = application.cfg.Monitor.Schedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return mon.Start(ctx, schedule)
		},
	}

	cmd.Flags().StringVarP(&schedule, "schedule", "s", "", "cron schedule for sweeps")
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")

	return cmd
}
