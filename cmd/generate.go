package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/structr/internal/domain"
)

func newGenerateCommand() *cobra.Command {
	var (
		input     string
		threshold float64
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate PDP bundles from product data",
		Long: `Read product records from a JSON file, generate a PDP bundle for each,
audit the markup, and remediate until the score threshold is reached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp()
			if err != nil {
				return err
			}

			products, err := loadProducts(input)
			if err != nil {
				return err
			}

			if threshold <= 0 {
				threshold = application.cfg.Remediation.Threshold
			}

			result := application.processor.GenerateAll(cmd.Context(), products, threshold)

			if asJSON {
				return printJSON(result)
			}

			renderOutcomes(result)

			if result.Failed > 0 {
				return fmt.Errorf("%d of %d products failed", result.Failed, len(result.Items))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file with product records (required)")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "audit score threshold for remediation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw batch result as JSON")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// loadProducts reads product records from a JSON file. Accepts either a
// single object or an array.
func loadProducts(path string) ([]domain.ProductData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}

	var products []domain.ProductData
	if err := json.Unmarshal(data, &products); err != nil {
		var single domain.ProductData
		if singleErr := json.Unmarshal(data, &single); singleErr != nil {
			return nil, fmt.Errorf("parse products file %s: %w", path, err)
		}

		products = []domain.ProductData{single}
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("products file %s is empty", path)
	}

	return products, nil
}
