package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/structr/internal/domain"
)

func TestProductDataValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		product domain.ProductData
		wantErr bool
	}{
		{
			name: "valid minimal product",
			product: domain.ProductData{
				Handle: "anvil-5000",
				Title:  "Acme Anvil Pro 5000",
			},
			wantErr: false,
		},
		{
			name: "valid full product",
			product: domain.ProductData{
				Handle:      "anvil-5000",
				Title:       "Acme Anvil Pro 5000",
				Description: domain.StringPtr("Forged steel anvil."),
				Price:       domain.FloatPtr(199.99),
				Brand:       domain.StringPtr("Acme"),
				Images:      []string{"https://cdn.acme.test/anvil.jpg"},
				Features:    []string{"Hardened work face"},
			},
			wantErr: false,
		},
		{
			name:    "missing handle",
			product: domain.ProductData{Title: "Acme Anvil Pro 5000"},
			wantErr: true,
		},
		{
			name:    "missing title",
			product: domain.ProductData{Handle: "anvil-5000"},
			wantErr: true,
		},
		{
			name: "non-positive price",
			product: domain.ProductData{
				Handle: "anvil-5000",
				Title:  "Acme Anvil Pro 5000",
				Price:  domain.FloatPtr(0),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.product.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidProduct)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAuditResultIssueCount(t *testing.T) {
	t.Parallel()

	result := domain.NewAuditResult("anvil-5000")
	assert.False(t, result.HasIssues())
	assert.Zero(t, result.IssueCount())

	result.MissingFields = append(result.MissingFields, "title")
	result.FlaggedIssues = append(result.FlaggedIssues, "Title too short (< 30 chars)")
	result.SchemaErrors = append(result.SchemaErrors, "Missing JSON-LD schema markup")
	result.MetadataIssues = append(result.MetadataIssues, "Missing or empty title tag")

	assert.True(t, result.HasIssues())

	// Metadata issues are diagnostic only and stay out of the count.
	assert.Equal(t, 3, result.IssueCount())
}
