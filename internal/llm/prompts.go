package llm

import (
	"fmt"
	"strings"

	"github.com/jonesrussell/structr/internal/domain"
)

// orDefault renders an optional string field for prompt embedding.
func orDefault(value *string) string {
	if value == nil || *value == "" {
		return "Not provided"
	}

	return *value
}

// priceOrDefault renders an optional price for prompt embedding.
func priceOrDefault(price *float64) string {
	if price == nil {
		return "Not provided"
	}

	return fmt.Sprintf("%.2f", *price)
}

// featuresOrDefault renders the feature list for prompt embedding.
func featuresOrDefault(features []string) string {
	if len(features) == 0 {
		return "None specified"
	}

	return strings.Join(features, ", ")
}

// buildGenerationPrompt produces the deterministic prompt for a full PDP.
func buildGenerationPrompt(product domain.ProductData) string {
	return fmt.Sprintf(`Generate a complete, SEO-optimized HTML product detail page for this product.
Focus on structure and metadata compliance.

Product Details:
- Handle: %s
- Title: %s
- Description: %s
- Price: $%s
- Brand: %s
- Category: %s
- Features: %s

Requirements:
1. Include proper HTML5 structure with head and body
2. Add complete SEO metadata (title, meta description, og tags)
3. Include JSON-LD Product schema markup
4. Create clean, semantic HTML for the product content
5. Ensure title is 30-60 characters
6. Ensure meta description is 120-160 characters
7. Include all required Product schema fields (@type, name, description, image, offers, brand)

Generate ONLY the HTML content, no explanations:`,
		product.Handle,
		product.Title,
		orDefault(product.Description),
		priceOrDefault(product.Price),
		orDefault(product.Brand),
		orDefault(product.Category),
		featuresOrDefault(product.Features),
	)
}

// buildFixPrompt produces a prompt that enumerates only the broken parts of
// the current markup.
func buildFixPrompt(product domain.ProductData, auditResult domain.AuditResult, currentHTML string) string {
	var issues []string

	if len(auditResult.MissingFields) > 0 {
		issues = append(issues, "Missing fields: "+strings.Join(auditResult.MissingFields, ", "))
	}

	if len(auditResult.FlaggedIssues) > 0 {
		issues = append(issues, "Flagged issues: "+strings.Join(auditResult.FlaggedIssues, ", "))
	}

	if len(auditResult.SchemaErrors) > 0 {
		issues = append(issues, "Schema errors: "+strings.Join(auditResult.SchemaErrors, ", "))
	}

	if len(auditResult.MetadataIssues) > 0 {
		issues = append(issues, "Metadata issues: "+strings.Join(auditResult.MetadataIssues, ", "))
	}

	return fmt.Sprintf(`Fix the following issues in this HTML product page:

Product Details:
- Handle: %s
- Title: %s
- Description: %s
- Price: $%s
- Brand: %s

Issues to Fix:
%s

Current HTML:
%s

Requirements:
1. Fix ONLY the identified issues
2. Keep existing structure and content where possible
3. Ensure title is 30-60 characters
4. Ensure meta description is 120-160 characters
5. Complete any missing JSON-LD schema fields
6. Fix any malformed HTML or metadata

Generate the corrected HTML content, no explanations:`,
		product.Handle,
		product.Title,
		orDefault(product.Description),
		priceOrDefault(product.Price),
		orDefault(product.Brand),
		strings.Join(issues, "\n"),
		currentHTML,
	)
}
