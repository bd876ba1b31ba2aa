// Package audit scores generated PDP markup against generic SEO and
// metadata rules.
package audit

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/structr/internal/domain"
	"github.com/jonesrussell/structr/internal/extract"
)

// Length bounds for title and meta description checks.
const (
	titleMinLen    = 30
	titleMaxLen    = 60
	metaDescMinLen = 120
	metaDescMaxLen = 160
)

// requiredMetaFields are the generic metadata rules counted in the score
// denominator.
var requiredMetaFields = []string{
	"title",
	"meta_description",
	"og:title",
	"og:description",
	"og:image",
}

// requiredSchemaFields are the Product schema fields every page must declare.
var requiredSchemaFields = []string{
	"@type",
	"name",
	"description",
	"image",
	"offers",
	"brand",
}

// Auditor checks PDP markup for SEO and structure compliance.
type Auditor struct {
	extractor *extract.Extractor
}

// New creates a new auditor.
func New(extractor *extract.Extractor) *Auditor {
	return &Auditor{extractor: extractor}
}

// AuditFile audits the markup file at path. A missing or unreadable file
// yields a floor-score result with a descriptive issue instead of an error.
func (a *Auditor) AuditFile(path, productID string) domain.AuditResult {
	html, err := os.ReadFile(path)
	if err != nil {
		result := domain.NewAuditResult(productID)
		result.FlaggedIssues = append(result.FlaggedIssues, fmt.Sprintf("Failed to audit: %v", err))

		return result
	}

	return a.AuditHTML(string(html), productID)
}

// AuditHTML analyzes markup and returns a fresh audit result. It never fails:
// every rule degrades to a recorded issue.
func (a *Auditor) AuditHTML(html, productID string) domain.AuditResult {
	result := domain.NewAuditResult(productID)
	metadata := a.extractor.Metadata(html)

	a.checkTitle(metadata, &result)
	a.checkMetaDescription(html, &result)
	a.checkOpenGraph(metadata, &result)
	a.checkSchema(html, &result)

	totalChecks := len(requiredMetaFields) + len(requiredSchemaFields)
	score := 100 - float64(result.IssueCount())/float64(totalChecks)*100
	result.Score = roundScore(math.Max(0, score))

	return result
}

// Length bounds count characters, not bytes, so accented or typographic copy
// measures the same as plain ASCII.
func (a *Auditor) checkTitle(metadata map[string]string, result *domain.AuditResult) {
	title := strings.TrimSpace(metadata[extract.KeyTitle])

	switch {
	case title == "":
		result.MissingFields = append(result.MissingFields, "title")
		result.MetadataIssues = append(result.MetadataIssues, "Missing or empty title tag")
	case utf8.RuneCountInString(title) < titleMinLen:
		result.FlaggedIssues = append(result.FlaggedIssues, "Title too short (< 30 chars)")
	case utf8.RuneCountInString(title) > titleMaxLen:
		result.FlaggedIssues = append(result.FlaggedIssues, "Title too long (> 60 chars)")
	}
}

// The missing check trims, the length checks measure the raw attribute:
// surrounding whitespace counts toward the length target.
func (a *Auditor) checkMetaDescription(html string, result *domain.AuditResult) {
	desc, _ := a.extractor.MetaDescriptionAttr(html)

	switch {
	case strings.TrimSpace(desc) == "":
		result.MissingFields = append(result.MissingFields, "meta_description")
		result.MetadataIssues = append(result.MetadataIssues, "Missing meta description")
	case utf8.RuneCountInString(desc) < metaDescMinLen:
		result.FlaggedIssues = append(result.FlaggedIssues, "Meta description too short (< 120 chars)")
	case utf8.RuneCountInString(desc) > metaDescMaxLen:
		result.FlaggedIssues = append(result.FlaggedIssues, "Meta description too long (> 160 chars)")
	}
}

func (a *Auditor) checkOpenGraph(metadata map[string]string, result *domain.AuditResult) {
	for _, tag := range []string{"og:title", "og:description", "og:image"} {
		if strings.TrimSpace(metadata[tag]) == "" {
			result.MissingFields = append(result.MissingFields, tag)
			result.MetadataIssues = append(result.MetadataIssues, "Missing "+tag)
		}
	}
}

func (a *Auditor) checkSchema(html string, result *domain.AuditResult) {
	raw, found := a.extractor.SchemaBlock(html)
	if !found {
		result.MissingFields = append(result.MissingFields, "json_ld_schema")
		result.SchemaErrors = append(result.SchemaErrors, "Missing JSON-LD schema markup")

		return
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		result.SchemaErrors = append(result.SchemaErrors, "Invalid JSON-LD schema format")

		return
	}

	result.SchemaErrors = append(result.SchemaErrors, validateProductSchema(schema)...)
}

// validateProductSchema checks the parsed schema object against the fixed
// Product requirements.
func validateProductSchema(schema map[string]any) []string {
	var errs []string

	if schemaType, _ := schema["@type"].(string); schemaType != "Product" {
		errs = append(errs, `Schema @type must be "Product"`)
	}

	for _, field := range requiredSchemaFields {
		if _, ok := schema[field]; !ok {
			errs = append(errs, "Missing required schema field: "+field)
		}
	}

	if offers, ok := schema["offers"].(map[string]any); ok {
		if offerType, _ := offers["@type"].(string); offerType != "Offer" {
			errs = append(errs, `Offers @type must be "Offer"`)
		}

		if isEmptyValue(offers["price"]) {
			errs = append(errs, "Offer missing price")
		}

		if isEmptyValue(offers["priceCurrency"]) {
			errs = append(errs, "Offer missing priceCurrency")
		}
	}

	return errs
}

// isEmptyValue reports whether a decoded JSON value is absent or empty.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case float64:
		return t == 0
	default:
		return false
	}
}

// roundScore rounds to two decimal places for stable display.
func roundScore(score float64) float64 {
	return math.Round(score*100) / 100
}
