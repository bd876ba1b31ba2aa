// Package schema validates JSON-LD Product schema against Google Merchant
// Listings requirements for rich-result eligibility.
package schema

import (
	"math"

	"github.com/jonesrussell/structr/internal/extract"
	"github.com/jonesrussell/structr/internal/logger"
)

// Category weights for the compliance score.
const (
	requiredWeight    = 0.60
	offersWeight      = 0.25
	recommendedWeight = 0.15
)

// FieldCheck is the per-field validation result.
type FieldCheck struct {
	Present         bool     `json:"present"`
	Valid           bool     `json:"valid"`
	Value           any      `json:"value,omitempty"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations,omitempty"`
	Description     string   `json:"description"`
	GoogleDocs      string   `json:"google_docs"`
}

// Summary aggregates pass counts per category.
type Summary struct {
	GoogleEligible    bool `json:"google_eligible"`
	RequiredPassed    int  `json:"required_passed"`
	RequiredTotal     int  `json:"required_total"`
	RecommendedPassed int  `json:"recommended_passed"`
	RecommendedTotal  int  `json:"recommended_total"`
	OffersPassed      int  `json:"offers_passed"`
	OffersTotal       int  `json:"offers_total"`
	TotalIssues       int  `json:"total_issues"`
	CriticalIssues    int  `json:"critical_issues"`
}

// Report is the full validation report for one bundle. Built fresh per
// validation call and never mutated.
type Report struct {
	BundleID          string                `json:"bundle_id"`
	SchemaFound       bool                  `json:"schema_found"`
	SchemaType        string                `json:"schema_type,omitempty"`
	Error             string                `json:"error,omitempty"`
	RequiredFields    map[string]FieldCheck `json:"required_fields,omitempty"`
	RecommendedFields map[string]FieldCheck `json:"recommended_fields,omitempty"`
	OffersFields      map[string]FieldCheck `json:"offers_fields,omitempty"`
	GoogleEligible    bool                  `json:"google_eligible"`
	ComplianceScore   float64               `json:"compliance_score"`
	Summary           *Summary              `json:"summary,omitempty"`
}

// MarkupReader supplies persisted bundle markup to the validator.
type MarkupReader interface {
	ReadHTML(productID string) (string, error)
	List() ([]string, error)
}

// Validator scores Product schema against three weighted rule categories.
// The rule registries are built once at construction.
type Validator struct {
	reader      MarkupReader
	extractor   *extract.Extractor
	log         logger.Interface
	required    []fieldRule
	offers      []fieldRule
	recommended []fieldRule
}

// NewValidator creates a validator over the given markup source.
func NewValidator(reader MarkupReader, extractor *extract.Extractor, log logger.Interface) *Validator {
	return &Validator{
		reader:      reader,
		extractor:   extractor,
		log:         log.WithComponent("schema-validator"),
		required:    requiredRules(),
		offers:      offersRules(),
		recommended: recommendedRules(),
	}
}

// Validate produces a report for a single bundle. Missing markup or absent
// Product schema yields an ineligible report with an explanatory error,
// never a failure.
func (v *Validator) Validate(bundleID string) Report {
	html, err := v.reader.ReadHTML(bundleID)
	if err != nil {
		return Report{
			BundleID: bundleID,
			Error:    "Validation error: " + err.Error(),
		}
	}

	return v.ValidateHTML(bundleID, html)
}

// ValidateHTML validates the Product schema embedded in the given markup.
func (v *Validator) ValidateHTML(bundleID, html string) Report {
	schemaData := v.extractor.Schema(html)
	if !isProductSchema(schemaData) {
		return Report{
			BundleID: bundleID,
			Error:    "No valid Product schema found",
		}
	}

	offersData := extractOffersData(schemaData)

	requiredResults := v.runRules(v.required, schemaData)
	recommendedResults := v.runRules(v.recommended, schemaData)
	offersResults := v.runOffersRules(offersData)

	eligible := allPassed(requiredResults) && allPassed(offersResults)
	score := complianceScore(requiredResults, recommendedResults, offersResults)

	schemaType, _ := schemaData["@type"].(string)

	report := Report{
		BundleID:          bundleID,
		SchemaFound:       true,
		SchemaType:        schemaType,
		RequiredFields:    requiredResults,
		RecommendedFields: recommendedResults,
		OffersFields:      offersResults,
		GoogleEligible:    eligible,
		ComplianceScore:   score,
	}
	report.Summary = buildSummary(&report)

	v.log.Debug("validated bundle schema",
		"bundle_id", bundleID,
		"compliance_score", score,
		"google_eligible", eligible,
	)

	return report
}

// ValidateAll validates every persisted bundle. A single bundle's failure is
// captured in its own report; the batch always completes.
func (v *Validator) ValidateAll() ([]Report, error) {
	ids, err := v.reader.List()
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(ids))
	for _, id := range ids {
		reports = append(reports, v.Validate(id))
	}

	return reports, nil
}

// runRules evaluates each rule against the schema object.
func (v *Validator) runRules(rules []fieldRule, data map[string]any) map[string]FieldCheck {
	results := make(map[string]FieldCheck, len(rules))
	for _, rule := range rules {
		results[rule.name] = checkField(rule, data)
	}

	return results
}

// runOffersRules evaluates the offers category. When no offers object exists
// every field is reported missing.
func (v *Validator) runOffersRules(offersData map[string]any) map[string]FieldCheck {
	results := make(map[string]FieldCheck, len(v.offers))

	if offersData == nil {
		for _, rule := range v.offers {
			results[rule.name] = FieldCheck{
				Issues:      []string{"Offers object not found"},
				Description: rule.description,
				GoogleDocs:  rule.googleDocs,
			}
		}

		return results
	}

	for _, rule := range v.offers {
		results[rule.name] = checkField(rule, offersData)
	}

	return results
}

// checkField resolves the rule's path (falling back to alternates) and runs
// its predicate.
func checkField(rule fieldRule, data map[string]any) FieldCheck {
	value := lookupPath(data, rule.path)

	if value == nil {
		for _, alt := range rule.altPaths {
			if value = lookupPath(data, alt); value != nil {
				break
			}
		}
	}

	result := rule.validate(value)
	issues := result.issues
	if issues == nil {
		issues = []string{}
	}

	return FieldCheck{
		Present:         value != nil,
		Valid:           result.valid,
		Value:           value,
		Issues:          issues,
		Recommendations: result.recommendations,
		Description:     rule.description,
		GoogleDocs:      rule.googleDocs,
	}
}

// lookupPath walks a nested object path, returning nil when any hop is absent.
func lookupPath(data map[string]any, path []string) any {
	var current any = data

	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}

		current, ok = obj[key]
		if !ok {
			return nil
		}
	}

	return current
}

// isProductSchema reports whether the decoded object declares a Product type,
// either directly or within a type list.
func isProductSchema(data map[string]any) bool {
	if len(data) == 0 {
		return false
	}

	switch t := data["@type"].(type) {
	case string:
		return t == "Product"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}

	return false
}

// extractOffersData returns the offers object, taking the first element when
// offers is an array.
func extractOffersData(schemaData map[string]any) map[string]any {
	switch offers := schemaData["offers"].(type) {
	case map[string]any:
		return offers
	case []any:
		if len(offers) > 0 {
			if first, ok := offers[0].(map[string]any); ok {
				return first
			}
		}
	}

	return nil
}

// allPassed reports whether every field in the category is present and valid.
func allPassed(results map[string]FieldCheck) bool {
	for _, result := range results {
		if !result.Present || !result.Valid {
			return false
		}
	}

	return true
}

// passFraction is matched-valid over total for one category.
func passFraction(results map[string]FieldCheck) float64 {
	if len(results) == 0 {
		return 0
	}

	return float64(countPassed(results)) / float64(len(results))
}

func countPassed(results map[string]FieldCheck) int {
	passed := 0
	for _, result := range results {
		if result.Present && result.Valid {
			passed++
		}
	}

	return passed
}

// complianceScore combines the weighted per-category pass fractions,
// rounded to one decimal place.
func complianceScore(required, recommended, offers map[string]FieldCheck) float64 {
	total := requiredWeight*passFraction(required) +
		offersWeight*passFraction(offers) +
		recommendedWeight*passFraction(recommended)

	return math.Round(total*1000) / 10
}

// buildSummary tallies the pass/total counts and issue totals for a report.
func buildSummary(report *Report) *Summary {
	totalIssues := 0
	for _, results := range []map[string]FieldCheck{
		report.RequiredFields, report.RecommendedFields, report.OffersFields,
	} {
		for _, result := range results {
			totalIssues += len(result.Issues)
		}
	}

	criticalIssues := 0
	for _, results := range []map[string]FieldCheck{report.RequiredFields, report.OffersFields} {
		for _, result := range results {
			criticalIssues += len(result.Issues)
		}
	}

	return &Summary{
		GoogleEligible:    report.GoogleEligible,
		RequiredPassed:    countPassed(report.RequiredFields),
		RequiredTotal:     len(report.RequiredFields),
		RecommendedPassed: countPassed(report.RecommendedFields),
		RecommendedTotal:  len(report.RecommendedFields),
		OffersPassed:      countPassed(report.OffersFields),
		OffersTotal:       len(report.OffersFields),
		TotalIssues:       totalIssues,
		CriticalIssues:    criticalIssues,
	}
}
