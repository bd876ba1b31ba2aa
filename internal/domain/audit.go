package domain

import "time"

// AuditResult captures one SEO/metadata audit pass over a generated page.
// Results are created fresh on every audit and never mutated afterwards.
type AuditResult struct {
	ProductID      string    `json:"product_id"`
	Score          float64   `json:"score"`
	MissingFields  []string  `json:"missing_fields"`
	FlaggedIssues  []string  `json:"flagged_issues"`
	SchemaErrors   []string  `json:"schema_errors"`
	MetadataIssues []string  `json:"metadata_issues"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewAuditResult returns an empty result for the given product with the
// timestamp set to now.
func NewAuditResult(productID string) AuditResult {
	return AuditResult{
		ProductID:      productID,
		MissingFields:  []string{},
		FlaggedIssues:  []string{},
		SchemaErrors:   []string{},
		MetadataIssues: []string{},
		Timestamp:      time.Now(),
	}
}

// HasIssues reports whether the result carries anything fixable.
func (a *AuditResult) HasIssues() bool {
	return len(a.MissingFields) > 0 ||
		len(a.FlaggedIssues) > 0 ||
		len(a.SchemaErrors) > 0 ||
		len(a.MetadataIssues) > 0
}

// IssueCount is the number of issues that participate in scoring.
// MetadataIssues largely duplicate MissingFields and are tracked for
// diagnostics only.
func (a *AuditResult) IssueCount() int {
	return len(a.MissingFields) + len(a.FlaggedIssues) + len(a.SchemaErrors)
}
