package domain

import "time"

// PDPBundle is the persisted unit for one generated product detail page:
// markup, extracted metadata, structured schema, and the owning audit record.
// One bundle exists per product handle; each successful generation or fix
// cycle overwrites it.
type PDPBundle struct {
	ProductID      string            `json:"product_id"`
	HTMLContent    string            `json:"html_content"`
	Metadata       map[string]string `json:"metadata"`
	SchemaMarkup   map[string]any    `json:"schema_markup"`
	AuditResult    AuditResult       `json:"audit_result"`
	GenerationTime float64           `json:"generation_time"`
	ModelUsed      string            `json:"model_used"`
	Timestamp      time.Time         `json:"timestamp"`
}

// GenerationRecord is the serialized sync record for a bundle: the product
// input plus generation output metadata.
type GenerationRecord struct {
	Input  ProductData      `json:"input"`
	Output GenerationOutput `json:"output"`
}

// GenerationOutput holds the output half of a generation record.
type GenerationOutput struct {
	GenerationTime float64   `json:"generation_time"`
	ModelUsed      string    `json:"model_used"`
	Timestamp      time.Time `json:"timestamp"`
}

// FixRecord is one entry in a bundle's fix history.
type FixRecord struct {
	Timestamp     time.Time    `json:"timestamp"`
	ProductID     string       `json:"product_id"`
	IssuesFixed   IssueSummary `json:"issues_fixed"`
	OriginalScore float64      `json:"original_score"`
	NewScore      float64      `json:"new_score"`
	FixTime       float64      `json:"fix_time"`
	ModelUsed     string       `json:"model_used"`
}

// IssueSummary groups the issue lists from an audit result for reporting.
type IssueSummary struct {
	MissingFields  []string `json:"missing_fields"`
	FlaggedIssues  []string `json:"flagged_issues"`
	SchemaErrors   []string `json:"schema_errors"`
	MetadataIssues []string `json:"metadata_issues"`
}

// SummarizeIssues builds an IssueSummary from an audit result.
func SummarizeIssues(a AuditResult) IssueSummary {
	return IssueSummary{
		MissingFields:  a.MissingFields,
		FlaggedIssues:  a.FlaggedIssues,
		SchemaErrors:   a.SchemaErrors,
		MetadataIssues: a.MetadataIssues,
	}
}
