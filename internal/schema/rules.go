package schema

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// outcome is the result of running a single field predicate.
type outcome struct {
	valid           bool
	issues          []string
	recommendations []string
}

// fieldRule binds a schema field to its lookup path, validation predicate,
// and the policy reference it came from. Rules are pure data with embedded
// behavior; the validator only iterates them.
type fieldRule struct {
	name        string
	path        []string
	altPaths    [][]string
	validate    func(value any) outcome
	description string
	googleDocs  string
}

// requiredRules are the Product-level fields Google requires.
func requiredRules() []fieldRule {
	return []fieldRule{
		{
			name:        "name",
			path:        []string{"name"},
			validate:    validateRequiredString,
			description: "Product name/title",
			googleDocs:  "Required for all products",
		},
		{
			name:        "image",
			path:        []string{"image"},
			validate:    validateRequiredImage,
			description: "Product image URL(s)",
			googleDocs:  "Required - must be high-quality images",
		},
		{
			name:        "description",
			path:        []string{"description"},
			validate:    validateRequiredString,
			description: "Product description",
			googleDocs:  "Required for product understanding",
		},
		{
			name:        "sku",
			path:        []string{"sku"},
			validate:    validateRequiredString,
			description: "Stock Keeping Unit",
			googleDocs:  "Required identifier for inventory",
		},
		{
			name:        "offers",
			path:        []string{"offers"},
			validate:    validateRequiredOffers,
			description: "Offer information",
			googleDocs:  "Required - contains price and availability",
		},
	}
}

// offersRules are the fields required inside the offers object.
func offersRules() []fieldRule {
	return []fieldRule{
		{
			name:        "price",
			path:        []string{"price"},
			validate:    validateRequiredPrice,
			description: "Offer price",
			googleDocs:  "Required in offers",
		},
		{
			name:        "priceCurrency",
			path:        []string{"priceCurrency"},
			validate:    validateRequiredCurrency,
			description: "Price currency code",
			googleDocs:  "Required in offers (ISO 4217)",
		},
		{
			name:        "availability",
			path:        []string{"availability"},
			validate:    validateRequiredAvailability,
			description: "Product availability",
			googleDocs:  "Required in offers",
		},
	}
}

// recommendedRules improve rich-result quality but do not gate eligibility.
func recommendedRules() []fieldRule {
	return []fieldRule{
		{
			name:        "brand",
			path:        []string{"brand", "name"},
			altPaths:    [][]string{{"brand"}, {"manufacturer", "name"}, {"manufacturer"}},
			validate:    validateRecommendedString,
			description: "Product brand",
			googleDocs:  "Strongly recommended for brand recognition",
		},
		{
			name:        "mpn",
			path:        []string{"mpn"},
			validate:    validateRecommendedString,
			description: "Manufacturer Part Number",
			googleDocs:  "Recommended for product identification",
		},
		{
			name:        "gtin13",
			path:        []string{"gtin13"},
			altPaths:    [][]string{{"gtin"}, {"gtin12"}, {"gtin14"}, {"upc"}, {"ean"}},
			validate:    validateRecommendedGTIN,
			description: "Global Trade Item Number",
			googleDocs:  "Recommended for product matching",
		},
		{
			name:        "aggregateRating",
			path:        []string{"aggregateRating"},
			validate:    validateRecommendedRating,
			description: "Product ratings summary",
			googleDocs:  "Recommended for rich snippets",
		},
		{
			name:        "review",
			path:        []string{"review"},
			validate:    validateRecommendedReviews,
			description: "Product reviews",
			googleDocs:  "Recommended for trust signals",
		},
	}
}

// validCurrencyCodes is the ISO 4217 allow-list. Comparison is case-sensitive:
// lowercase codes are rejected.
var validCurrencyCodes = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "CAD": {},
	"AUD": {}, "CHF": {}, "CNY": {}, "SEK": {}, "NZD": {},
	"MXN": {}, "SGD": {}, "HKD": {}, "NOK": {}, "TRY": {},
	"RUB": {}, "INR": {}, "BRL": {}, "ZAR": {}, "KRW": {},
}

// availabilityTokens are the canonical schema.org availability states,
// accepted bare or fully qualified.
var availabilityTokens = []string{
	"InStock",
	"OutOfStock",
	"PreOrder",
	"BackOrder",
	"Discontinued",
	"LimitedAvailability",
}

const schemaOrgPrefix = "https://schema.org/"

var gtinPattern = regexp.MustCompile(`^(\d{8}|\d{12}|\d{13}|\d{14})$`)

// priceCleaner strips currency symbols and separators but keeps sign and
// decimal point so negative prices stay negative.
var priceCleaner = regexp.MustCompile(`[^0-9.\-]`)

func validateRequiredString(value any) outcome {
	if value == nil {
		return outcome{issues: []string{"Field is missing"}}
	}

	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return outcome{issues: []string{"Field must be a non-empty string"}}
	}

	if utf8.RuneCountInString(strings.TrimSpace(s)) < 3 {
		return outcome{issues: []string{"Field too short (minimum 3 characters)"}}
	}

	return outcome{valid: true}
}

func validateRecommendedString(value any) outcome {
	if value == nil {
		return outcome{
			issues:          []string{"Recommended field is missing"},
			recommendations: []string{"Adding this field improves SEO and user experience"},
		}
	}

	result := validateRequiredString(value)
	if !result.valid {
		result.recommendations = []string{"Fix this field to improve schema compliance"}
	}

	return result
}

func validateRequiredImage(value any) outcome {
	if value == nil {
		return outcome{issues: []string{"Image field is missing"}}
	}

	images, ok := value.([]any)
	if !ok {
		images = []any{value}
	}

	var issues []string
	validImages := 0

	for _, img := range images {
		switch t := img.(type) {
		case map[string]any:
			imgURL, _ := t["url"].(string)
			if imgURL == "" {
				imgURL, _ = t["@id"].(string)
			}

			if isValidURL(imgURL) {
				validImages++
			} else {
				issues = append(issues, "ImageObject missing valid URL")
			}
		case string:
			if isValidURL(t) {
				validImages++
			} else {
				issues = append(issues, "Invalid image URL: "+truncate(t, 50))
			}
		default:
			issues = append(issues, "Invalid image format")
		}
	}

	if validImages == 0 {
		if len(issues) == 0 {
			issues = []string{"No valid images found"}
		}

		return outcome{issues: issues}
	}

	return outcome{valid: true, issues: issues}
}

func validateRequiredOffers(value any) outcome {
	if value == nil {
		return outcome{issues: []string{"Offers field is missing"}}
	}

	offers, ok := value.([]any)
	if !ok {
		offers = []any{value}
	}

	if len(offers) == 0 {
		return outcome{issues: []string{"Offers array is empty"}}
	}

	var issues []string
	validOffers := 0

	for _, offer := range offers {
		obj, isObject := offer.(map[string]any)
		if !isObject {
			issues = append(issues, "Offer must be an object")
			continue
		}

		if offerType, _ := obj["@type"].(string); offerType != "" && offerType != "Offer" {
			issues = append(issues, "Invalid offer type: "+offerType)
		}

		validOffers++
	}

	return outcome{valid: validOffers > 0, issues: issues}
}

func validateRequiredPrice(value any) outcome {
	if value == nil {
		return outcome{issues: []string{"Price is missing from offers"}}
	}

	cleaned := priceCleaner.ReplaceAllString(fmt.Sprintf("%v", value), "")

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return outcome{issues: []string{"Price must be a valid number"}}
	}

	if price <= 0 {
		return outcome{issues: []string{"Price must be greater than 0"}}
	}

	return outcome{valid: true}
}

func validateRequiredCurrency(value any) outcome {
	if value == nil {
		return outcome{issues: []string{"Currency code is missing from offers"}}
	}

	currency := strings.TrimSpace(fmt.Sprintf("%v", value))

	if _, ok := validCurrencyCodes[currency]; !ok {
		return outcome{
			issues:          []string{"Invalid currency code: " + currency},
			recommendations: []string{"Use ISO 4217 codes like: USD, EUR, GBP, JPY, CAD"},
		}
	}

	return outcome{valid: true}
}

func validateRequiredAvailability(value any) outcome {
	if value == nil {
		return outcome{issues: []string{"Availability is missing from offers"}}
	}

	availability := strings.TrimSpace(fmt.Sprintf("%v", value))

	for _, token := range availabilityTokens {
		if availability == token || availability == schemaOrgPrefix+token {
			return outcome{valid: true}
		}
	}

	return outcome{
		issues:          []string{"Invalid availability value: " + availability},
		recommendations: []string{"Use Schema.org values like: InStock, OutOfStock, PreOrder"},
	}
}

func validateRecommendedGTIN(value any) outcome {
	if value == nil {
		return outcome{
			issues:          []string{"GTIN is missing"},
			recommendations: []string{"Add GTIN/UPC/EAN for better product matching"},
		}
	}

	gtin := strings.TrimSpace(fmt.Sprintf("%v", value))

	if !gtinPattern.MatchString(gtin) {
		return outcome{
			issues:          []string{"GTIN must be 8, 12, 13, or 14 digits"},
			recommendations: []string{"Verify GTIN format and check digits"},
		}
	}

	return outcome{valid: true}
}

func validateRecommendedRating(value any) outcome {
	if value == nil {
		return outcome{
			issues:          []string{"AggregateRating is missing"},
			recommendations: []string{"Add customer ratings for rich snippets"},
		}
	}

	rating, ok := value.(map[string]any)
	if !ok {
		return outcome{issues: []string{"AggregateRating must be an object"}}
	}

	var issues []string

	ratingValue, hasRating := rating["ratingValue"]
	if !hasRating {
		issues = append(issues, "Missing ratingValue in aggregateRating")
	}

	if _, hasCount := rating["reviewCount"]; !hasCount {
		if _, hasRatingCount := rating["ratingCount"]; !hasRatingCount {
			issues = append(issues, "Missing reviewCount or ratingCount")
		}
	}

	if hasRating {
		parsed, err := strconv.ParseFloat(fmt.Sprintf("%v", ratingValue), 64)
		switch {
		case err != nil:
			issues = append(issues, "ratingValue must be a number")
		case parsed < 1 || parsed > 5:
			issues = append(issues, "ratingValue should be between 1 and 5")
		}
	}

	return outcome{valid: len(issues) == 0, issues: issues}
}

func validateRecommendedReviews(value any) outcome {
	if value == nil {
		return outcome{
			issues:          []string{"Reviews are missing"},
			recommendations: []string{"Add customer reviews for trust and SEO"},
		}
	}

	reviews, ok := value.([]any)
	if !ok {
		reviews = []any{value}
	}

	if len(reviews) == 0 {
		return outcome{issues: []string{"Reviews array is empty"}}
	}

	var issues []string
	validReviews := 0

	for _, review := range reviews {
		obj, isObject := review.(map[string]any)
		if !isObject {
			issues = append(issues, "Review must be an object")
			continue
		}

		before := len(issues)

		if _, hasBody := obj["reviewBody"]; !hasBody {
			if _, hasDesc := obj["description"]; !hasDesc {
				issues = append(issues, "Review missing reviewBody or description")
			}
		}

		if _, hasAuthor := obj["author"]; !hasAuthor {
			issues = append(issues, "Review missing author")
		}

		if _, hasRating := obj["reviewRating"]; !hasRating {
			issues = append(issues, "Review missing reviewRating")
		}

		if len(issues) == before {
			validReviews++
		}
	}

	// Cap issue noise for readability.
	if len(issues) > 3 {
		issues = issues[:3]
	}

	return outcome{valid: validReviews > 0, issues: issues}
}

func isValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return parsed.Scheme != "" && parsed.Host != ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	return s[:maxLen] + "..."
}
