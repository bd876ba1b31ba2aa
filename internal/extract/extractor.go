// Package extract parses generated PDP markup into metadata and structured
// schema objects.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Metadata keys produced by the extractor.
const (
	KeyTitle           = "title"
	KeyMetaDescription = "meta_description"
)

// jsonLDSelector matches embedded linked-data script blocks.
const jsonLDSelector = `script[type="application/ld+json"]`

// Extractor pulls SEO metadata and JSON-LD Product schema out of HTML.
// It is tolerant by design: missing tags produce absent keys and malformed
// structured data yields an empty schema object, never an error.
type Extractor struct{}

// New creates a new extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses markup and returns the metadata mapping and the first
// JSON-LD object found. Unparsable markup degrades to empty results.
func (e *Extractor) Extract(html string) (map[string]string, map[string]any) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return map[string]string{}, map[string]any{}
	}

	return e.extractMetadata(doc), e.extractSchema(doc)
}

// Metadata parses markup and returns only the metadata mapping.
func (e *Extractor) Metadata(html string) map[string]string {
	metadata, _ := e.Extract(html)
	return metadata
}

// Schema parses markup and returns only the structured schema object.
func (e *Extractor) Schema(html string) map[string]any {
	_, schema := e.Extract(html)
	return schema
}

// extractMetadata collects the title, meta description, and every og:* tag.
func (e *Extractor) extractMetadata(doc *goquery.Document) map[string]string {
	metadata := map[string]string{}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		metadata[KeyTitle] = title
	}

	if desc, exists := doc.Find(`meta[name="description"]`).Attr("content"); exists {
		metadata[KeyMetaDescription] = strings.TrimSpace(desc)
	}

	doc.Find("meta[property]").Each(func(_ int, sel *goquery.Selection) {
		prop, _ := sel.Attr("property")
		if !strings.HasPrefix(prop, "og:") {
			return
		}

		if content, exists := sel.Attr("content"); exists {
			metadata[prop] = content
		}
	})

	return metadata
}

// extractSchema parses the first JSON-LD script block into a schema object.
// A block that fails to parse yields an empty object.
func (e *Extractor) extractSchema(doc *goquery.Document) map[string]any {
	raw := strings.TrimSpace(doc.Find(jsonLDSelector).First().Text())
	if raw == "" {
		return map[string]any{}
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return map[string]any{}
	}

	return schema
}

// MetaDescriptionAttr returns the description meta tag's content attribute
// untrimmed, and whether the tag declares one. Length rules measure the raw
// attribute; the trimmed form in Extract's mapping is for display and prompts.
func (e *Extractor) MetaDescriptionAttr(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	return doc.Find(`meta[name="description"]`).Attr("content")
}

// SchemaBlock returns the raw text of the first linked-data block and whether
// one was declared at all. Callers that need to distinguish a malformed block
// from an absent one parse the raw text themselves.
func (e *Extractor) SchemaBlock(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	block := doc.Find(jsonLDSelector).First()
	if block.Length() == 0 {
		return "", false
	}

	return strings.TrimSpace(block.Text()), true
}
