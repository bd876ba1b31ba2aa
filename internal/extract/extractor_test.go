package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/structr/internal/extract"
)

const fullPageHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Acme Anvil Pro 5000 | Heavy Duty Steel Anvils</title>
	<meta name="description" content="The Acme Anvil Pro 5000 is a forged steel anvil with a hardened work face, machined horn, and stable base for daily blacksmithing work.">
	<meta property="og:title" content="Acme Anvil Pro 5000">
	<meta property="og:description" content="Forged steel anvil for daily use.">
	<meta property="og:image" content="https://cdn.acme.test/anvil.jpg">
	<meta property="twitter:card" content="summary">
	<script type="application/ld+json">
	{"@context": "https://schema.org", "@type": "Product", "name": "Acme Anvil Pro 5000", "sku": "ANVIL-5000"}
	</script>
</head>
<body><h1>Acme Anvil Pro 5000</h1></body>
</html>`

const malformedSchemaHTML = `<html><head>
<script type="application/ld+json">{"@type": "Product", "name": </script>
</head><body></body></html>`

func TestExtractMetadata(t *testing.T) {
	t.Parallel()

	extractor := extract.New()
	metadata := extractor.Metadata(fullPageHTML)

	assert.Equal(t, "Acme Anvil Pro 5000 | Heavy Duty Steel Anvils", metadata[extract.KeyTitle])
	assert.Contains(t, metadata[extract.KeyMetaDescription], "forged steel anvil")
	assert.Equal(t, "Acme Anvil Pro 5000", metadata["og:title"])
	assert.Equal(t, "Forged steel anvil for daily use.", metadata["og:description"])
	assert.Equal(t, "https://cdn.acme.test/anvil.jpg", metadata["og:image"])

	// Only og:* properties are captured.
	assert.NotContains(t, metadata, "twitter:card")
}

func TestExtractMetadataMissingTags(t *testing.T) {
	t.Parallel()

	extractor := extract.New()
	metadata := extractor.Metadata("<html><head></head><body></body></html>")

	assert.NotContains(t, metadata, extract.KeyTitle)
	assert.NotContains(t, metadata, extract.KeyMetaDescription)
}

func TestExtractSchema(t *testing.T) {
	t.Parallel()

	extractor := extract.New()
	schema := extractor.Schema(fullPageHTML)

	assert.Equal(t, "Product", schema["@type"])
	assert.Equal(t, "Acme Anvil Pro 5000", schema["name"])
	assert.Equal(t, "ANVIL-5000", schema["sku"])
}

func TestExtractSchemaDegradesToEmpty(t *testing.T) {
	t.Parallel()

	extractor := extract.New()

	assert.Empty(t, extractor.Schema("<html><body>no schema</body></html>"))
	assert.Empty(t, extractor.Schema(malformedSchemaHTML))
	assert.Empty(t, extractor.Schema(""))
}

func TestMetaDescriptionAttr(t *testing.T) {
	t.Parallel()

	extractor := extract.New()

	// The raw attribute keeps its whitespace; the metadata mapping trims it.
	html := `<html><head><meta name="description" content="  padded copy  "></head></html>`

	raw, found := extractor.MetaDescriptionAttr(html)
	require.True(t, found)
	assert.Equal(t, "  padded copy  ", raw)
	assert.Equal(t, "padded copy", extractor.Metadata(html)[extract.KeyMetaDescription])

	_, found = extractor.MetaDescriptionAttr("<html><head></head></html>")
	assert.False(t, found)
}

func TestSchemaBlock(t *testing.T) {
	t.Parallel()

	extractor := extract.New()

	raw, found := extractor.SchemaBlock(fullPageHTML)
	require.True(t, found)
	assert.Contains(t, raw, `"@type": "Product"`)

	// A malformed block is still a declared block.
	raw, found = extractor.SchemaBlock(malformedSchemaHTML)
	require.True(t, found)
	assert.NotEmpty(t, raw)

	_, found = extractor.SchemaBlock("<html><body></body></html>")
	assert.False(t, found)
}
