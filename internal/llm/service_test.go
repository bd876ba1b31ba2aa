package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/structr/internal/domain"
	"github.com/jonesrussell/structr/internal/extract"
	"github.com/jonesrussell/structr/internal/logger"
)

const generatedPage = `<html><head>
<title>Acme Anvil Pro 5000 | Heavy Duty Steel Anvils</title>
<script type="application/ld+json">{"@type": "Product", "name": "Acme Anvil Pro 5000"}</script>
</head><body></body></html>`

func testProduct() domain.ProductData {
	return domain.ProductData{
		Handle:      "anvil-5000",
		Title:       "Acme Anvil Pro 5000",
		Description: domain.StringPtr("Forged steel anvil."),
		Price:       domain.FloatPtr(199.99),
		Brand:       domain.StringPtr("Acme"),
		Features:    []string{"Hardened work face", "Machined horn"},
	}
}

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, Model: "mistral"}, logger.NewNoop())

	return NewService(client, extract.New(), logger.NewNoop())
}

func TestServiceGenerate(t *testing.T) {
	t.Parallel()

	var prompt string

	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt = req.Prompt

		require.NoError(t, json.NewEncoder(w).Encode(generateResponse{Response: generatedPage}))
	})

	bundle, result := service.Generate(context.Background(), testProduct())

	assert.False(t, result.Degraded())
	assert.Equal(t, "anvil-5000", bundle.ProductID)
	assert.Equal(t, generatedPage, bundle.HTMLContent)
	assert.Equal(t, "mistral", bundle.ModelUsed)
	assert.False(t, bundle.Timestamp.IsZero())

	// Extraction runs against the generated markup.
	assert.Equal(t, "Acme Anvil Pro 5000 | Heavy Duty Steel Anvils", bundle.Metadata["title"])
	assert.Equal(t, "Product", bundle.SchemaMarkup["@type"])

	// The prompt carries the product input.
	assert.Contains(t, prompt, "Acme Anvil Pro 5000")
	assert.Contains(t, prompt, "Hardened work face")
}

func TestServiceGenerateDegraded(t *testing.T) {
	t.Parallel()

	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	bundle, result := service.Generate(context.Background(), testProduct())

	require.True(t, result.Degraded())
	assert.Contains(t, bundle.HTMLContent, "<h1>Generation Error</h1>")

	// The sentinel document still parses; extraction degrades, never fails.
	assert.Equal(t, "Error", bundle.Metadata["title"])
	assert.Empty(t, bundle.SchemaMarkup)
}

func TestServiceFix(t *testing.T) {
	t.Parallel()

	var prompt string

	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt = req.Prompt

		require.NoError(t, json.NewEncoder(w).Encode(generateResponse{Response: generatedPage}))
	})

	auditResult := domain.NewAuditResult("anvil-5000")
	auditResult.MissingFields = append(auditResult.MissingFields, "og:image")
	auditResult.SchemaErrors = append(auditResult.SchemaErrors, "Offer missing price")

	result := service.Fix(context.Background(), testProduct(), auditResult, "<html><body>old</body></html>")

	assert.False(t, result.Degraded())
	assert.Equal(t, generatedPage, result.Markup)

	// The fix prompt enumerates the audit issues and the current markup.
	assert.Contains(t, prompt, "og:image")
	assert.Contains(t, prompt, "Offer missing price")
	assert.Contains(t, prompt, "<html><body>old</body></html>")
}
