package remediate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/structr/internal/audit"
	"github.com/jonesrussell/structr/internal/bundle"
	"github.com/jonesrussell/structr/internal/domain"
	"github.com/jonesrussell/structr/internal/extract"
	"github.com/jonesrussell/structr/internal/llm"
	"github.com/jonesrussell/structr/internal/logger"
	"github.com/jonesrussell/structr/internal/remediate"
)

const compliantHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Acme Anvil Pro 5000 | Heavy Duty Steel Anvils</title>
	<meta name="description" content="The Acme Anvil Pro 5000 is a forged steel anvil with a hardened work face, machined horn, and stable base for daily blacksmithing work.">
	<meta property="og:title" content="Acme Anvil Pro 5000">
	<meta property="og:description" content="Forged steel anvil for daily use.">
	<meta property="og:image" content="https://cdn.acme.test/anvil.jpg">
	<script type="application/ld+json">
	{
		"@type": "Product",
		"name": "Acme Anvil Pro 5000",
		"description": "Forged steel anvil.",
		"image": "https://cdn.acme.test/anvil.jpg",
		"brand": {"@type": "Brand", "name": "Acme"},
		"offers": {"@type": "Offer", "price": "199.99", "priceCurrency": "USD"}
	}
	</script>
</head>
<body><h1>Acme Anvil Pro 5000</h1></body>
</html>`

const brokenHTML = `<html><head><title>Anvil</title></head><body></body></html>`

const threshold = 80.0

type harness struct {
	store        *bundle.Store
	auditor      *audit.Auditor
	orchestrator *remediate.Orchestrator
	calls        atomic.Int32
}

// newHarness wires an orchestrator against a fake generation endpoint whose
// nth call returns responses[min(n, len-1)].
func newHarness(t *testing.T, responses ...string) *harness {
	t.Helper()

	h := &harness{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(h.calls.Add(1)) - 1
		if n >= len(responses) {
			n = len(responses) - 1
		}

		payload := struct {
			Response string `json:"response"`
		}{Response: responses[n]}
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	t.Cleanup(server.Close)

	log := logger.NewNoop()
	extractor := extract.New()

	store, err := bundle.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	client := llm.NewClient(llm.Config{BaseURL: server.URL, Model: "mistral"}, log)
	service := llm.NewService(client, extractor, log)

	h.store = store
	h.auditor = audit.New(extractor)
	h.orchestrator = remediate.New(service, h.auditor, store, log, remediate.DefaultMaxFixAttempts)

	return h
}

func testProduct() domain.ProductData {
	return domain.ProductData{Handle: "anvil-5000", Title: "Acme Anvil Pro 5000"}
}

func TestGenerateConvergesImmediately(t *testing.T) {
	t.Parallel()

	h := newHarness(t, compliantHTML)

	outcome, err := h.orchestrator.Generate(context.Background(), testProduct(), threshold)
	require.NoError(t, err)

	assert.Equal(t, remediate.StatusConverged, outcome.Status)
	assert.Zero(t, outcome.FixAttempts)
	assert.InDelta(t, 100.0, outcome.InitialScore, 0.001)
	assert.InDelta(t, 100.0, outcome.FinalScore, 0.001)
	assert.False(t, outcome.Degraded)

	// One generation call, no fix calls.
	assert.Equal(t, int32(1), h.calls.Load())

	html, err := h.store.ReadHTML("anvil-5000")
	require.NoError(t, err)
	assert.Equal(t, compliantHTML, html)

	persisted, err := h.store.ReadAudit("anvil-5000")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, persisted.Score, 0.001)

	_, err = h.store.ReadFixHistory("anvil-5000")
	assert.ErrorIs(t, err, bundle.ErrNotFound)
}

func TestGenerateFixImproves(t *testing.T) {
	t.Parallel()

	// First call generates a broken page, the fix call repairs it.
	h := newHarness(t, brokenHTML, compliantHTML)

	outcome, err := h.orchestrator.Generate(context.Background(), testProduct(), threshold)
	require.NoError(t, err)

	assert.Equal(t, remediate.StatusConverged, outcome.Status)
	assert.Equal(t, 1, outcome.FixAttempts)
	assert.Less(t, outcome.InitialScore, threshold)
	assert.InDelta(t, 100.0, outcome.FinalScore, 0.001)

	html, err := h.store.ReadHTML("anvil-5000")
	require.NoError(t, err)
	assert.Equal(t, compliantHTML, html)

	history, err := h.store.ReadFixHistory("anvil-5000")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, outcome.InitialScore, history[0].OriginalScore, 0.001)
	assert.InDelta(t, 100.0, history[0].NewScore, 0.001)
	assert.Equal(t, "mistral", history[0].ModelUsed)
}

func TestGenerateStopsWhenNotImproving(t *testing.T) {
	t.Parallel()

	// Every call returns the same broken page, so the first fix attempt makes
	// no progress and the loop stops early.
	h := newHarness(t, brokenHTML)

	outcome, err := h.orchestrator.Generate(context.Background(), testProduct(), threshold)
	require.NoError(t, err)

	assert.Equal(t, remediate.StatusExhausted, outcome.Status)
	assert.Equal(t, 1, outcome.FixAttempts)
	assert.Equal(t, outcome.InitialScore, outcome.FinalScore)

	history, err := h.store.ReadFixHistory("anvil-5000")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestGenerateRejectsInvalidProduct(t *testing.T) {
	t.Parallel()

	h := newHarness(t, compliantHTML)

	_, err := h.orchestrator.Generate(context.Background(), domain.ProductData{Handle: "no-title"}, threshold)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)

	assert.Zero(t, h.calls.Load())
}

func TestFixPersistedBundle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, compliantHTML)

	// Seed a persisted low-scoring bundle directly.
	seeded := domain.PDPBundle{
		ProductID:   "anvil-5000",
		HTMLContent: brokenHTML,
		AuditResult: h.auditor.AuditHTML(brokenHTML, "anvil-5000"),
		ModelUsed:   "mistral",
	}
	require.NoError(t, h.store.WriteBundle(seeded, testProduct()))

	outcome, err := h.orchestrator.Fix(context.Background(), "anvil-5000", threshold)
	require.NoError(t, err)

	assert.Equal(t, remediate.StatusConverged, outcome.Status)
	assert.Equal(t, 1, outcome.FixAttempts)
	assert.InDelta(t, 100.0, outcome.FinalScore, 0.001)

	html, err := h.store.ReadHTML("anvil-5000")
	require.NoError(t, err)
	assert.Equal(t, compliantHTML, html)
}

func TestFixUnknownBundle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, compliantHTML)

	_, err := h.orchestrator.Fix(context.Background(), "never-generated", threshold)
	assert.ErrorIs(t, err, bundle.ErrNotFound)
}

func TestFixSkipsWhenAlreadyAboveThreshold(t *testing.T) {
	t.Parallel()

	h := newHarness(t, compliantHTML)

	seeded := domain.PDPBundle{
		ProductID:   "anvil-5000",
		HTMLContent: compliantHTML,
		AuditResult: h.auditor.AuditHTML(compliantHTML, "anvil-5000"),
		ModelUsed:   "mistral",
	}
	require.NoError(t, h.store.WriteBundle(seeded, testProduct()))

	outcome, err := h.orchestrator.Fix(context.Background(), "anvil-5000", threshold)
	require.NoError(t, err)

	assert.Equal(t, remediate.StatusConverged, outcome.Status)
	assert.Zero(t, outcome.FixAttempts)
	assert.Zero(t, h.calls.Load())
}
