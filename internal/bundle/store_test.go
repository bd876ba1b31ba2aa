package bundle_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/structr/internal/bundle"
	"github.com/jonesrussell/structr/internal/domain"
	"github.com/jonesrussell/structr/internal/logger"
)

func newTestStore(t *testing.T) *bundle.Store {
	t.Helper()

	store, err := bundle.NewStore(t.TempDir(), logger.NewNoop())
	require.NoError(t, err)

	return store
}

func testBundle(productID string) domain.PDPBundle {
	return domain.PDPBundle{
		ProductID:      productID,
		HTMLContent:    "<html><body>page</body></html>",
		Metadata:       map[string]string{"title": "Acme Anvil Pro 5000"},
		SchemaMarkup:   map[string]any{"@type": "Product"},
		AuditResult:    domain.NewAuditResult(productID),
		GenerationTime: 1.25,
		ModelUsed:      "mistral",
		Timestamp:      time.Now(),
	}
}

func TestWriteBundleLayout(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	product := domain.ProductData{Handle: "anvil-5000", Title: "Acme Anvil Pro 5000"}

	require.NoError(t, store.WriteBundle(testBundle("anvil-5000"), product))

	dir := store.Path("anvil-5000")
	for _, name := range []string{bundle.HTMLFile, bundle.AuditFile, bundle.SyncFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	assert.True(t, store.Exists("anvil-5000"))

	html, err := store.ReadHTML("anvil-5000")
	require.NoError(t, err)
	assert.Equal(t, "<html><body>page</body></html>", html)

	record, err := store.ReadGenerationRecord("anvil-5000")
	require.NoError(t, err)
	assert.Equal(t, "anvil-5000", record.Input.Handle)
	assert.Equal(t, "mistral", record.Output.ModelUsed)
	assert.InDelta(t, 1.25, record.Output.GenerationTime, 0.001)
}

func TestWriteBundleRejectsMismatchedAudit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	b := testBundle("anvil-5000")
	b.AuditResult = domain.NewAuditResult("someone-else")

	err := store.WriteBundle(b, domain.ProductData{Handle: "anvil-5000", Title: "Acme Anvil Pro 5000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit result belongs to")
}

func TestAuditRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.WriteHTML("anvil-5000", "<html></html>"))

	result := domain.NewAuditResult("anvil-5000")
	result.Score = 72.73
	result.SchemaErrors = append(result.SchemaErrors, "Offer missing price")

	require.NoError(t, store.WriteAudit("anvil-5000", result))

	loaded, err := store.ReadAudit("anvil-5000")
	require.NoError(t, err)
	assert.Equal(t, "anvil-5000", loaded.ProductID)
	assert.InDelta(t, 72.73, loaded.Score, 0.001)
	assert.Equal(t, []string{"Offer missing price"}, loaded.SchemaErrors)
}

func TestReadMissingBundle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.ReadHTML("nope")
	assert.ErrorIs(t, err, bundle.ErrNotFound)

	_, err = store.ReadAudit("nope")
	assert.ErrorIs(t, err, bundle.ErrNotFound)

	_, err = store.ReadFixHistory("nope")
	assert.ErrorIs(t, err, bundle.ErrNotFound)
}

func TestAppendFixRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.WriteHTML("anvil-5000", "<html></html>"))

	first := domain.FixRecord{
		Timestamp:     time.Now(),
		ProductID:     "anvil-5000",
		OriginalScore: 54.55,
		NewScore:      72.73,
		ModelUsed:     "mistral",
	}
	second := first
	second.OriginalScore = 72.73
	second.NewScore = 100

	require.NoError(t, store.AppendFixRecord("anvil-5000", first))
	require.NoError(t, store.AppendFixRecord("anvil-5000", second))

	history, err := store.ReadFixHistory("anvil-5000")
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Append order is preserved.
	assert.InDelta(t, 54.55, history[0].OriginalScore, 0.001)
	assert.InDelta(t, 100, history[1].NewScore, 0.001)
}

func TestReadFixHistorySingleRecordUpgrade(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.WriteHTML("anvil-5000", "<html></html>"))

	// Histories written as a single object are read back as one-element lists.
	path := filepath.Join(store.Path("anvil-5000"), bundle.FixLogFile)
	legacy := `{"product_id": "anvil-5000", "original_score": 40, "new_score": 60}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	history, err := store.ReadFixHistory("anvil-5000")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, 40, history[0].OriginalScore, 0.001)

	record := domain.FixRecord{ProductID: "anvil-5000", OriginalScore: 60, NewScore: 80}
	require.NoError(t, store.AppendFixRecord("anvil-5000", record))

	history, err = store.ReadFixHistory("anvil-5000")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestList(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.WriteHTML("anvil-5000", "<html></html>"))
	require.NoError(t, store.WriteHTML("hammer-200", "<html></html>"))

	ids, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"anvil-5000", "hammer-200"}, ids)
}

func TestWithLockSerializesPerProduct(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	const workers = 16

	counter := 0

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			_ = store.WithLock("anvil-5000", func() error {
				value := counter
				time.Sleep(time.Millisecond)
				counter = value + 1

				return nil
			})
		}()
	}

	wg.Wait()
	assert.Equal(t, workers, counter)
}
