// Package batch runs pipeline operations across many bundles with bounded
// parallelism. Per-item failures are captured in that item's result; a batch
// always completes.
package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/structr/internal/audit"
	"github.com/jonesrussell/structr/internal/bundle"
	"github.com/jonesrussell/structr/internal/domain"
	"github.com/jonesrussell/structr/internal/logger"
	"github.com/jonesrussell/structr/internal/remediate"
	"github.com/jonesrussell/structr/internal/schema"
)

// DefaultConcurrency bounds parallel external calls and file writes.
const DefaultConcurrency = 4

// ItemResult is the per-product outcome of a batch operation. Exactly one of
// Outcome, Audit, or Report is set depending on the operation.
type ItemResult struct {
	ProductID string              `json:"product_id"`
	Err       string              `json:"error,omitempty"`
	Outcome   *remediate.Outcome  `json:"outcome,omitempty"`
	Audit     *domain.AuditResult `json:"audit,omitempty"`
	Report    *schema.Report      `json:"report,omitempty"`
}

// Result summarizes one batch run. Item order follows input order, not
// completion order.
type Result struct {
	RunID     string       `json:"run_id"`
	Operation string       `json:"operation"`
	Duration  float64      `json:"duration"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items"`
}

// Processor drives batch operations over the pipeline components.
type Processor struct {
	orchestrator *remediate.Orchestrator
	auditor      *audit.Auditor
	validator    *schema.Validator
	store        *bundle.Store
	log          logger.Interface
	concurrency  int
}

// NewProcessor creates a batch processor. concurrency <= 0 selects the
// default bound.
func NewProcessor(
	orchestrator *remediate.Orchestrator,
	auditor *audit.Auditor,
	validator *schema.Validator,
	store *bundle.Store,
	log logger.Interface,
	concurrency int,
) *Processor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Processor{
		orchestrator: orchestrator,
		auditor:      auditor,
		validator:    validator,
		store:        store,
		log:          log.WithComponent("batch"),
		concurrency:  concurrency,
	}
}

// GenerateAll runs the full generate-and-remediate cycle for every product.
func (p *Processor) GenerateAll(
	ctx context.Context,
	products []domain.ProductData,
	threshold float64,
) Result {
	start := time.Now()
	items := make([]ItemResult, len(products))

	p.forEach(ctx, len(products), func(ctx context.Context, i int) {
		product := products[i]
		items[i].ProductID = product.Handle

		outcome, err := p.orchestrator.Generate(ctx, product, threshold)
		if err != nil {
			items[i].Err = err.Error()
			return
		}

		items[i].Outcome = &outcome
	})

	return p.finish("generate", start, items)
}

// AuditAll re-audits the persisted markup of every listed bundle and
// persists the fresh audit records.
func (p *Processor) AuditAll(ctx context.Context, productIDs []string) Result {
	start := time.Now()
	items := make([]ItemResult, len(productIDs))

	p.forEach(ctx, len(productIDs), func(_ context.Context, i int) {
		id := productIDs[i]
		items[i].ProductID = id

		err := p.store.WithLock(id, func() error {
			result := p.auditor.AuditFile(p.store.HTMLPath(id), id)
			if err := p.store.WriteAudit(id, result); err != nil {
				return err
			}

			// Attached only once persisted, so the item never reports a
			// record that is not on disk.
			items[i].Audit = &result

			return nil
		})
		if err != nil {
			items[i].Err = err.Error()
		}
	})

	return p.finish("audit", start, items)
}

// FixAll remediates every persisted bundle whose audit score is below
// minScore.
func (p *Processor) FixAll(ctx context.Context, minScore float64) (Result, error) {
	start := time.Now()

	ids, err := p.store.List()
	if err != nil {
		return Result{}, err
	}

	var flagged []string

	for _, id := range ids {
		auditResult, readErr := p.store.ReadAudit(id)
		if readErr != nil || auditResult.Score < minScore {
			flagged = append(flagged, id)
		}
	}

	items := make([]ItemResult, len(flagged))

	p.forEach(ctx, len(flagged), func(ctx context.Context, i int) {
		id := flagged[i]
		items[i].ProductID = id

		outcome, fixErr := p.orchestrator.Fix(ctx, id, minScore)
		if fixErr != nil {
			items[i].Err = fixErr.Error()
			return
		}

		items[i].Outcome = &outcome
	})

	return p.finish("fix", start, items), nil
}

// ValidateAll runs the weighted schema validator over every persisted bundle.
func (p *Processor) ValidateAll(ctx context.Context) (Result, error) {
	start := time.Now()

	ids, err := p.store.List()
	if err != nil {
		return Result{}, err
	}

	items := make([]ItemResult, len(ids))

	p.forEach(ctx, len(ids), func(_ context.Context, i int) {
		id := ids[i]
		items[i].ProductID = id

		report := p.validator.Validate(id)
		items[i].Report = &report

		if report.Error != "" && !report.SchemaFound {
			// Recorded for the failure count; the report itself carries the
			// explanation.
			items[i].Err = report.Error
		}
	})

	return p.finish("validate", start, items), nil
}

// forEach runs fn for every index with bounded parallelism. Item ordering is
// by index; completion order is not defined.
func (p *Processor) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.concurrency)

	for i := 0; i < n; i++ {
		i := i
		group.Go(func() error {
			fn(groupCtx, i)
			return nil
		})
	}

	// Workers never return errors; failures land in their item results.
	_ = group.Wait()
}

func (p *Processor) finish(operation string, start time.Time, items []ItemResult) Result {
	result := Result{
		RunID:     uuid.NewString(),
		Operation: operation,
		Duration:  time.Since(start).Seconds(),
		Items:     items,
	}

	for _, item := range items {
		if item.Err != "" {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}

	p.log.Info("batch complete",
		"run_id", result.RunID,
		"operation", operation,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)

	return result
}
