// Package remediate drives the generate, audit, fix, re-audit cycle for a
// product until its score clears a threshold or the attempt budget runs out.
package remediate

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/structr/internal/audit"
	"github.com/jonesrussell/structr/internal/bundle"
	"github.com/jonesrussell/structr/internal/domain"
	"github.com/jonesrussell/structr/internal/llm"
	"github.com/jonesrussell/structr/internal/logger"
)

// Defaults for the remediation loop.
const (
	// DefaultMaxFixAttempts bounds the fix cycle. Three attempts matches the
	// generation service's own retry budget; beyond that the model is judged
	// unable to resolve the remaining issues.
	DefaultMaxFixAttempts = 3

	// DefaultThreshold is the audit score at which remediation stops.
	DefaultThreshold = 80.0
)

// Status is the terminal state of a remediation run.
type Status string

// Terminal states.
const (
	// StatusConverged means the audit score reached the threshold.
	StatusConverged Status = "converged"

	// StatusExhausted means the attempt budget ran out or the score stopped
	// improving between consecutive attempts.
	StatusExhausted Status = "exhausted"
)

// Outcome summarizes one remediation run.
type Outcome struct {
	ProductID    string             `json:"product_id"`
	Status       Status             `json:"status"`
	InitialScore float64            `json:"initial_score"`
	FinalScore   float64            `json:"final_score"`
	FixAttempts  int                `json:"fix_attempts"`
	Degraded     bool               `json:"degraded"`
	FinalAudit   domain.AuditResult `json:"final_audit"`
}

// Orchestrator coordinates the generation service, auditor, and bundle store.
type Orchestrator struct {
	service     *llm.Service
	auditor     *audit.Auditor
	store       *bundle.Store
	log         logger.Interface
	maxAttempts int
}

// New creates an orchestrator. maxFixAttempts <= 0 selects the default bound.
func New(
	service *llm.Service,
	auditor *audit.Auditor,
	store *bundle.Store,
	log logger.Interface,
	maxFixAttempts int,
) *Orchestrator {
	if maxFixAttempts <= 0 {
		maxFixAttempts = DefaultMaxFixAttempts
	}

	return &Orchestrator{
		service:     service,
		auditor:     auditor,
		store:       store,
		log:         log.WithComponent("remediate"),
		maxAttempts: maxFixAttempts,
	}
}

// Generate runs the full cycle for a product: generate, audit, persist, then
// fix until converged or exhausted. The product's bundle lock is held for the
// whole cycle so concurrent requests for the same handle serialize.
func (o *Orchestrator) Generate(
	ctx context.Context,
	product domain.ProductData,
	threshold float64,
) (Outcome, error) {
	if err := product.Validate(); err != nil {
		return Outcome{}, err
	}

	var outcome Outcome

	err := o.store.WithLock(product.Handle, func() error {
		generated, genResult := o.service.Generate(ctx, product)

		generated.AuditResult = o.auditor.AuditHTML(generated.HTMLContent, product.Handle)
		if err := o.store.WriteBundle(generated, product); err != nil {
			return err
		}

		outcome = o.fixLoop(ctx, product, generated.HTMLContent, generated.AuditResult, threshold)
		outcome.Degraded = outcome.Degraded || genResult.Degraded()

		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("generate %s: %w", product.Handle, err)
	}

	return outcome, nil
}

// Fix remediates an already-persisted bundle, loading the product input and
// current state from the store.
func (o *Orchestrator) Fix(ctx context.Context, productID string, threshold float64) (Outcome, error) {
	var outcome Outcome

	err := o.store.WithLock(productID, func() error {
		record, err := o.store.ReadGenerationRecord(productID)
		if err != nil {
			return err
		}

		html, err := o.store.ReadHTML(productID)
		if err != nil {
			return err
		}

		current, err := o.store.ReadAudit(productID)
		if err != nil {
			// A bundle without an audit record gets a fresh one.
			current = o.auditor.AuditHTML(html, productID)
			if writeErr := o.store.WriteAudit(productID, current); writeErr != nil {
				return writeErr
			}
		}

		outcome = o.fixLoop(ctx, record.Input, html, current, threshold)

		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("fix %s: %w", productID, err)
	}

	return outcome, nil
}

// fixLoop repeats fix and re-audit until the score clears the threshold,
// fails to improve, or the attempt budget is spent. Caller holds the bundle
// lock.
func (o *Orchestrator) fixLoop(
	ctx context.Context,
	product domain.ProductData,
	html string,
	current domain.AuditResult,
	threshold float64,
) Outcome {
	outcome := Outcome{
		ProductID:    product.Handle,
		InitialScore: current.Score,
		FinalScore:   current.Score,
		FinalAudit:   current,
	}

	for current.Score < threshold && outcome.FixAttempts < o.maxAttempts {
		select {
		case <-ctx.Done():
			outcome.Status = StatusExhausted
			return outcome
		default:
		}

		start := time.Now()
		fixResult := o.service.Fix(ctx, product, current, html)
		outcome.FixAttempts++
		outcome.Degraded = outcome.Degraded || fixResult.Degraded()

		html = fixResult.MarkupOrSentinel()
		next := o.auditor.AuditHTML(html, product.Handle)

		o.persistFix(product, current, next, time.Since(start).Seconds(), html)

		o.log.Info("fix attempt complete",
			"product_id", product.Handle,
			"attempt", outcome.FixAttempts,
			"previous_score", current.Score,
			"new_score", next.Score,
		)

		improved := next.Score > current.Score
		current = next
		outcome.FinalScore = current.Score
		outcome.FinalAudit = current

		if !improved {
			break
		}
	}

	if current.Score >= threshold {
		outcome.Status = StatusConverged
	} else {
		outcome.Status = StatusExhausted
	}

	return outcome
}

// persistFix writes the repaired markup, the fresh audit record, and a fix
// history entry. Persistence failures are logged, not raised: the in-memory
// outcome is still reported to the caller.
func (o *Orchestrator) persistFix(
	product domain.ProductData,
	previous, next domain.AuditResult,
	fixTime float64,
	html string,
) {
	if err := o.store.WriteHTML(product.Handle, html); err != nil {
		o.log.Error("persist fixed markup failed", "product_id", product.Handle, "error", err)
		return
	}

	if err := o.store.WriteAudit(product.Handle, next); err != nil {
		o.log.Error("persist audit failed", "product_id", product.Handle, "error", err)
		return
	}

	record := domain.FixRecord{
		Timestamp:     time.Now(),
		ProductID:     product.Handle,
		IssuesFixed:   domain.SummarizeIssues(previous),
		OriginalScore: previous.Score,
		NewScore:      next.Score,
		FixTime:       fixTime,
		ModelUsed:     o.service.Model(),
	}

	if err := o.store.AppendFixRecord(product.Handle, record); err != nil {
		o.log.Error("append fix record failed", "product_id", product.Handle, "error", err)
	}
}
