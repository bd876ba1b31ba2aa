package llm

import (
	"context"
	"time"

	"github.com/jonesrussell/structr/internal/domain"
	"github.com/jonesrussell/structr/internal/extract"
	"github.com/jonesrussell/structr/internal/logger"
)

// Service generates and repairs PDP bundles through the generation endpoint.
type Service struct {
	client    *Client
	extractor *extract.Extractor
	log       logger.Interface
}

// NewService creates a generation service.
func NewService(client *Client, extractor *extract.Extractor, log logger.Interface) *Service {
	return &Service{
		client:    client,
		extractor: extractor,
		log:       log.WithComponent("generation"),
	}
}

// Model returns the identifier of the generation model in use.
func (s *Service) Model() string { return s.client.Model() }

// Generate produces a complete bundle for the product. The returned bundle
// carries a placeholder zero-score audit record; the caller is responsible
// for auditing. The Result reports whether the call degraded to the sentinel
// document.
func (s *Service) Generate(ctx context.Context, product domain.ProductData) (domain.PDPBundle, Result) {
	start := time.Now()

	result := s.client.Complete(ctx, buildGenerationPrompt(product))
	html := result.MarkupOrSentinel()

	metadata, schemaMarkup := s.extractor.Extract(html)

	bundle := domain.PDPBundle{
		ProductID:      product.Handle,
		HTMLContent:    html,
		Metadata:       metadata,
		SchemaMarkup:   schemaMarkup,
		AuditResult:    domain.NewAuditResult(product.Handle),
		GenerationTime: time.Since(start).Seconds(),
		ModelUsed:      s.client.Model(),
		Timestamp:      time.Now(),
	}

	if result.Degraded() {
		s.log.Warn("generation degraded to sentinel markup",
			"product_id", product.Handle,
			"reason", result.Failure.Error(),
		)
	} else {
		s.log.Info("generated bundle",
			"product_id", product.Handle,
			"generation_time", bundle.GenerationTime,
		)
	}

	return bundle, result
}

// Fix asks the generation endpoint to repair only the issues enumerated in
// the audit result. The same sanitation and degradation contract as Generate
// applies.
func (s *Service) Fix(
	ctx context.Context,
	product domain.ProductData,
	auditResult domain.AuditResult,
	currentHTML string,
) Result {
	return s.client.Complete(ctx, buildFixPrompt(product, auditResult, currentHTML))
}
