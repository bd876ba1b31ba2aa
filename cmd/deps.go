package cmd

import (
	"fmt"

	"github.com/jonesrussell/structr/internal/audit"
	"github.com/jonesrussell/structr/internal/batch"
	"github.com/jonesrussell/structr/internal/bundle"
	"github.com/jonesrussell/structr/internal/config"
	"github.com/jonesrussell/structr/internal/extract"
	"github.com/jonesrussell/structr/internal/llm"
	"github.com/jonesrussell/structr/internal/logger"
	"github.com/jonesrussell/structr/internal/remediate"
	"github.com/jonesrussell/structr/internal/schema"
)

// app wires the pipeline components for a command invocation.
type app struct {
	cfg          *config.Config
	log          logger.Interface
	store        *bundle.Store
	auditor      *audit.Auditor
	validator    *schema.Validator
	service      *llm.Service
	orchestrator *remediate.Orchestrator
	processor    *batch.Processor
}

// newApp builds the full dependency graph from configuration. Storage that
// cannot be created is fatal and surfaced here.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := bundle.NewStore(cfg.BundlesDir(), log)
	if err != nil {
		return nil, err
	}

	extractor := extract.New()
	auditor := audit.New(extractor)
	validator := schema.NewValidator(store, extractor, log)

	client := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, log)
	service := llm.NewService(client, extractor, log)

	orchestrator := remediate.New(service, auditor, store, log, cfg.Remediation.MaxFixAttempts)
	processor := batch.NewProcessor(orchestrator, auditor, validator, store, log, cfg.Concurrency)

	return &app{
		cfg:          cfg,
		log:          log,
		store:        store,
		auditor:      auditor,
		validator:    validator,
		service:      service,
		orchestrator: orchestrator,
		processor:    processor,
	}, nil
}
