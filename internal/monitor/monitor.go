// Package monitor runs scheduled compliance sweeps over persisted bundles
// and records score history for trend reporting.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/structr/internal/batch"
	"github.com/jonesrussell/structr/internal/logger"
)

// HistoryFile holds the recorded sweep snapshots under the monitoring dir.
const HistoryFile = "compliance_history.json"

// maxHistorySnapshots caps the persisted history length.
const maxHistorySnapshots = 500

// ComplianceRecord is one bundle's state at sweep time.
type ComplianceRecord struct {
	BundleID        string  `json:"bundle_id"`
	SchemaFound     bool    `json:"schema_found"`
	GoogleEligible  bool    `json:"google_eligible"`
	ComplianceScore float64 `json:"compliance_score"`
	TotalIssues     int     `json:"total_issues"`
}

// Snapshot is the result of one full sweep.
type Snapshot struct {
	Timestamp time.Time          `json:"timestamp"`
	Records   []ComplianceRecord `json:"records"`
}

// Validator runs the batch validation a sweep is built from.
type Validator interface {
	ValidateAll(ctx context.Context) (batch.Result, error)
}

// Monitor schedules compliance sweeps and raises alerts when a bundle loses
// eligibility or drops below the score floor.
type Monitor struct {
	validator  Validator
	dir        string
	alertFloor float64
	log        logger.Interface
	scheduler  *cron.Cron
}

// New creates a monitor writing history under dir. An unusable monitoring
// directory is a configuration failure.
func New(validator Validator, dir string, alertFloor float64, log logger.Interface) (*Monitor, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create monitoring dir %s: %w", dir, err)
	}

	return &Monitor{
		validator:  validator,
		dir:        dir,
		alertFloor: alertFloor,
		log:        log.WithComponent("monitor"),
	}, nil
}

// Start schedules sweeps with the given cron expression and runs one sweep
// immediately. Blocks until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context, schedule string) error {
	m.scheduler = cron.New()

	_, err := m.scheduler.AddFunc(schedule, func() {
		if _, sweepErr := m.Sweep(ctx); sweepErr != nil {
			m.log.Error("scheduled sweep failed", "error", sweepErr)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}

	if _, err := m.Sweep(ctx); err != nil {
		m.log.Error("initial sweep failed", "error", err)
	}

	m.scheduler.Start()
	m.log.Info("compliance monitor started", "schedule", schedule)

	<-ctx.Done()

	stopCtx := m.scheduler.Stop()
	<-stopCtx.Done()

	m.log.Info("compliance monitor stopped")

	return nil
}

// Sweep validates every bundle, compares against the previous snapshot, and
// appends the result to the history file.
func (m *Monitor) Sweep(ctx context.Context) (Snapshot, error) {
	result, err := m.validator.ValidateAll(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("sweep: %w", err)
	}

	snapshot := Snapshot{Timestamp: time.Now()}

	for _, item := range result.Items {
		if item.Report == nil {
			continue
		}

		record := ComplianceRecord{
			BundleID:        item.Report.BundleID,
			SchemaFound:     item.Report.SchemaFound,
			GoogleEligible:  item.Report.GoogleEligible,
			ComplianceScore: item.Report.ComplianceScore,
		}
		if item.Report.Summary != nil {
			record.TotalIssues = item.Report.Summary.TotalIssues
		}

		snapshot.Records = append(snapshot.Records, record)
	}

	history, err := m.History()
	if err != nil {
		m.log.Warn("could not load compliance history", "error", err)
	}

	m.checkAlerts(previousRecords(history), snapshot.Records)

	history = append(history, snapshot)
	if len(history) > maxHistorySnapshots {
		history = history[len(history)-maxHistorySnapshots:]
	}

	if err := m.writeHistory(history); err != nil {
		return snapshot, err
	}

	m.log.Info("compliance sweep recorded", "bundles", len(snapshot.Records))

	return snapshot, nil
}

// History loads all recorded snapshots. A missing history file yields an
// empty history.
func (m *Monitor) History() ([]Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, HistoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read history: %w", err)
	}

	var history []Snapshot
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}

	return history, nil
}

func (m *Monitor) writeHistory(history []Snapshot) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	path := filepath.Join(m.dir, HistoryFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	return nil
}

// previousRecords indexes the latest snapshot's records by bundle id.
func previousRecords(history []Snapshot) map[string]ComplianceRecord {
	if len(history) == 0 {
		return nil
	}

	latest := history[len(history)-1]
	records := make(map[string]ComplianceRecord, len(latest.Records))

	for _, record := range latest.Records {
		records[record.BundleID] = record
	}

	return records
}

// checkAlerts logs a warning for every bundle that regressed since the last
// sweep or sits below the score floor.
func (m *Monitor) checkAlerts(previous map[string]ComplianceRecord, current []ComplianceRecord) {
	for _, record := range current {
		if record.ComplianceScore < m.alertFloor {
			m.log.Warn("bundle below compliance floor",
				"bundle_id", record.BundleID,
				"compliance_score", record.ComplianceScore,
				"floor", m.alertFloor,
			)
		}

		prev, seen := previous[record.BundleID]
		if !seen {
			continue
		}

		if prev.GoogleEligible && !record.GoogleEligible {
			m.log.Warn("bundle lost rich-result eligibility",
				"bundle_id", record.BundleID,
				"previous_score", prev.ComplianceScore,
				"compliance_score", record.ComplianceScore,
			)
		}

		if prev.SchemaFound && !record.SchemaFound {
			m.log.Warn("bundle lost structured data",
				"bundle_id", record.BundleID,
			)
		}
	}
}
