// Package bundle persists PDP bundles as one directory per product:
// markup, audit record, generation record, and fix history.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonesrussell/structr/internal/domain"
	"github.com/jonesrussell/structr/internal/logger"
)

// Standard file names inside a bundle directory.
const (
	HTMLFile   = "index.html"
	AuditFile  = "audit.json"
	SyncFile   = "sync.json"
	FixLogFile = "fix_log.json"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrNotFound is returned when a bundle or one of its files does not exist.
var ErrNotFound = errors.New("bundle not found")

// Store is a file-backed bundle store. Writes to the same product are
// serialized through WithLock; distinct products are independent.
type Store struct {
	root  string
	locks *keyedLocks
	log   logger.Interface
}

// NewStore opens (creating if needed) a store rooted at dir. An unusable
// root is a configuration failure and is returned as an error rather than
// degraded around.
func NewStore(dir string, log logger.Interface) (*Store, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create bundle store root %s: %w", dir, err)
	}

	return &Store{
		root:  dir,
		locks: newKeyedLocks(),
		log:   log.WithComponent("bundle-store"),
	}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// Path returns the directory for a product's bundle.
func (s *Store) Path(productID string) string {
	return filepath.Join(s.root, productID)
}

// HTMLPath returns the markup file path for a product's bundle.
func (s *Store) HTMLPath(productID string) string {
	return filepath.Join(s.root, productID, HTMLFile)
}

// Exists reports whether a bundle directory exists for the product.
func (s *Store) Exists(productID string) bool {
	info, err := os.Stat(s.Path(productID))

	return err == nil && info.IsDir()
}

// List returns the ids of all persisted bundles.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}

	return ids, nil
}

// WithLock runs fn while holding the product's lock, guaranteeing at most
// one in-flight generate/fix cycle per product identifier.
func (s *Store) WithLock(productID string, fn func() error) error {
	unlock := s.locks.lock(productID)
	defer unlock()

	return fn()
}

// WriteBundle persists a freshly generated bundle: markup, audit record,
// and generation record. The bundle's files are self-consistent after a
// successful write.
func (s *Store) WriteBundle(bundle domain.PDPBundle, product domain.ProductData) error {
	if bundle.AuditResult.ProductID != bundle.ProductID {
		return fmt.Errorf("bundle %s: audit result belongs to %s",
			bundle.ProductID, bundle.AuditResult.ProductID)
	}

	dir := s.Path(bundle.ProductID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	if err := s.WriteHTML(bundle.ProductID, bundle.HTMLContent); err != nil {
		return err
	}

	if err := s.WriteAudit(bundle.ProductID, bundle.AuditResult); err != nil {
		return err
	}

	record := domain.GenerationRecord{
		Input: product,
		Output: domain.GenerationOutput{
			GenerationTime: bundle.GenerationTime,
			ModelUsed:      bundle.ModelUsed,
			Timestamp:      bundle.Timestamp,
		},
	}

	if err := s.writeJSON(filepath.Join(dir, SyncFile), record); err != nil {
		return err
	}

	s.log.Debug("bundle written", "product_id", bundle.ProductID, "path", dir)

	return nil
}

// WriteHTML overwrites a bundle's markup file.
func (s *Store) WriteHTML(productID, html string) error {
	if err := os.MkdirAll(s.Path(productID), dirPerm); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	if err := os.WriteFile(s.HTMLPath(productID), []byte(html), filePerm); err != nil {
		return fmt.Errorf("write markup: %w", err)
	}

	return nil
}

// ReadHTML loads a bundle's markup.
func (s *Store) ReadHTML(productID string) (string, error) {
	data, err := os.ReadFile(s.HTMLPath(productID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, productID)
		}

		return "", fmt.Errorf("read markup: %w", err)
	}

	return string(data), nil
}

// WriteAudit overwrites a bundle's audit record.
func (s *Store) WriteAudit(productID string, result domain.AuditResult) error {
	return s.writeJSON(filepath.Join(s.Path(productID), AuditFile), result)
}

// ReadAudit loads a bundle's audit record.
func (s *Store) ReadAudit(productID string) (domain.AuditResult, error) {
	var result domain.AuditResult
	if err := s.readJSON(filepath.Join(s.Path(productID), AuditFile), &result); err != nil {
		return domain.AuditResult{}, err
	}

	return result, nil
}

// ReadGenerationRecord loads a bundle's generation record.
func (s *Store) ReadGenerationRecord(productID string) (domain.GenerationRecord, error) {
	var record domain.GenerationRecord
	if err := s.readJSON(filepath.Join(s.Path(productID), SyncFile), &record); err != nil {
		return domain.GenerationRecord{}, err
	}

	return record, nil
}

// AppendFixRecord appends one entry to the bundle's fix history. A history
// persisted as a single record is upgraded to a sequence.
func (s *Store) AppendFixRecord(productID string, record domain.FixRecord) error {
	history, err := s.ReadFixHistory(productID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		// Unreadable history is replaced rather than lost silently.
		s.log.Warn("resetting unreadable fix history", "product_id", productID, "error", err)
		history = nil
	}

	history = append(history, record)

	return s.writeJSON(filepath.Join(s.Path(productID), FixLogFile), history)
}

// ReadFixHistory loads a bundle's ordered fix history.
func (s *Store) ReadFixHistory(productID string) ([]domain.FixRecord, error) {
	path := filepath.Join(s.Path(productID), FixLogFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, productID)
		}

		return nil, fmt.Errorf("read fix history: %w", err)
	}

	var history []domain.FixRecord
	if err := json.Unmarshal(data, &history); err == nil {
		return history, nil
	}

	var single domain.FixRecord
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("parse fix history: %w", err)
	}

	return []domain.FixRecord{single}, nil
}

func (s *Store) writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	return nil
}

func (s *Store) readJSON(path string, into any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	return nil
}
