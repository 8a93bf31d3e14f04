package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"empire_bot/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported journal drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Journal is an append-only log of how deposits ended.
// It is write-only from the sessions' point of view; nothing is replayed
// from it on startup.
type Journal struct {
	db *gorm.DB
}

// NewJournal opens (or creates) the journal at path. An empty path uses
// the per-user config directory.
func NewJournal(path string) (*Journal, error) {
	if path == "" {
		p, err := defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go SQLite
	return open(sqlite.Open(path))
}

// OpenJournal opens a journal for driver. target is a file path for sqlite
// and a DSN for postgres.
func OpenJournal(driver, target string) (*Journal, error) {
	switch driver {
	case "", DriverSQLite:
		return NewJournal(target)
	case DriverPostgres:
		if target == "" {
			return nil, fmt.Errorf("postgres journal requires a DSN")
		}
		return open(postgres.Open(target))
	default:
		return nil, fmt.Errorf("unsupported journal driver %q", driver)
	}
}

func open(dialector gorm.Dialector) (*Journal, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Journal{db: db}, nil
}

func defaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "EmpireBot", "data", "journal.db"), nil
}

var _ domain.Journal = (*Journal)(nil)

// Record appends rec, assigning an id and timestamp when missing.
func (j *Journal) Record(ctx context.Context, rec *domain.TradeRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return j.db.WithContext(ctx).Create(rec).Error
}

// ListByUser returns the newest records of an account, at most limit (0 = all).
func (j *Journal) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.TradeRecord, error) {
	var records []domain.TradeRecord
	q := j.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&records).Error
	return records, err
}

// CountByOutcome returns how many deposits of an account ended in each outcome.
func (j *Journal) CountByOutcome(ctx context.Context, userID int64) (map[string]int64, error) {
	var rows []struct {
		Outcome string
		Total   int64
	}
	err := j.db.WithContext(ctx).
		Model(&domain.TradeRecord{}).
		Select("outcome, COUNT(*) AS total").
		Where("user_id = ?", userID).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.Outcome] = r.Total
	}
	return result, nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
