package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultLimit bounds Query when the filter sets no limit.
const DefaultLimit = 100

// Store keeps audit entries in a SQL database through gorm.
type Store struct {
	db *gorm.DB
}

// Filter narrows a Query. Zero values are unconstrained.
type Filter struct {
	Action string
	Limit  int
}

// Open connects to dsn, which is either a postgres URL/keyword DSN or
// "sqlite:<path>".
func Open(ctx context.Context, dsn string) (*Store, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	case dsn == "":
		return nil, fmt.Errorf("audit: empty dsn")
	default:
		dialector = postgres.Open(dsn)
	}

	database, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}

	return NewStore(database), nil
}

// NewStore wraps an existing gorm session.
func NewStore(database *gorm.DB) *Store {
	return &Store{db: database}
}

// Migrate creates or updates the audit table.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Entry{})
}

// Record inserts e.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return fmt.Errorf("audit: record %s: %w", e.Action, err)
	}
	return nil
}

// Query returns entries newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}

	var entries []Entry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	return entries, nil
}

// Close releases the underlying sql.DB.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
