package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"encore/internal/config"
)

// Store wraps the gorm handle and exposes the typed queries the import
// pipeline needs. Methods take a context and never leak gorm errors other
// than through the error return.
type Store struct {
	db *gorm.DB
}

// Open initializes or connects to the record store database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return openPath(cfg.DatabasePath())
}

// OpenPath opens a store at an explicit database path. Tests use this with a
// temp directory.
func OpenPath(path string) (*Store, error) {
	return openPath(path)
}

func openPath(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.AutoMigrate(
		&Song{},
		&Chart{},
		&Score{},
		&PBScore{},
		&Session{},
		&Goal{},
		&UserGoal{},
		&Milestone{},
		&UserMilestone{},
		&UserGameStats{},
		&ImportDocument{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) ctx(ctx context.Context) *gorm.DB {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx)
}
