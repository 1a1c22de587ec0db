// Package store implements the graph accessor on a relational database via GORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"scholargraph/backend/internal/domain"
	"scholargraph/backend/pkg/config"
	apperrors "scholargraph/backend/pkg/errors"
)

// Store is a domain.Store backed by postgres, mysql or sqlite
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ domain.Store = (*Store)(nil)

// Open connects to the database selected by DB_TYPE and DB_DSN
func Open(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector

	switch cfg.DBType {
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DBDSN)
	case "mysql", "mariadb":
		dialector = mysql.Open(cfg.DBDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}

	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(max(cfg.DBMaxOpenConns/2, 1))
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("Connected to SQL database", zap.String("type", cfg.DBType))

	return New(db, logger), nil
}

// New wraps an open GORM handle
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// Migrate creates or updates every table
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	s.logger.Info("SQL schema migrated", zap.Int("tables", len(allModels())))
	return nil
}

// Reset drops and recreates every table
func (s *Store) Reset(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Migrator().DropTable(allModels()...); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	s.logger.Warn("SQL tables dropped")
	return s.Migrate(ctx)
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newID() string {
	return uuid.New().String()
}

// unavailable wraps a driver failure. Errors that already carry a category pass through.
func unavailable(op string, err error) error {
	if _, ok := apperrors.TypeOf(err); ok {
		return err
	}
	return apperrors.NewUnavailable(op, fmt.Errorf("%s: %w", op, err))
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// orEmpty keeps JSON encoding of empty lists as [] rather than null
func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
