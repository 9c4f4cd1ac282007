// Package audit persists session lifecycle events (connect, finish,
// per-command counts) for operational visibility, implementing
// session.AuditSink.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/duraqio/duraq/internal/audit/migrations"
	"github.com/duraqio/duraq/internal/config"
	"github.com/duraqio/duraq/internal/logger"
)

// Store wraps a GORM connection; Logger is the session.AuditSink built on it.
type Store struct {
	db *gorm.DB
}

// Open connects to the audit database named by cfg, applies schema (GORM
// AutoMigrate for sqlite, golang-migrate for postgres) and returns a Store.
// cfg.Enabled is the caller's concern; Open always connects when called.
func Open(cfg config.AuditConfig) (*Store, error) {
	switch cfg.Driver {
	case "postgres":
		return openPostgres(cfg)
	case "sqlite", "":
		return openSQLite(cfg)
	default:
		return nil, fmt.Errorf("audit: unsupported driver %q", cfg.Driver)
	}
}

func openSQLite(cfg config.AuditConfig) (*Store, error) {
	path := cfg.DSN
	if path == "" {
		return nil, fmt.Errorf("audit: sqlite driver requires a dsn (file path)")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("audit: create sqlite directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("audit: auto-migrate sqlite schema: %w", err)
	}

	return &Store{db: db}, nil
}

func openPostgres(cfg config.AuditConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("audit: postgres driver requires a dsn")
	}

	if err := runPostgresMigrations(cfg); err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// runPostgresMigrations applies the embedded (or, when cfg.MigrationsPath
// is set, on-disk) SQL migrations via golang-migrate, guarded by
// Postgres's own advisory-lock mechanism so multiple duraqd instances
// starting concurrently don't race each other's schema changes.
func runPostgresMigrations(cfg config.AuditConfig) error {
	sqlDB, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("audit: open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("audit: ping database: %w", err)
	}

	driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{
		MigrationsTable: "duraq_audit_schema_migrations",
		DatabaseName:    "duraq_audit",
	})
	if err != nil {
		return fmt.Errorf("audit: create postgres migrate driver: %w", err)
	}

	var m *migrate.Migrate
	if cfg.MigrationsPath != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+cfg.MigrationsPath, "postgres", driver)
	} else {
		sourceDriver, ioErr := iofs.New(migrations.FS, ".")
		if ioErr != nil {
			return fmt.Errorf("audit: create embedded migration source: %w", ioErr)
		}
		m, err = migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	}
	if err != nil {
		return fmt.Errorf("audit: create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("audit: apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("audit: read migration version: %w", err)
	}
	if dirty {
		logger.Warn("audit schema migration state is dirty", "version", version)
	}

	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the underlying GORM handle, for tests and advanced queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}
