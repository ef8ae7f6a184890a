package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/graph-analytics/pkg/config"
	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/telemetry"
)

// DBType represents the database type.
type DBType string

const (
	DBTypePostgres DBType = "postgres"
	DBTypeMySQL    DBType = "mysql"
	DBTypeSQLite   DBType = "sqlite"
)

// ParseDBType normalizes a configured database type.
func ParseDBType(s string) (DBType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql":
		return DBTypePostgres, nil
	case "mysql":
		return DBTypeMySQL, nil
	case "sqlite", "sqlite3":
		return DBTypeSQLite, nil
	default:
		return "", apperrors.Newf(apperrors.CodeConfigError, "unsupported database type: %s", s)
	}
}

func dialectorFor(dbType DBType, cfg *config.DatabaseConfig) gorm.Dialector {
	switch dbType {
	case DBTypePostgres:
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)
		return postgres.Open(dsn)
	case DBTypeMySQL:
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)
		return mysql.Open(dsn)
	default:
		return sqlite.Open(cfg.Path)
	}
}

// NewGormDB creates a new GORM database connection based on configuration.
func NewGormDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dbType, err := ParseDBType(cfg.Type)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(dialectorFor(dbType, cfg), gormConfig)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to open database", err)
	}

	// Enable OpenTelemetry tracing if OTEL_ENABLED=true
	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to enable telemetry", err)
		}
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to get underlying sql.DB", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	if dbType == DBTypeSQLite {
		// every sqlite connection to :memory: is a separate database
		maxConns = 1
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(max(maxConns/2, 1))
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to ping database", err)
	}

	return db, nil
}

// Repositories holds all repository instances.
type Repositories struct {
	Runs    RunRepository
	Summary SummaryRepository
	gormDB  *gorm.DB
	runs    *GormRunRepository
	dbType  DBType
}

// NewRepositories creates all repositories over one GORM connection.
func NewRepositories(gormDB *gorm.DB, dbType DBType) *Repositories {
	runs := NewGormRunRepository(gormDB)
	sqlDB, _ := gormDB.DB()
	return &Repositories{
		Runs:    runs,
		Summary: NewSQLSummaryRepository(sqlDB, dbType),
		gormDB:  gormDB,
		runs:    runs,
		dbType:  dbType,
	}
}

// Open connects to the configured database, migrates the schema and
// returns the repositories.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Repositories, error) {
	dbType, err := ParseDBType(cfg.Type)
	if err != nil {
		return nil, err
	}
	db, err := NewGormDB(cfg)
	if err != nil {
		return nil, err
	}
	repos := NewRepositories(db, dbType)
	if err := repos.Migrate(ctx); err != nil {
		repos.Close()
		return nil, err
	}
	return repos, nil
}

// Migrate creates or updates every table.
func (r *Repositories) Migrate(ctx context.Context) error {
	return r.runs.Migrate(ctx)
}

// Close closes the database connection.
func (r *Repositories) Close() error {
	if r.gormDB != nil {
		sqlDB, err := r.gormDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// HealthCheck verifies the database connection is still alive.
func (r *Repositories) HealthCheck(ctx context.Context) error {
	sqlDB, err := r.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB returns the underlying sql.DB connection.
func (r *Repositories) DB() *sql.DB {
	sqlDB, _ := r.gormDB.DB()
	return sqlDB
}

// Type returns the database type.
func (r *Repositories) Type() DBType {
	return r.dbType
}
