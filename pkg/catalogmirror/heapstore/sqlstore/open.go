package sqlstore

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rimdb/rim/pkg/caserr"
)

// Store is the GORM-backed adapter implementing catalogmirror.HeapStore,
// catalogmirror.IndexStore, conn.Database, and conn.TransactionManager
// over either SQLite (tests, single-node dev) or Postgres (spec §1's
// "storage out of scope" leaves the choice to the deployment).
type Store struct {
	db *gorm.DB
}

// Open dials driver ("sqlite" or "postgres") using dsn and returns a
// Store ready for AutoMigrate or golang-migrate migrations.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, caserr.New(caserr.CodeArgs, "unknown database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, caserr.New(caserr.CodeCommunication, "open %s database: %v", driver, err)
	}
	return &Store{db: db}, nil
}

// AutoMigrate creates every table sqlstore owns. Intended for SQLite dev/
// test setups; Postgres deployments should run the golang-migrate
// migrations in migrations/ instead (see Migrate).
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(AllModels...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// Close releases the underlying *sql.DB connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SetPool applies connection-pool sizing from config.DatabaseConfig.
func (s *Store) SetPool(maxOpen, maxIdle int) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	return nil
}
