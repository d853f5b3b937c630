package config

import (
	"fmt"

	"github.com/rimdb/rim/internal/cas/auth"
	"github.com/rimdb/rim/pkg/catalogmirror/heapstore/sqlstore"
	"github.com/rimdb/rim/pkg/catalogmirror/oidcache"
)

// NewOIDCache builds the class-oid cache the catalog table mirror
// consults on every class lookup (spec §4.4), per cfg.OIDCacheKind.
func NewOIDCache(cfg CatalogMirrorConfig) (oidcache.Cache, error) {
	switch cfg.OIDCacheKind {
	case "memory":
		return oidcache.New(), nil
	case "persistent":
		if cfg.OIDCacheDir == "" {
			return nil, fmt.Errorf("persistent oid cache requires catalog_mirror.oid_cache_dir")
		}
		return oidcache.NewPersistent(cfg.OIDCacheDir)
	default:
		return nil, fmt.Errorf("unknown catalog mirror oid cache kind: %q", cfg.OIDCacheKind)
	}
}

// NewReplicationValidator builds the shared-key validator for the
// replication-broker client type, or nil if replication is disabled
// (spec §4.6).
func NewReplicationValidator(cfg ReplicationConfig) (*auth.ReplicationValidator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.SharedKeySecret == "" {
		return nil, fmt.Errorf("replication.shared_key_secret is required when replication.enabled is true")
	}
	return auth.NewReplicationValidator([]byte(cfg.SharedKeySecret)), nil
}

// NewHeapStore opens the relational heap store cfg.Database describes,
// sizes its connection pool, and brings its schema up to date: sqlite
// gets AutoMigrate (dev/test, no external migration tooling needed);
// postgres gets the golang-migrate-driven schema in sqlstore/migrations.
func NewHeapStore(cfg DatabaseConfig) (*sqlstore.Store, error) {
	store, err := sqlstore.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open heap store: %w", err)
	}

	if err := store.SetPool(cfg.MaxOpenConns, cfg.MaxIdleConns); err != nil {
		return nil, fmt.Errorf("configure heap store pool: %w", err)
	}

	switch cfg.Driver {
	case "sqlite":
		if err := store.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("migrate heap store: %w", err)
		}
	case "postgres":
		if err := store.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate heap store: %w", err)
		}
	}

	return store, nil
}
