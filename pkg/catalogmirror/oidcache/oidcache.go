// Package oidcache implements the class-oid -> row-oid cache from spec
// §4.4: "A process-wide hash protected by a critical section maps
// class_oid to the OID of its row in db_class. Entries are populated
// lazily on first lookup ... and invalidated on delete_class."
package oidcache

import (
	"sync"

	"github.com/rimdb/rim/pkg/oid"
)

// Cache is the interface the catalog mirror depends on, so a
// sync.RWMutex-backed default and a persistent (badger-backed) variant
// are interchangeable.
type Cache interface {
	// Get returns the cached row oid for classOID, if present.
	Get(classOID oid.OID) (oid.OID, bool)
	// Put populates the cache after a lazy lookup or a fresh insert.
	Put(classOID, rowOID oid.OID)
	// Invalidate drops classOID's entry (spec: "invalidated on delete_class").
	Invalidate(classOID oid.OID)
}

// memCache is the default in-memory cache: a plain map guarded by a
// reader/writer critical section, matching the original's
// "hash protected by a critical section" (spec §4.4) via sync.RWMutex
// rather than a custom lock.
type memCache struct {
	mu sync.RWMutex
	m  map[oid.OID]oid.OID
}

// New returns the default in-memory Cache.
func New() Cache {
	return &memCache{m: make(map[oid.OID]oid.OID)}
}

func (c *memCache) Get(classOID oid.OID) (oid.OID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, ok := c.m[classOID]
	return row, ok
}

func (c *memCache) Put(classOID, rowOID oid.OID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[classOID] = rowOID
}

func (c *memCache) Invalidate(classOID oid.OID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, classOID)
}
