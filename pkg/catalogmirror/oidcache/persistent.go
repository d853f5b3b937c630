package oidcache

import (
	"encoding/binary"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rimdb/rim/pkg/oid"
)

// persistentCache is a badger-backed Cache variant for deployments that
// want the class-oid -> row-oid map to survive a CAS restart rather than
// being rebuilt by lazy lookups on every process start. badger already
// serializes concurrent access internally, so no extra critical section
// is needed at this layer.
type persistentCache struct {
	db *badger.DB
}

// NewPersistent opens (or creates) a badger store at dir for the
// class-oid cache.
func NewPersistent(dir string) (Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("oidcache: open badger store: %w", err)
	}
	return &persistentCache{db: db}, nil
}

func (c *persistentCache) Close() error {
	return c.db.Close()
}

func oidKey(o oid.OID) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:4], uint32(o.VolumeID))
	binary.BigEndian.PutUint32(b[4:8], uint32(o.PageID))
	binary.BigEndian.PutUint16(b[8:10], uint16(o.SlotID))
	return b
}

func oidValue(o oid.OID) []byte {
	b := make([]byte, 10)
	binary.BigEndian.PutUint32(b[0:4], uint32(o.VolumeID))
	binary.BigEndian.PutUint32(b[4:8], uint32(o.PageID))
	binary.BigEndian.PutUint16(b[8:10], uint16(o.SlotID))
	return b
}

func parseOIDValue(b []byte) oid.OID {
	return oid.OID{
		VolumeID: int32(binary.BigEndian.Uint32(b[0:4])),
		PageID:   int32(binary.BigEndian.Uint32(b[4:8])),
		SlotID:   int16(binary.BigEndian.Uint16(b[8:10])),
	}
}

func (c *persistentCache) Get(classOID oid.OID) (oid.OID, bool) {
	var row oid.OID
	var found bool
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(oidKey(classOID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			row = parseOIDValue(val)
			found = true
			return nil
		})
	})
	if err != nil {
		return oid.Null, false
	}
	return row, found
}

func (c *persistentCache) Put(classOID, rowOID oid.OID) {
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(oidKey(classOID), oidValue(rowOID))
	})
}

func (c *persistentCache) Invalidate(classOID oid.OID) {
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(oidKey(classOID))
	})
}
