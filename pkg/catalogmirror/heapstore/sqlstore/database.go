package sqlstore

import (
	"gorm.io/gorm"

	"github.com/rimdb/rim/internal/cas/conn"
	"github.com/rimdb/rim/pkg/caserr"
)

// Connection is the conn.DBConnection a CAS session holds for the
// lifetime of a client's database connect (spec §4.6 step 6): one GORM
// session plus any open transaction.
type Connection struct {
	store *Store
	db    *gorm.DB
	tx    *gorm.DB

	dbName, user, host string
	clientType         conn.ClientType
}

// Close implements conn.DBConnection. It rolls back any open
// transaction; the Store's shared connection pool stays open (Store.Close
// releases it).
func (c *Connection) Close() error {
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	return nil
}

// session returns the GORM handle to run the next statement against:
// the open transaction if one exists, otherwise the plain connection.
func (c *Connection) session() *gorm.DB {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

// Connect implements conn.Database. Every CAS client connection gets its
// own *gorm.DB.Session so statement-level state (prepared statements,
// transactions) doesn't leak across sessions sharing the pool.
func (s *Store) Connect(dbName, user, passwd, host string, clientType conn.ClientType) (conn.DBConnection, error) {
	return &Connection{
		store:      s,
		db:         s.db.Session(&gorm.Session{}),
		dbName:     dbName,
		user:       user,
		host:       host,
		clientType: clientType,
	}, nil
}

// EndTransaction implements conn.TransactionManager, committing or
// rolling back the connection's open transaction per the dispatcher's
// auto-commit decision (spec §4.7 step 4).
func (s *Store) EndTransaction(c conn.DBConnection, commit bool) error {
	sc, ok := c.(*Connection)
	if !ok {
		return caserr.New(caserr.CodeInternal, "end transaction: unexpected connection type %T", c)
	}
	if sc.tx == nil {
		return nil
	}
	var err error
	if commit {
		err = sc.tx.Commit().Error
	} else {
		err = sc.tx.Rollback().Error
	}
	sc.tx = nil
	if err != nil {
		return caserr.New(caserr.CodeInternal, "end transaction: %v", err)
	}
	return nil
}

// Shutdown implements conn.TransactionManager when a client disconnects
// (spec §4.6 "clean exit sequence") by calling c.Close, which rolls back
// any open transaction; the shared pool is not closed.
func (s *Store) Shutdown(c conn.DBConnection) error {
	return c.Close()
}

// beginIfNeeded lazily starts a transaction the first time a statement
// runs out-of-transaction, mirroring the implicit BEGIN semantics the
// dispatcher's auto-commit bookkeeping expects.
func (c *Connection) beginIfNeeded() *gorm.DB {
	if c.tx == nil {
		c.tx = c.db.Begin()
	}
	return c.tx
}
