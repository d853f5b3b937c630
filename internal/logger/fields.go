package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// These keys are designed to be protocol-agnostic across CAS function
// codes and CRE catalog operations.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Protocol & Operation (protocol-agnostic)
	// ========================================================================
	KeyProtocol  = "protocol"   // Protocol type: cas, broker-handoff, etc.
	KeyProcedure = "procedure"  // Operation/procedure name: PREPARE, EXECUTE, FETCH, etc.
	KeyHandle    = "handle"     // Statement/cursor handle id
	KeyShare     = "share"      // Database alias/catalog name the connection targets
	KeyStatus    = "status"     // Operation status code (protocol-specific)
	KeyStatusMsg = "status_msg" // Human-readable status message

	// ========================================================================
	// CAS Function Dispatch
	// ========================================================================
	KeyFuncCode   = "func_code"   // Dispatched FuncCode name
	KeyTranStatus = "tran_status" // IN_TRAN / OUT_TRAN transition state
	KeyHoldable   = "holdable"    // Whether a result/cursor survives commit
	KeyStmtType   = "stmt_type"   // Prepared statement type code

	// ========================================================================
	// Class Representation / Catalog
	// ========================================================================
	KeyClassOID   = "class_oid"   // Class row OID (volume,page,slot,group)
	KeyReprID     = "repr_id"     // Class representation id (-1 = current)
	KeyAttrID     = "attr_id"     // Attribute id within a representation
	KeyCascadeLen = "cascade_len" // Catalog-mirror child rows touched by a cascade

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port
	KeyClientHost = "client_host" // Client hostname (if resolved)
	KeyUID        = "uid"         // User ID (Unix UID or mapped ID)
	KeyGID        = "gid"         // Group ID (Unix GID or mapped ID)
	KeyUsername   = "username"    // Username (SMB, WebDAV)
	KeyDomain     = "domain"      // Domain name (SMB, AD)
	KeyAuth       = "auth"        // Authentication method/flavor

	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeySessionID    = "session_id"    // Session identifier (SMB session, etc.)
	KeyConnectionID = "connection_id" // Connection identifier
	KeyRequestID    = "request_id"    // Protocol-specific request ID (XID, MessageID)

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeySource     = "source"      // Data source: cache, content_store, metadata_store
	KeyOperation  = "operation"   // Sub-operation type for complex operations

	// ========================================================================
	// Broker Handoff & Session
	// ========================================================================
	KeyBrokerName = "broker_name" // Broker process name that handed off the connection
	KeyCasSlot    = "cas_slot"    // CAS process slot index within the broker's shared memory
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// Transaction & Query
	// ========================================================================
	KeyTranID    = "tran_id"    // Transaction identifier
	KeyQueryID   = "query_id"   // Server-side query/cursor identifier
	KeyNumRows   = "num_rows"   // Row count fetched/affected
	KeyCancelled = "cancelled"  // Whether a query was cancelled mid-flight

	// ========================================================================
	// Catalog-Mirror Cache
	// ========================================================================
	KeyCacheHit      = "cache_hit"      // Cache hit indicator
	KeyCacheState    = "cache_state"    // Cache state: dirty, clean, uploading
	KeyCacheSize     = "cache_size"     // Current cache size
	KeyCacheCapacity = "cache_capacity" // Maximum cache capacity
	KeyEvicted       = "evicted"        // Number of entries evicted
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Protocol & Operation
// ----------------------------------------------------------------------------

// Protocol returns a slog.Attr for protocol type
func Protocol(proto string) slog.Attr {
	return slog.String(KeyProtocol, proto)
}

// Procedure returns a slog.Attr for operation/procedure name
func Procedure(name string) slog.Attr {
	return slog.String(KeyProcedure, name)
}

// Handle returns a slog.Attr for a statement/cursor handle id
func Handle(id int) slog.Attr {
	return slog.Int(KeyHandle, id)
}

// Share returns a slog.Attr for share/export name
func Share(name string) slog.Attr {
	return slog.String(KeyShare, name)
}

// Status returns a slog.Attr for operation status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// StatusMsg returns a slog.Attr for human-readable status message
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// ----------------------------------------------------------------------------
// Client Identification
// ----------------------------------------------------------------------------

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// ClientHost returns a slog.Attr for client hostname
func ClientHost(host string) slog.Attr {
	return slog.String(KeyClientHost, host)
}

// UID returns a slog.Attr for user ID
func UID(uid uint32) slog.Attr {
	return slog.Any(KeyUID, uid)
}

// GID returns a slog.Attr for group ID
func GID(gid uint32) slog.Attr {
	return slog.Any(KeyGID, gid)
}

// Username returns a slog.Attr for username
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Domain returns a slog.Attr for domain name
func Domain(name string) slog.Attr {
	return slog.String(KeyDomain, name)
}

// Auth returns a slog.Attr for authentication method/flavor
func Auth(flavor uint32) slog.Attr {
	return slog.Any(KeyAuth, flavor)
}

// AuthStr returns a slog.Attr for authentication method as string
func AuthStr(method string) slog.Attr {
	return slog.String(KeyAuth, method)
}

// ----------------------------------------------------------------------------
// Session & Connection
// ----------------------------------------------------------------------------

// SessionID returns a slog.Attr for session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ConnectionID returns a slog.Attr for connection identifier
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// RequestID returns a slog.Attr for protocol-specific request ID
func RequestID(id uint32) slog.Attr {
	return slog.Any(KeyRequestID, id)
}

// RequestIDStr returns a slog.Attr for request ID as string
func RequestIDStr(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Source returns a slog.Attr for data source
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// ----------------------------------------------------------------------------
// Broker Handoff & Session
// ----------------------------------------------------------------------------

// BrokerName returns a slog.Attr for the handing-off broker's name
func BrokerName(name string) slog.Attr {
	return slog.String(KeyBrokerName, name)
}

// CasSlot returns a slog.Attr for the CAS process's shared-memory slot index
func CasSlot(slot int) slog.Attr {
	return slog.Int(KeyCasSlot, slot)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// ----------------------------------------------------------------------------
// Transaction & Query
// ----------------------------------------------------------------------------

// TranID returns a slog.Attr for a transaction identifier
func TranID(id int) slog.Attr {
	return slog.Int(KeyTranID, id)
}

// QueryID returns a slog.Attr for a server-side query/cursor identifier
func QueryID(id int) slog.Attr {
	return slog.Int(KeyQueryID, id)
}

// NumRows returns a slog.Attr for a row count fetched or affected
func NumRows(n int64) slog.Attr {
	return slog.Int64(KeyNumRows, n)
}

// Cancelled returns a slog.Attr for whether a query was cancelled mid-flight
func Cancelled(c bool) slog.Attr {
	return slog.Bool(KeyCancelled, c)
}

// ----------------------------------------------------------------------------
// Catalog-Mirror Cache
// ----------------------------------------------------------------------------

// CacheHit returns a slog.Attr for cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// CacheState returns a slog.Attr for cache state
func CacheState(state string) slog.Attr {
	return slog.String(KeyCacheState, state)
}

// CacheSize returns a slog.Attr for current cache size
func CacheSize(size int64) slog.Attr {
	return slog.Int64(KeyCacheSize, size)
}

// CacheCapacity returns a slog.Attr for maximum cache capacity
func CacheCapacity(capacity int64) slog.Attr {
	return slog.Int64(KeyCacheCapacity, capacity)
}

// Evicted returns a slog.Attr for number of entries evicted
func Evicted(n int) slog.Attr {
	return slog.Int(KeyEvicted, n)
}

// ----------------------------------------------------------------------------
// CAS Function Dispatch
// ----------------------------------------------------------------------------

// FuncCodeName returns a slog.Attr for a dispatched function code's name
func FuncCodeName(name string) slog.Attr {
	return slog.String(KeyFuncCode, name)
}

// TranStatus returns a slog.Attr for the IN_TRAN/OUT_TRAN state
func TranStatus(status string) slog.Attr {
	return slog.String(KeyTranStatus, status)
}

// Holdable returns a slog.Attr for whether a result survives commit
func Holdable(h bool) slog.Attr {
	return slog.Bool(KeyHoldable, h)
}

// StmtType returns a slog.Attr for a prepared statement's type code
func StmtType(t int) slog.Attr {
	return slog.Int(KeyStmtType, t)
}

// ----------------------------------------------------------------------------
// Class Representation / Catalog
// ----------------------------------------------------------------------------

// ClassOID returns a slog.Attr for a class row's OID, formatted per oid.OID.String
func ClassOID(s string) slog.Attr {
	return slog.String(KeyClassOID, s)
}

// ReprID returns a slog.Attr for a class representation id
func ReprID(id int32) slog.Attr {
	return slog.Int(KeyReprID, int(id))
}

// AttrID returns a slog.Attr for an attribute id within a representation
func AttrID(id int32) slog.Attr {
	return slog.Int(KeyAttrID, int(id))
}

// CascadeLen returns a slog.Attr for the number of child rows a catalog-mirror
// cascade touched
func CascadeLen(n int) slog.Attr {
	return slog.Int(KeyCascadeLen, n)
}
