package wire

// FuncCode identifies a CAS request's operation (spec §4.7's fixed
// dispatch table, plus the functions SPEC_FULL.md §4 supplements from
// original_source/cas_function.h).
type FuncCode byte

const (
	FuncEndTran FuncCode = iota + 1
	FuncPrepare
	FuncExecute
	FuncFetch
	FuncSchemaInfo
	FuncGetDBParameter
	FuncCloseReqHandle
	FuncExecuteBatch
	FuncGetQueryPlan
	FuncConClose
	FuncCheckCas
	FuncCursorClose
	FuncChangeDBUser
	FuncUpdateGroupID
	FuncGIDRemovedInfoInsert
	FuncGIDRemovedInfoDelete
	FuncGIDSkeyInfoDelete
	FuncBlockGlobalDML
	FuncServerMode
	FuncSendReplData
	FuncNotifyHAAgentState

	// Supplemented from original_source/cas_function.h (SPEC_FULL.md §4):
	// the distilled dispatch table omitted these.
	FuncCursor
	FuncGetDBVersion
	FuncSetDBParameter
	FuncNextResult
)

func (f FuncCode) String() string {
	switch f {
	case FuncEndTran:
		return "END_TRAN"
	case FuncPrepare:
		return "PREPARE"
	case FuncExecute:
		return "EXECUTE"
	case FuncFetch:
		return "FETCH"
	case FuncSchemaInfo:
		return "SCHEMA_INFO"
	case FuncGetDBParameter:
		return "GET_DB_PARAMETER"
	case FuncCloseReqHandle:
		return "CLOSE_REQ_HANDLE"
	case FuncExecuteBatch:
		return "EXECUTE_BATCH"
	case FuncGetQueryPlan:
		return "GET_QUERY_PLAN"
	case FuncConClose:
		return "CON_CLOSE"
	case FuncCheckCas:
		return "CHECK_CAS"
	case FuncCursorClose:
		return "CURSOR_CLOSE"
	case FuncChangeDBUser:
		return "CHANGE_DBUSER"
	case FuncUpdateGroupID:
		return "UPDATE_GROUP_ID"
	case FuncGIDRemovedInfoInsert:
		return "GID_REMOVED_INFO_INSERT"
	case FuncGIDRemovedInfoDelete:
		return "GID_REMOVED_INFO_DELETE"
	case FuncGIDSkeyInfoDelete:
		return "GID_SKEY_INFO_DELETE"
	case FuncBlockGlobalDML:
		return "BLOCK_GLOBAL_DML"
	case FuncServerMode:
		return "SERVER_MODE"
	case FuncSendReplData:
		return "SEND_REPL_DATA"
	case FuncNotifyHAAgentState:
		return "NOTIFY_HA_AGENT_STATE"
	case FuncCursor:
		return "CURSOR"
	case FuncGetDBVersion:
		return "GET_DB_VERSION"
	case FuncSetDBParameter:
		return "SET_DB_PARAMETER"
	case FuncNextResult:
		return "NEXT_RESULT"
	default:
		return "UNKNOWN"
	}
}
