package dispatch

import "github.com/rimdb/rim/pkg/wire"

// dispatchEntry pairs a handler with its name for logging.
type dispatchEntry struct {
	Name    string
	Handler Handler
}

// Table maps every function code the dispatcher understands to its
// handler (spec §4.7: "A fixed table maps function codes to
// handlers"), including the functions SPEC_FULL.md §4 supplements from
// original_source/cas_function.c beyond the distilled prose list.
var Table = map[wire.FuncCode]dispatchEntry{
	wire.FuncEndTran:             {"END_TRAN", handleEndTran},
	wire.FuncPrepare:             {"PREPARE", handlePrepare},
	wire.FuncExecute:             {"EXECUTE", handleExecute},
	wire.FuncFetch:               {"FETCH", handleFetch},
	wire.FuncSchemaInfo:          {"SCHEMA_INFO", handleSchemaInfo},
	wire.FuncGetDBParameter:      {"GET_DB_PARAMETER", handleGetDBParameter},
	wire.FuncCloseReqHandle:      {"CLOSE_REQ_HANDLE", handleCloseReqHandle},
	wire.FuncExecuteBatch:        {"EXECUTE_BATCH", handleExecuteBatch},
	wire.FuncGetQueryPlan:        {"GET_QUERY_PLAN", handleGetQueryPlan},
	wire.FuncConClose:            {"CON_CLOSE", handleConClose},
	wire.FuncCheckCas:            {"CHECK_CAS", handleCheckCas},
	wire.FuncCursorClose:         {"CURSOR_CLOSE", handleCursorClose},
	wire.FuncChangeDBUser:        {"CHANGE_DBUSER", handleChangeDBUser},
	wire.FuncUpdateGroupID:       {"UPDATE_GROUP_ID", handleUpdateGroupID},
	wire.FuncGIDRemovedInfoInsert: {"GID_REMOVED_INFO_INSERT", handleGIDRemovedInfoInsert},
	wire.FuncGIDRemovedInfoDelete: {"GID_REMOVED_INFO_DELETE", handleGIDRemovedInfoDelete},
	wire.FuncGIDSkeyInfoDelete:    {"GID_SKEY_INFO_DELETE", handleGIDSkeyInfoDelete},
	wire.FuncBlockGlobalDML:      {"BLOCK_GLOBAL_DML", handleBlockGlobalDML},
	wire.FuncServerMode:          {"SERVER_MODE", handleServerMode},
	wire.FuncSendReplData:        {"SEND_REPL_DATA", handleSendReplData},
	wire.FuncNotifyHAAgentState:  {"NOTIFY_HA_AGENT_STATE", handleNotifyHAAgentState},

	// Supplemented (SPEC_FULL.md §4).
	wire.FuncCursor:         {"CURSOR", handleCursor},
	wire.FuncGetDBVersion:   {"GET_DB_VERSION", handleGetDBVersion},
	wire.FuncSetDBParameter: {"SET_DB_PARAMETER", handleSetDBParameter},
	wire.FuncNextResult:     {"NEXT_RESULT", handleNextResult},
}
