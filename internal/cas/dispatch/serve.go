package dispatch

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	gomem "runtime"

	"github.com/rimdb/rim/internal/logger"
	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/wire"
)

// ErrRestartRequested is returned by Serve when the CAS process should
// exit and let the broker restart it, because memory has grown past
// its configured limit and no holdable result would be lost (spec
// §4.7 step 1).
var ErrRestartRequested = errors.New("cas restart requested: memory limit exceeded")

// Serve runs the dispatch loop for one connection until con_close, a
// restart condition, or a connection error (spec §4.7 "Loop"). Requests
// on a connection are strictly ordered: a response is fully written
// before the next request is read (spec §5).
func (d *Dispatcher) Serve(ctx context.Context) error {
	for {
		if d.KeepConAuto && d.tranStatus == TranStatusOutTran && d.memoryOverLimit() {
			return ErrRestartRequested
		}

		d.Alive.Clear()
		status, body, err := readMessage(d.Session.Conn)
		d.Alive.Set()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return caserr.New(caserr.CodeCommunication, "read request: %v", err)
		}

		funcCode, argv, err := wire.DecodeRequest(body)
		if err != nil {
			logger.Warn("malformed request body", logger.Err(err))
			continue
		}

		d.Cancel.Reset()
		entry, ok := Table[wire.FuncCode(funcCode)]
		if !ok {
			logger.Warn("unknown function code", logger.FuncCodeName(wire.FuncCode(funcCode).String()))
			if err := writeMessage(d.Session.Conn, d.statusInfo(status), wire.EncodeErrorResponse(
				caserr.New(caserr.CodeArgs, "unknown function code %d", funcCode))); err != nil {
				return err
			}
			continue
		}

		result, handlerErr := entry.Handler(ctx, d, argv)
		if commitErr := d.applyAutoCommit(result.AutoCommit, handlerErr); commitErr != nil && handlerErr == nil {
			handlerErr = commitErr
		}

		respBody := result.Body
		if handlerErr != nil && !errors.Is(handlerErr, errConClose) {
			respBody = wire.EncodeErrorResponse(asCasError(handlerErr))
		}

		if err := writeMessage(d.Session.Conn, d.statusInfo(status), respBody); err != nil {
			return caserr.New(caserr.CodeCommunication, "write response: %v", err)
		}

		if errors.Is(handlerErr, errConClose) {
			return nil
		}
	}
}

// statusInfo builds the outgoing StatusInfo, carrying the incoming
// message's server-node/shard-version fields forward unchanged and
// reporting the dispatcher's current transaction status.
func (d *Dispatcher) statusInfo(incoming wire.StatusInfo) wire.StatusInfo {
	return wire.StatusInfo{
		TranStatus:   byte(d.tranStatus),
		ServerNodeID: incoming.ServerNodeID,
		ShardVersion: incoming.ShardVersion,
	}
}

func asCasError(err error) *caserr.CasError {
	var ce *caserr.CasError
	if errors.As(err, &ce) {
		return ce
	}
	return caserr.New(caserr.CodeInternal, "%v", err)
}

// memoryOverLimit reports whether process heap usage has grown past
// MemoryLimitBytes with no holdable results to preserve (spec §4.7
// step 1: "Restart the CAS if memory has grown past a configured limit
// and no holdable results exist").
func (d *Dispatcher) memoryOverLimit() bool {
	if d.MemoryLimitBytes <= 0 {
		return false
	}
	if d.Session.Handles != nil && d.Session.Handles.HoldableCount() > 0 {
		return false
	}
	var stats gomem.MemStats
	gomem.ReadMemStats(&stats)
	return int64(stats.HeapAlloc) > d.MemoryLimitBytes
}

// readMessage reads one length-prefixed, status-info-bearing message
// off the wire (spec §4.5 message framing).
func readMessage(r io.Reader) (wire.StatusInfo, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return wire.StatusInfo{}, nil, err
	}
	bodySize := binary.BigEndian.Uint32(lenBuf[:])
	rest := make([]byte, bodySize)
	if _, err := io.ReadFull(r, rest); err != nil {
		return wire.StatusInfo{}, nil, err
	}
	raw := append(lenBuf[:], rest...)
	return wire.DecodeMessageHeader(raw)
}

// writeMessage writes one framed message (spec §4.5).
func writeMessage(w io.Writer, status wire.StatusInfo, body []byte) error {
	_, err := w.Write(wire.EncodeMessage(status, body))
	return err
}
