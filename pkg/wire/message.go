package wire

import (
	"github.com/rimdb/rim/pkg/caserr"
)

// StatusInfo is the fixed-size header trailer every message carries
// alongside its body size: transaction status, the server node id, and
// the shard-info version, followed by reserved padding. On the wire it
// is always StatusInfoSize (16) bytes so framing stays compatible with
// existing drivers that expect CAS_STATUS_INFO_SIZE; only the first
// three bytes carry meaning today.
type StatusInfo struct {
	TranStatus   byte
	ServerNodeID byte
	ShardVersion byte
}

// StatusInfoSize is the on-wire size of StatusInfo: 3 meaningful bytes
// plus 13 bytes of reserved padding, matching the original protocol's
// CAS_STATUS_INFO_SIZE.
const StatusInfoSize = 16

// statusInfoReservedSize is the padding after the 3 meaningful bytes.
const statusInfoReservedSize = StatusInfoSize - 3

func (s StatusInfo) encode(buf *NetBuffer) {
	buf.PutByte(s.TranStatus)
	buf.PutByte(s.ServerNodeID)
	buf.PutByte(s.ShardVersion)
	buf.PutZeros(statusInfoReservedSize)
}

func decodeStatusInfo(c *Cursor) (StatusInfo, error) {
	tran, err := c.GetByte()
	if err != nil {
		return StatusInfo{}, err
	}
	node, err := c.GetByte()
	if err != nil {
		return StatusInfo{}, err
	}
	shard, err := c.GetByte()
	if err != nil {
		return StatusInfo{}, err
	}
	if err := c.Skip(statusInfoReservedSize); err != nil {
		return StatusInfo{}, err
	}
	return StatusInfo{TranStatus: tran, ServerNodeID: node, ShardVersion: shard}, nil
}

// ErrorResponseFuncCode marks a message body as an error response
// rather than a normal function reply (spec §4.5).
const ErrorResponseFuncCode byte = 0xFF

// Indicator mirrors caserr.Indicator on the wire: CAS_ERROR or
// DBMS_ERROR (spec §4.5).
type Indicator = caserr.Indicator

// EncodeMessage frames a message body with its (body_size, status_info)
// header (spec §4.5 "Message framing").
func EncodeMessage(status StatusInfo, body []byte) []byte {
	out := NewNetBuffer()
	out.PutInt(int32(len(body)) + StatusInfoSize)
	status.encode(out)
	out.data = append(out.data, body...)
	return out.Bytes()
}

// DecodeMessageHeader reads body_size and status_info from the front of
// raw, returning the status info and the remaining body bytes.
func DecodeMessageHeader(raw []byte) (StatusInfo, []byte, error) {
	c := NewCursor(raw)
	bodySize, err := c.GetInt()
	if err != nil {
		return StatusInfo{}, nil, err
	}
	status, err := decodeStatusInfo(c)
	if err != nil {
		return StatusInfo{}, nil, err
	}
	bodyLen := int(bodySize) - StatusInfoSize
	if bodyLen < 0 || c.pos+bodyLen > len(raw) {
		return StatusInfo{}, nil, caserr.Corrupted("message body_size out of range")
	}
	return status, raw[c.pos : c.pos+bodyLen], nil
}

// EncodeRequest builds a message body: a function code byte followed by
// argc length-prefixed arguments (spec §4.5: "A message body is a
// function code byte followed by argc length-prefixed arguments").
func EncodeRequest(funcCode byte, args [][]byte) []byte {
	buf := NewNetBuffer()
	buf.PutByte(funcCode)
	for _, a := range args {
		if a == nil {
			buf.PutNull()
			continue
		}
		buf.PutStr(a)
	}
	return buf.Bytes()
}

// DecodeRequest splits a body into its function code and argument list.
func DecodeRequest(body []byte) (funcCode byte, args [][]byte, err error) {
	c := NewCursor(body)
	funcCode, err = c.GetByte()
	if err != nil {
		return 0, nil, err
	}
	for c.Remaining() > 0 {
		arg, isNull, err := c.GetStr()
		if err != nil {
			return 0, nil, err
		}
		if isNull {
			args = append(args, nil)
			continue
		}
		args = append(args, arg)
	}
	return funcCode, args, nil
}

// EncodeErrorResponse builds an ERROR_RESPONSE body: (ERROR_RESPONSE,
// indicator, code, msglen, msg) (spec §4.5).
func EncodeErrorResponse(e *caserr.CasError) []byte {
	buf := NewNetBuffer()
	buf.PutByte(ErrorResponseFuncCode)
	buf.PutInt(int32(e.Indicator))
	buf.PutInt(e.Code)
	buf.PutStr([]byte(e.Message))
	return buf.Bytes()
}

// DecodeErrorResponse parses an ERROR_RESPONSE body. ok is false if body
// is not an error response (a different function code).
func DecodeErrorResponse(body []byte) (e *caserr.CasError, ok bool, err error) {
	c := NewCursor(body)
	fc, err := c.GetByte()
	if err != nil {
		return nil, false, err
	}
	if fc != ErrorResponseFuncCode {
		return nil, false, nil
	}
	indicator, err := c.GetInt()
	if err != nil {
		return nil, false, err
	}
	code, err := c.GetInt()
	if err != nil {
		return nil, false, err
	}
	msg, _, err := c.GetStr()
	if err != nil {
		return nil, false, err
	}
	return &caserr.CasError{Indicator: Indicator(indicator), Code: code, Message: string(msg)}, true, nil
}
