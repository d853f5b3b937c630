package wire

import (
	"encoding/binary"
	"testing"

	"github.com/rimdb/rim/pkg/caserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetBufferPrimitivesRoundTrip(t *testing.T) {
	buf := NewNetBuffer()
	buf.PutByte(7)
	buf.PutShort(-300)
	buf.PutInt(123456)
	buf.PutBigint(1 << 40)
	buf.PutDouble(3.5)
	buf.PutStr([]byte("hello"))
	buf.PutNull()

	c := NewCursor(buf.Bytes())

	b, err := c.GetByte()
	require.NoError(t, err)
	assert.Equal(t, byte(7), b)

	sh, err := c.GetShort()
	require.NoError(t, err)
	assert.Equal(t, int16(-300), sh)

	i, err := c.GetInt()
	require.NoError(t, err)
	assert.Equal(t, int32(123456), i)

	bi, err := c.GetBigint()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), bi)

	d, err := c.GetDouble()
	require.NoError(t, err)
	assert.Equal(t, 3.5, d)

	s, isNull, err := c.GetStr()
	require.NoError(t, err)
	assert.False(t, isNull)
	assert.Equal(t, "hello", string(s))

	_, isNull, err = c.GetStr()
	require.NoError(t, err)
	assert.True(t, isNull)

	assert.Equal(t, 0, c.Remaining())
}

func TestNetBufferGrowsPastSingleIncrement(t *testing.T) {
	buf := NewNetBuffer()
	big := make([]byte, growIncrement+100)
	buf.PutStr(big)
	assert.Equal(t, 4+len(big), buf.Len())
}

func TestMessageFramingRoundTrip(t *testing.T) {
	body := EncodeRequest(byte(FuncPrepare), [][]byte{[]byte("select 1"), nil})
	status := StatusInfo{TranStatus: 1, ServerNodeID: 2, ShardVersion: 3}
	framed := EncodeMessage(status, body)

	gotStatus, gotBody, err := DecodeMessageHeader(framed)
	require.NoError(t, err)
	assert.Equal(t, status, gotStatus)

	fc, args, err := DecodeRequest(gotBody)
	require.NoError(t, err)
	assert.Equal(t, byte(FuncPrepare), fc)
	require.Len(t, args, 2)
	assert.Equal(t, "select 1", string(args[0]))
	assert.Nil(t, args[1])
}

func TestMessageFramingIsWireCompatibleStatusInfoSize(t *testing.T) {
	body := []byte("x")
	status := StatusInfo{TranStatus: 1, ServerNodeID: 2, ShardVersion: 3}
	framed := EncodeMessage(status, body)

	assert.Equal(t, 16, StatusInfoSize)
	assert.Equal(t, int32(StatusInfoSize+len(body)), int32(binary.BigEndian.Uint32(framed[:4])))
	assert.Equal(t, 4+StatusInfoSize+len(body), len(framed))
}

func TestErrorResponseRoundTrip(t *testing.T) {
	e := caserr.New(caserr.CodeArgs, "bad argument %d", 3)
	body := EncodeErrorResponse(e)

	got, ok, err := DecodeErrorResponse(body)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e.Code, got.Code)
	assert.Equal(t, e.Indicator, got.Indicator)
	assert.Equal(t, e.Message, got.Message)
}

func TestDecodeErrorResponseRejectsNonErrorBody(t *testing.T) {
	body := EncodeRequest(byte(FuncEndTran), nil)
	_, ok, err := DecodeErrorResponse(body)
	require.NoError(t, err)
	assert.False(t, ok)
}
