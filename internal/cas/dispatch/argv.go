package dispatch

import (
	"encoding/binary"

	"github.com/rimdb/rim/pkg/caserr"
)

// argStr returns argv[i] as a string, or "" if it is absent or NULL.
func argStr(argv [][]byte, i int) string {
	if i >= len(argv) || argv[i] == nil {
		return ""
	}
	return string(argv[i])
}

// argByte returns argv[i]'s first byte, or 0 if absent.
func argByte(argv [][]byte, i int) byte {
	if i >= len(argv) || len(argv[i]) == 0 {
		return 0
	}
	return argv[i][0]
}

// argInt32 decodes argv[i] as a big-endian int32.
func argInt32(argv [][]byte, i int) (int32, error) {
	if i >= len(argv) || len(argv[i]) < 4 {
		return 0, caserr.New(caserr.CodeArgs, "missing or short int argument %d", i)
	}
	return int32(binary.BigEndian.Uint32(argv[i])), nil
}
