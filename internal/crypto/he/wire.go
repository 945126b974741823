package he

import (
	"encoding/binary"
	"fmt"
)

// unmarshalLenPrefixed decodes a simple uint32-count, uint32-length-prefixed
// list of byte blobs. It exists because a tenant may carry more than one
// Galois key (one per rotation step needed for the inner-sum), but the
// wire request only carries a single base64 string per field.
func unmarshalLenPrefixed(data []byte, out *[][]byte) error {
	if len(data) < 4 {
		return fmt.Errorf("he: blob too short for a length-prefixed list")
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	offset := 4
	blobs := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if offset+4 > len(data) {
			return fmt.Errorf("he: truncated length-prefixed list at entry %d", i)
		}
		n := binary.LittleEndian.Uint32(data[offset : offset+4])
		offset += 4
		if offset+int(n) > len(data) {
			return fmt.Errorf("he: truncated blob at entry %d", i)
		}
		blobs = append(blobs, data[offset:offset+int(n)])
		offset += int(n)
	}
	*out = blobs
	return nil
}

// marshalLenPrefixed is the inverse of unmarshalLenPrefixed, used by tests
// to build fixtures without a real client SDK.
func marshalLenPrefixed(blobs [][]byte) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(len(blobs)))
	for _, b := range blobs {
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(len(b)))
		out = append(out, lenBuf...)
		out = append(out, b...)
	}
	return out
}
