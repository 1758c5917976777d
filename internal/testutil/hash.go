package testutil

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Blake3Hex returns the blake3 digest of data as a lowercase hex string,
// the checksum format recorded for every archived field.
func Blake3Hex(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
