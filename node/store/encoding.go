package store

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var metaTipKey = []byte("tip")
var metaGenesisKey = []byte("genesis")

// Tip is the last committed block.
type Tip struct {
	Height uint64
	Hash   [32]byte
}

// Layout: height u64le | hash 32
func encodeTip(t Tip) []byte {
	out := make([]byte, 8+32)
	binary.LittleEndian.PutUint64(out[0:8], t.Height)
	copy(out[8:], t.Hash[:])
	return out
}

func decodeTip(b []byte) (Tip, error) {
	if len(b) != 8+32 {
		return Tip{}, errors.Errorf("tip: bad length %d", len(b))
	}
	var t Tip
	t.Height = binary.LittleEndian.Uint64(b[0:8])
	copy(t.Hash[:], b[8:])
	return t, nil
}

// heightKey is big-endian so namespace iteration runs in height order.
func heightKey(h uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], h)
	return k[:]
}

func decodeHash(b []byte) ([32]byte, error) {
	var h [32]byte
	if len(b) != 32 {
		return h, errors.Errorf("hash: bad length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}
