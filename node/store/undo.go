package store

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
)

// BlockUndo is what DisconnectTip needs to revert one block: the tip to
// restore and the per-tx deltas in commit order.
type BlockUndo struct {
	Height   uint64
	PrevHash [32]byte
	Deltas   []*consensus.StateDelta
}

func encodeBlockUndo(u *BlockUndo) ([]byte, error) {
	if u == nil {
		return nil, errors.New("undo: nil")
	}
	// Layout:
	// height u64le | prev_hash 32 | deltas (consensus delta list)
	deltas, err := consensus.MarshalStateDeltas(u.Deltas)
	if err != nil {
		return nil, errors.Wrap(err, "undo")
	}
	out := make([]byte, 8+32, 8+32+len(deltas))
	binary.LittleEndian.PutUint64(out[0:8], u.Height)
	copy(out[8:40], u.PrevHash[:])
	return append(out, deltas...), nil
}

func decodeBlockUndo(b []byte) (*BlockUndo, error) {
	if len(b) < 8+32+1 {
		return nil, errors.New("undo: truncated")
	}
	u := &BlockUndo{Height: binary.LittleEndian.Uint64(b[0:8])}
	copy(u.PrevHash[:], b[8:40])
	deltas, err := consensus.ParseStateDeltas(b[40:])
	if err != nil {
		return nil, errors.Wrap(err, "undo")
	}
	u.Deltas = deltas
	return u, nil
}
