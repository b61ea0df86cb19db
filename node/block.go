package node

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
	"github.com/kongsikongsideveloper/WaykiChain/crypto"
)

const maxBlockTxs = 100_000

// Block is an ordered batch of transactions committed at one height.
type Block struct {
	Height   uint64
	PrevHash [32]byte
	Txs      []*consensus.Tx
}

// Txids returns the txids in block order.
func (b *Block) Txids() ([][32]byte, error) {
	out := make([][32]byte, 0, len(b.Txs))
	for i, tx := range b.Txs {
		id, err := tx.Txid()
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// Hash commits to height, parent and the txid Merkle root:
// SHA3-256(height u64le | prev_hash 32 | merkle_root 32).
func (b *Block) Hash(p crypto.CryptoProvider) ([32]byte, error) {
	txids, err := b.Txids()
	if err != nil {
		return [32]byte{}, err
	}
	root := consensus.MerkleRootTxids(txids)
	var pre [8 + 32 + 32]byte
	binary.LittleEndian.PutUint64(pre[0:8], b.Height)
	copy(pre[8:40], b.PrevHash[:])
	copy(pre[40:72], root[:])
	return p.SHA3_256(pre[:]), nil
}

// MarshalBlock layout: height u64le | prev_hash 32 | tx_count cs | tx*
func MarshalBlock(b *Block) ([]byte, error) {
	out := make([]byte, 8+32, 8+32+9+len(b.Txs)*256)
	binary.LittleEndian.PutUint64(out[0:8], b.Height)
	copy(out[8:40], b.PrevHash[:])
	out = append(out, consensus.CompactSize(len(b.Txs)).Encode()...)
	for i, tx := range b.Txs {
		raw, err := consensus.MarshalTx(tx)
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		out = append(out, raw...)
	}
	return out, nil
}

func ParseBlock(raw []byte) (*Block, error) {
	if len(raw) < 8+32+1 {
		return nil, fmt.Errorf("block: truncated")
	}
	b := &Block{Height: binary.LittleEndian.Uint64(raw[0:8])}
	copy(b.PrevHash[:], raw[8:40])
	n, used, err := consensus.DecodeCompactSize(raw[40:])
	if err != nil {
		return nil, fmt.Errorf("block: tx count: %w", err)
	}
	if n > maxBlockTxs {
		return nil, fmt.Errorf("block: %d txs exceeds %d", n, maxBlockTxs)
	}
	off := 40 + used
	b.Txs = make([]*consensus.Tx, 0, n)
	for i := uint64(0); i < uint64(n); i++ {
		tx, _, consumed, err := consensus.ParseTx(raw[off:])
		if err != nil {
			return nil, fmt.Errorf("block: tx %d: %w", i, err)
		}
		off += consumed
		b.Txs = append(b.Txs, tx)
	}
	if off != len(raw) {
		return nil, fmt.Errorf("block: trailing bytes")
	}
	return b, nil
}

// BlockFile is the JSON form accepted by `ledgerd connect`. Height and
// PrevHash default to the successor of the current tip.
type BlockFile struct {
	Height   *uint64  `json:"height,omitempty"`
	PrevHash string   `json:"prev_hash,omitempty"`
	Txs      []string `json:"txs"`
}

// DecodeBlockFile parses a BlockFile against the current tip.
func DecodeBlockFile(data []byte, tipHeight uint64, tipHash [32]byte) (*Block, error) {
	var f BlockFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("block file json: %w", err)
	}
	b := &Block{Height: tipHeight + 1, PrevHash: tipHash}
	if f.Height != nil {
		b.Height = *f.Height
	}
	if f.PrevHash != "" {
		h, err := decodeHash32Hex(f.PrevHash)
		if err != nil {
			return nil, fmt.Errorf("prev_hash: %w", err)
		}
		b.PrevHash = h
	}
	for i, s := range f.Txs {
		raw, err := hex.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		tx, _, err := consensus.DecodeTx(raw)
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		b.Txs = append(b.Txs, tx)
	}
	return b, nil
}

func decodeHash32Hex(s string) ([32]byte, error) {
	var h [32]byte
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return h, err
	}
	if len(raw) != 32 {
		return h, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(h[:], raw)
	return h, nil
}
