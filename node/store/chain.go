package store

import (
	"github.com/pkg/errors"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
)

// BlockCommit is one connected block: its raw bytes, the net ledger mutations
// of all its txs, and the deltas needed to disconnect it again.
type BlockCommit struct {
	Hash      [32]byte
	Height    uint64
	PrevHash  [32]byte
	Raw       []byte
	Mutations *consensus.Mutations
	Deltas    []*consensus.StateDelta
}

// Genesis seeds an empty chain. Accounts are written as given.
type Genesis struct {
	Hash     [32]byte
	Raw      []byte
	Accounts []*consensus.Account
}

func (d *DB) Tip() (Tip, bool, error) {
	var (
		t  Tip
		ok bool
	)
	err := d.kv.view(func(r kvReader) error {
		var err error
		t, ok, err = readTip(r)
		return err
	})
	return t, ok, err
}

func readTip(r kvReader) (Tip, bool, error) {
	v, err := r.get(bucketMeta, metaTipKey)
	if err != nil || v == nil {
		return Tip{}, false, err
	}
	t, err := decodeTip(v)
	if err != nil {
		return Tip{}, false, err
	}
	return t, true, nil
}

func (d *DB) GetBlockBytes(hash [32]byte) ([]byte, bool, error) {
	var out []byte
	err := d.kv.view(func(r kvReader) error {
		var err error
		out, err = r.get(bucketBlocks, hash[:])
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (d *DB) GetBlockHashByHeight(height uint64) ([32]byte, bool, error) {
	var (
		h  [32]byte
		ok bool
	)
	err := d.kv.view(func(r kvReader) error {
		v, err := r.get(bucketHeights, heightKey(height))
		if err != nil || v == nil {
			return err
		}
		h, err = decodeHash(v)
		ok = err == nil
		return err
	})
	return h, ok, err
}

func (d *DB) GetUndo(hash [32]byte) (*BlockUndo, bool, error) {
	var out *BlockUndo
	err := d.kv.view(func(r kvReader) error {
		v, err := r.get(bucketUndo, hash[:])
		if err != nil || v == nil {
			return err
		}
		out, err = decodeBlockUndo(v)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// InitGenesis writes the genesis block and its accounts into an empty chain.
func (d *DB) InitGenesis(g *Genesis) error {
	if g == nil {
		return errors.New("genesis: nil")
	}
	seen := make(map[consensus.RegID]bool, len(g.Accounts))
	for _, a := range g.Accounts {
		if a.HasRegID {
			if seen[a.RegID] {
				return errors.Errorf("genesis: regid %s assigned twice", a.RegID)
			}
			seen[a.RegID] = true
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.kv.update(func(w kvWriter) error {
		if _, ok, err := readTip(w); err != nil {
			return err
		} else if ok {
			return ErrAlreadyInitialized
		}
		m := &consensus.Mutations{Accounts: g.Accounts}
		m.Sort()
		if err := applyMutations(w, m); err != nil {
			return err
		}
		if err := w.put(bucketBlocks, g.Hash[:], g.Raw); err != nil {
			return err
		}
		if err := w.put(bucketHeights, heightKey(0), g.Hash[:]); err != nil {
			return err
		}
		if err := w.put(bucketMeta, metaGenesisKey, g.Hash[:]); err != nil {
			return err
		}
		return w.put(bucketMeta, metaTipKey, encodeTip(Tip{Height: 0, Hash: g.Hash}))
	})
	if err != nil {
		return errors.Wrap(err, "init genesis")
	}
	return d.writeManifestLocked(g.Hash, Tip{Height: 0, Hash: g.Hash})
}

// CommitBlock connects c on top of the current tip in one atomic update.
func (d *DB) CommitBlock(c *BlockCommit) error {
	if c == nil {
		return errors.New("commit: nil")
	}
	undo, err := encodeBlockUndo(&BlockUndo{Height: c.Height, PrevHash: c.PrevHash, Deltas: c.Deltas})
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	err = d.kv.update(func(w kvWriter) error {
		tip, ok, err := readTip(w)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotInitialized
		}
		if tip.Hash != c.PrevHash || tip.Height+1 != c.Height {
			return errors.Wrapf(ErrTipMismatch, "tip %d:%x, block %d prev %x", tip.Height, tip.Hash, c.Height, c.PrevHash)
		}
		if err := applyMutations(w, c.Mutations); err != nil {
			return err
		}
		if err := w.put(bucketBlocks, c.Hash[:], c.Raw); err != nil {
			return err
		}
		if err := w.put(bucketHeights, heightKey(c.Height), c.Hash[:]); err != nil {
			return err
		}
		if err := w.put(bucketUndo, c.Hash[:], undo); err != nil {
			return err
		}
		return w.put(bucketMeta, metaTipKey, encodeTip(Tip{Height: c.Height, Hash: c.Hash}))
	})
	if err != nil {
		return errors.Wrapf(err, "commit block %d", c.Height)
	}
	return d.writeManifestLocked([32]byte{}, Tip{Height: c.Height, Hash: c.Hash})
}

// RevertBlock disconnects the tip block identified by hash, applying m (the
// undo mutations) and restoring the previous tip recorded in its undo entry.
func (d *DB) RevertBlock(hash [32]byte, m *consensus.Mutations) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var prev Tip
	err := d.kv.update(func(w kvWriter) error {
		tip, ok, err := readTip(w)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotInitialized
		}
		if tip.Hash != hash {
			return errors.Wrapf(ErrTipMismatch, "tip is %x, not %x", tip.Hash, hash)
		}
		if tip.Height == 0 {
			return ErrRevertGenesis
		}
		v, err := w.get(bucketUndo, hash[:])
		if err != nil {
			return err
		}
		if v == nil {
			return errors.Errorf("undo record for %x missing", hash)
		}
		u, err := decodeBlockUndo(v)
		if err != nil {
			return err
		}
		if u.Height != tip.Height {
			return errors.Errorf("undo record height %d, tip %d", u.Height, tip.Height)
		}
		if err := applyMutations(w, m); err != nil {
			return err
		}
		for _, del := range []struct{ b, k []byte }{
			{bucketUndo, hash[:]},
			{bucketBlocks, hash[:]},
			{bucketHeights, heightKey(tip.Height)},
		} {
			if err := w.del(del.b, del.k); err != nil {
				return err
			}
		}
		prev = Tip{Height: tip.Height - 1, Hash: u.PrevHash}
		return w.put(bucketMeta, metaTipKey, encodeTip(prev))
	})
	if err != nil {
		return errors.Wrapf(err, "revert block %x", hash)
	}
	return d.writeManifestLocked([32]byte{}, prev)
}

// writeManifestLocked mirrors tip into MANIFEST.json. A zero genesis keeps the
// recorded one. Callers hold d.mu.
func (d *DB) writeManifestLocked(genesis [32]byte, tip Tip) error {
	m := &Manifest{
		SchemaVersion: SchemaVersionV1,
		Network:       d.network,
		Backend:       d.backend,
		TipHashHex:    hex32(tip.Hash),
		TipHeight:     tip.Height,
	}
	switch {
	case genesis != [32]byte{}:
		m.GenesisHashHex = hex32(genesis)
	case d.manifest != nil:
		m.GenesisHashHex = d.manifest.GenesisHashHex
	}
	if err := writeManifestAtomic(d.chainDir, m); err != nil {
		return errors.Wrap(err, "ledger committed; manifest not updated")
	}
	d.manifest = m
	return nil
}
