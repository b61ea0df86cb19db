package store

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
)

var (
	ErrNotInitialized     = errors.New("chain not initialized")
	ErrAlreadyInitialized = errors.New("chain already initialized")
	ErrTipMismatch        = errors.New("block does not extend the committed tip")
	ErrRevertGenesis      = errors.New("genesis cannot be reverted")
)

type Options struct {
	Network string
	// Backend is BackendBolt (default) or BackendLevelDB. A chain dir keeps
	// the backend it was created with.
	Backend string
}

// DB is the persistent ledger. It implements consensus.LedgerWriter; every
// read runs in its own consistent view, so concurrent readers are safe.
type DB struct {
	chainDir string
	network  string
	backend  string
	kv       kvBackend

	mu       sync.Mutex
	manifest *Manifest
}

var _ consensus.LedgerWriter = (*DB)(nil)

func Open(datadir string, opts Options) (*DB, error) {
	if datadir == "" {
		return nil, errors.New("datadir required")
	}
	if opts.Network == "" {
		return nil, errors.New("network required")
	}
	backend := opts.Backend
	if backend == "" {
		backend = BackendBolt
	}

	chainDir := ChainDir(datadir, opts.Network)
	if err := ensureDir(chainDir); err != nil {
		return nil, err
	}

	m, err := readManifest(chainDir)
	switch {
	case err == nil:
		if m.SchemaVersion > SchemaVersionV1 {
			return nil, errors.Errorf("manifest schema_version %d > supported %d", m.SchemaVersion, SchemaVersionV1)
		}
		if m.Network != opts.Network {
			return nil, errors.Errorf("manifest network %q, want %q", m.Network, opts.Network)
		}
		if m.Backend != "" && opts.Backend != "" && m.Backend != opts.Backend {
			return nil, errors.Errorf("chain dir uses backend %q, not %q", m.Backend, opts.Backend)
		}
		if m.Backend != "" {
			backend = m.Backend
		}
	case os.IsNotExist(errors.Cause(err)):
		m = nil // uninitialized chain; caller must InitGenesis.
	default:
		return nil, errors.Wrap(err, "read manifest")
	}

	dbDir := filepath.Join(chainDir, "db")
	if err := ensureDir(dbDir); err != nil {
		return nil, err
	}
	kv, err := openBackend(backend, dbDir)
	if err != nil {
		return nil, err
	}
	return &DB{
		chainDir: chainDir,
		network:  opts.Network,
		backend:  backend,
		kv:       kv,
		manifest: m,
	}, nil
}

func (d *DB) Close() error {
	if d == nil || d.kv == nil {
		return nil
	}
	return d.kv.close()
}

func (d *DB) ChainDir() string { return d.chainDir }

func (d *DB) Backend() string { return d.backend }

func (d *DB) Manifest() *Manifest {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.manifest == nil {
		return nil
	}
	m := *d.manifest
	return &m
}

func (d *DB) GetAccount(uid consensus.UserID) (*consensus.Account, bool, error) {
	var (
		out *consensus.Account
		ok  bool
	)
	err := d.kv.view(func(r kvReader) error {
		var err error
		out, ok, err = getAccount(r, uid)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, ok, nil
}

func (d *DB) GetUtxoTx(txid [32]byte) (*consensus.UtxoLink, bool, error) {
	var out *consensus.UtxoLink
	err := d.kv.view(func(r kvReader) error {
		v, err := r.get(bucketLinks, txid[:])
		if err != nil || v == nil {
			return err
		}
		out, err = consensus.ParseUtxoLink(v)
		return errors.Wrapf(err, "link %x", txid)
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (d *DB) GetTxReceipts(txid [32]byte) ([]consensus.Receipt, bool, error) {
	var (
		out []consensus.Receipt
		ok  bool
	)
	err := d.kv.view(func(r kvReader) error {
		v, err := r.get(bucketReceipts, txid[:])
		if err != nil || v == nil {
			return err
		}
		ok = true
		out, err = consensus.ParseReceipts(v)
		return errors.Wrapf(err, "receipts %x", txid)
	})
	if err != nil {
		return nil, false, err
	}
	return out, ok, nil
}

// Apply writes one mutation batch atomically outside of any block commit.
func (d *DB) Apply(m *consensus.Mutations) error {
	if m.IsEmpty() {
		return nil
	}
	return d.kv.update(func(w kvWriter) error {
		return applyMutations(w, m)
	})
}

// ForEachAccount visits every stored account in KeyID order.
func (d *DB) ForEachAccount(fn func(a *consensus.Account) error) error {
	return d.kv.view(func(r kvReader) error {
		return r.forEach(bucketAccounts, func(k, v []byte) error {
			a, err := consensus.ParseAccount(v)
			if err != nil {
				return errors.Wrapf(err, "account %x", k)
			}
			return fn(a)
		})
	})
}

func getAccount(r kvReader, uid consensus.UserID) (*consensus.Account, bool, error) {
	var key consensus.KeyID
	switch uid.Kind {
	case consensus.UIDRegID:
		v, err := r.get(bucketRegIDs, uid.RegID.Bytes())
		if err != nil || v == nil {
			return nil, false, err
		}
		if len(v) != consensus.KEY_ID_BYTES {
			return nil, false, errors.Errorf("regid %s: bad index entry length %d", uid.RegID, len(v))
		}
		copy(key[:], v)
	case consensus.UIDKeyID, consensus.UIDPubKey:
		key, _ = uid.KeyIDHint()
	default:
		return nil, false, nil
	}
	v, err := r.get(bucketAccounts, key[:])
	if err != nil || v == nil {
		return nil, false, err
	}
	a, err := consensus.ParseAccount(v)
	if err != nil {
		return nil, false, errors.Wrapf(err, "account %s", key)
	}
	return a, true, nil
}

// applyMutations writes m inside an open update. Deletes apply before puts.
func applyMutations(w kvWriter, m *consensus.Mutations) error {
	if m == nil {
		return nil
	}
	for _, k := range m.DelAccounts {
		v, err := w.get(bucketAccounts, k[:])
		if err != nil {
			return err
		}
		if v != nil {
			a, err := consensus.ParseAccount(v)
			if err != nil {
				return errors.Wrapf(err, "account %s", k)
			}
			if a.HasRegID {
				cur, err := w.get(bucketRegIDs, a.RegID.Bytes())
				if err != nil {
					return err
				}
				if bytes.Equal(cur, k[:]) {
					if err := w.del(bucketRegIDs, a.RegID.Bytes()); err != nil {
						return err
					}
				}
			}
		}
		if err := w.del(bucketAccounts, k[:]); err != nil {
			return err
		}
	}
	for _, r := range m.DelRegIDs {
		if err := w.del(bucketRegIDs, r.Bytes()); err != nil {
			return err
		}
	}
	for _, id := range m.DelLinks {
		if err := w.del(bucketLinks, id[:]); err != nil {
			return err
		}
	}
	for _, id := range m.DelReceipts {
		if err := w.del(bucketReceipts, id[:]); err != nil {
			return err
		}
	}

	for _, a := range m.Accounts {
		raw, err := consensus.MarshalAccount(a)
		if err != nil {
			return err
		}
		if err := w.put(bucketAccounts, a.KeyID[:], raw); err != nil {
			return err
		}
		if a.HasRegID {
			if err := w.put(bucketRegIDs, a.RegID.Bytes(), a.KeyID[:]); err != nil {
				return err
			}
		}
	}
	for _, p := range m.PutLinks {
		raw, err := consensus.MarshalUtxoLink(p.Link)
		if err != nil {
			return errors.Wrapf(err, "link %x", p.Txid)
		}
		if err := w.put(bucketLinks, p.Txid[:], raw); err != nil {
			return err
		}
	}
	for _, p := range m.PutReceipts {
		raw, err := consensus.MarshalReceipts(p.Receipts)
		if err != nil {
			return errors.Wrapf(err, "receipts %x", p.Txid)
		}
		if err := w.put(bucketReceipts, p.Txid[:], raw); err != nil {
			return err
		}
	}
	return nil
}

func hex32(b32 [32]byte) string {
	return hex.EncodeToString(b32[:])
}
