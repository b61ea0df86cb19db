package store

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ldbOptions = opt.Options{
	Compression:            opt.NoCompression,
	BlockCacheCapacity:     64 * opt.MiB,
	WriteBuffer:            32 * opt.MiB,
	DisableSeeksCompaction: true,
}

type levelBackend struct {
	ldb *leveldb.DB
}

func openLevelDB(dbDir string) (*levelBackend, error) {
	path := filepath.Join(dbDir, "leveldb")
	ldb, err := leveldb.OpenFile(path, &ldbOptions)
	if _, corrupted := err.(*ldbErrors.ErrCorrupted); corrupted {
		ldb, err = leveldb.RecoverFile(path, &ldbOptions)
		if err != nil {
			return nil, errors.Wrapf(err, "recover leveldb %s", path)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb %s", path)
	}
	return &levelBackend{ldb: ldb}, nil
}

func prefixedKey(bucket, key []byte) []byte {
	out := make([]byte, 0, len(bucket)+1+len(key))
	out = append(out, bucket...)
	out = append(out, '/')
	return append(out, key...)
}

// levelReader reads from a snapshot so a view sees one consistent state.
type levelReader struct {
	snap *leveldb.Snapshot
}

func (r levelReader) get(bucket, key []byte) ([]byte, error) {
	v, err := r.snap.Get(prefixedKey(bucket, key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (r levelReader) forEach(bucket []byte, fn func(k, v []byte) error) error {
	prefix := prefixedKey(bucket, nil)
	it := r.snap.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		k := append([]byte(nil), it.Key()[len(prefix):]...)
		v := append([]byte(nil), it.Value()...)
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return it.Error()
}

// levelWriter stages writes in a batch and keeps a pending map so reads
// inside the update observe them.
type levelWriter struct {
	levelReader
	batch   *leveldb.Batch
	pending map[string][]byte // nil value: deleted
}

func (w *levelWriter) get(bucket, key []byte) ([]byte, error) {
	if v, ok := w.pending[string(prefixedKey(bucket, key))]; ok {
		if v == nil {
			return nil, nil
		}
		return append([]byte(nil), v...), nil
	}
	return w.levelReader.get(bucket, key)
}

func (w *levelWriter) forEach(bucket []byte, fn func(k, v []byte) error) error {
	if len(w.pending) > 0 {
		return errors.New("leveldb: iteration inside a dirty update is not supported")
	}
	return w.levelReader.forEach(bucket, fn)
}

func (w *levelWriter) put(bucket, key, value []byte) error {
	k := prefixedKey(bucket, key)
	w.batch.Put(k, value)
	w.pending[string(k)] = append([]byte{}, value...)
	return nil
}

func (w *levelWriter) del(bucket, key []byte) error {
	k := prefixedKey(bucket, key)
	w.batch.Delete(k)
	w.pending[string(k)] = nil
	return nil
}

func (b *levelBackend) view(fn func(r kvReader) error) error {
	snap, err := b.ldb.GetSnapshot()
	if err != nil {
		return errors.Wrap(err, "leveldb snapshot")
	}
	defer snap.Release()
	return fn(levelReader{snap: snap})
}

func (b *levelBackend) update(fn func(w kvWriter) error) error {
	snap, err := b.ldb.GetSnapshot()
	if err != nil {
		return errors.Wrap(err, "leveldb snapshot")
	}
	defer snap.Release()
	w := &levelWriter{
		levelReader: levelReader{snap: snap},
		batch:       new(leveldb.Batch),
		pending:     make(map[string][]byte),
	}
	if err := fn(w); err != nil {
		return err
	}
	return errors.Wrap(b.ldb.Write(w.batch, &opt.WriteOptions{Sync: true}), "leveldb write batch")
}

func (b *levelBackend) close() error {
	return b.ldb.Close()
}
