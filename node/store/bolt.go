package store

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

type boltBackend struct {
	db *bolt.DB
}

func openBolt(dbDir string) (*boltBackend, error) {
	path := filepath.Join(dbDir, "kv.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open bbolt")
	}
	if err := bdb.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return errors.Wrapf(err, "create bucket %s", string(b))
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return &boltBackend{db: bdb}, nil
}

type boltTx struct {
	tx *bolt.Tx
}

func (t boltTx) bucket(name []byte) (*bolt.Bucket, error) {
	b := t.tx.Bucket(name)
	if b == nil {
		return nil, errors.Errorf("bucket %s missing", string(name))
	}
	return b, nil
}

func (t boltTx) get(bucket, key []byte) ([]byte, error) {
	b, err := t.bucket(bucket)
	if err != nil {
		return nil, err
	}
	v := b.Get(key)
	if v == nil {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (t boltTx) forEach(bucket []byte, fn func(k, v []byte) error) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return b.ForEach(func(k, v []byte) error {
		return fn(append([]byte(nil), k...), append([]byte(nil), v...))
	})
}

func (t boltTx) put(bucket, key, value []byte) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return b.Put(key, value)
}

func (t boltTx) del(bucket, key []byte) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return b.Delete(key)
}

func (b *boltBackend) view(fn func(r kvReader) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return fn(boltTx{tx: tx})
	})
}

func (b *boltBackend) update(fn func(w kvWriter) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return fn(boltTx{tx: tx})
	})
}

func (b *boltBackend) close() error {
	return b.db.Close()
}
