package store

import (
	"fmt"
)

// Namespaces. bbolt keeps each in its own bucket; leveldb prefixes keys with
// the namespace name and a separator.
var (
	bucketAccounts = []byte("accounts_by_keyid")
	bucketRegIDs   = []byte("keyid_by_regid")
	bucketLinks    = []byte("utxo_link_by_txid")
	bucketReceipts = []byte("receipts_by_txid")
	bucketBlocks   = []byte("blocks_by_hash")
	bucketHeights  = []byte("hash_by_height")
	bucketUndo     = []byte("undo_by_block_hash")
	bucketMeta     = []byte("meta")

	allBuckets = [][]byte{
		bucketAccounts, bucketRegIDs, bucketLinks, bucketReceipts,
		bucketBlocks, bucketHeights, bucketUndo, bucketMeta,
	}
)

const (
	BackendBolt    = "bolt"
	BackendLevelDB = "leveldb"
)

// kvReader is a consistent read view. Returned values are copies.
type kvReader interface {
	get(bucket, key []byte) ([]byte, error)
	forEach(bucket []byte, fn func(k, v []byte) error) error
}

// kvWriter sees its own pending writes. Nothing is visible to other readers
// until the enclosing update returns nil.
type kvWriter interface {
	kvReader
	put(bucket, key, value []byte) error
	del(bucket, key []byte) error
}

type kvBackend interface {
	view(fn func(r kvReader) error) error
	update(fn func(w kvWriter) error) error
	close() error
}

func openBackend(kind string, dbDir string) (kvBackend, error) {
	switch kind {
	case "", BackendBolt:
		return openBolt(dbDir)
	case BackendLevelDB:
		return openLevelDB(dbDir)
	default:
		return nil, fmt.Errorf("unknown db backend %q", kind)
	}
}
