package node

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
	"github.com/kongsikongsideveloper/WaykiChain/crypto"
	"github.com/kongsikongsideveloper/WaykiChain/node/store"
)

const (
	unit    = 10_000
	testFee = 10_000
)

var testProvider = crypto.StdCryptoProvider{}

type testKey struct {
	signer *crypto.Signer
	pub    []byte
}

func newTestKey(t *testing.T) testKey {
	t.Helper()
	s, err := crypto.GenerateSigner()
	require.NoError(t, err)
	return testKey{signer: s, pub: s.PubKey()}
}

func (k testKey) keyID() consensus.KeyID { return consensus.Hash160(k.pub) }

func (k testKey) sign(t *testing.T, tx *consensus.CoinUTXOTx) *consensus.Tx {
	t.Helper()
	tx.Signature = nil
	digest, err := consensus.CoinUTXOTxid(testProvider, tx)
	require.NoError(t, err)
	tx.Signature = k.signer.Sign(digest)
	return consensus.NewCoinUTXOTx(tx)
}

// ledgerFixture is a store initialised with two funded genesis accounts:
// sender at 0-1 and beneficiary at 0-2.
type ledgerFixture struct {
	db     *store.DB
	proc   *Processor
	sender testKey
	bene   testKey
	sRID   consensus.RegID
	bRID   consensus.RegID
}

func newLedgerFixture(t *testing.T, backend string) *ledgerFixture {
	t.Helper()
	db, err := store.Open(t.TempDir(), store.Options{Network: "regtest", Backend: backend})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &ledgerFixture{
		db:     db,
		sender: newTestKey(t),
		bene:   newTestKey(t),
		sRID:   consensus.RegID{Height: 0, Index: 1},
		bRID:   consensus.RegID{Height: 0, Index: 2},
	}
	g, err := BuildGenesis(testProvider, consensus.DefaultParams(), &GenesisFile{Accounts: []GenesisAlloc{
		{PubKey: hex.EncodeToString(f.sender.pub), Balances: map[string]uint64{consensus.SYMBOL_WICC: 100 * unit}},
		{PubKey: hex.EncodeToString(f.bene.pub), Balances: map[string]uint64{consensus.SYMBOL_WICC: 10 * unit}},
	}})
	require.NoError(t, err)
	require.NoError(t, db.InitGenesis(g))
	f.proc = NewProcessor(db, ProcessorOptions{Workers: 4})
	return f
}

func (f *ledgerFixture) tip(t *testing.T) store.Tip {
	t.Helper()
	tip, ok, err := f.db.Tip()
	require.NoError(t, err)
	require.True(t, ok)
	return tip
}

func (f *ledgerFixture) nextBlock(t *testing.T, txs ...*consensus.Tx) *Block {
	t.Helper()
	tip := f.tip(t)
	return &Block{Height: tip.Height + 1, PrevHash: tip.Hash, Txs: txs}
}

func (f *ledgerFixture) connect(t *testing.T, txs ...*consensus.Tx) [32]byte {
	t.Helper()
	h, err := f.proc.ConnectBlock(context.Background(), f.nextBlock(t, txs...))
	require.NoError(t, err)
	return h
}

// advanceTo connects empty blocks until the tip is at height h.
func (f *ledgerFixture) advanceTo(t *testing.T, h uint64) {
	t.Helper()
	for f.tip(t).Height < h {
		f.connect(t)
	}
}

func (f *ledgerFixture) balance(t *testing.T, uid consensus.UserID) uint64 {
	t.Helper()
	a, ok, err := f.db.GetAccount(uid)
	require.NoError(t, err)
	require.True(t, ok, "account %s missing", uid)
	return a.GetBalance(consensus.SYMBOL_WICC, consensus.FREE_VALUE)
}

func lockTx(from consensus.UserID, to consensus.UserID, amount, lock, validHeight uint64) *consensus.CoinUTXOTx {
	return &consensus.CoinUTXOTx{
		Version:     1,
		TxUID:       from,
		FeeSymbol:   consensus.SYMBOL_WICC,
		Fees:        testFee,
		ValidHeight: validHeight,
		Utxo: consensus.CoinUTXO{
			CoinSymbol:   consensus.SYMBOL_WICC,
			CoinAmount:   amount,
			ToUID:        to,
			LockDuration: lock,
		},
	}
}

func claimTx(from consensus.UserID, prior [32]byte, validHeight uint64) *consensus.CoinUTXOTx {
	return &consensus.CoinUTXOTx{
		Version:       1,
		TxUID:         from,
		FeeSymbol:     consensus.SYMBOL_WICC,
		Fees:          testFee,
		ValidHeight:   validHeight,
		PriorUtxoTxid: prior,
		Utxo:          consensus.NullUTXO(),
	}
}

func txid(t *testing.T, tx *consensus.Tx) [32]byte {
	t.Helper()
	id, err := tx.Txid()
	require.NoError(t, err)
	return id
}

func requireTxCode(t *testing.T, err error, want consensus.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	code, ok := consensus.CodeOf(err)
	require.True(t, ok, "no tx error code in %v", err)
	require.Equal(t, want, code, "err: %v", err)
}
