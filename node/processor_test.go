package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
	"github.com/kongsikongsideveloper/WaykiChain/node/store"
)

func TestProcessor_TimeLockedLinkConnectDisconnectReconnect(t *testing.T) {
	for _, backend := range []string{store.BackendBolt, store.BackendLevelDB} {
		t.Run(backend, func(t *testing.T) {
			f := newLedgerFixture(t, backend)
			sUID := consensus.NewRegIDUID(f.sRID)
			bUID := consensus.NewRegIDUID(f.bRID)

			lock := f.sender.sign(t, lockTx(sUID, bUID, 50*unit, 10, 1))
			f.connect(t, lock)
			prior := txid(t, lock)
			assert.Equal(t, uint64(100*unit-testFee-50*unit), f.balance(t, sUID))

			f.advanceTo(t, 4)
			early := f.bene.sign(t, claimTx(bUID, prior, 5))
			_, err := f.proc.ConnectBlock(context.Background(), f.nextBlock(t, early))
			requireTxCode(t, err, consensus.TX_ERR_PRIOR_LINK_LOCKED)
			var be *BlockError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, 0, be.Index)
			assert.Equal(t, uint64(4), f.tip(t).Height, "a rejected block leaves the tip alone")

			f.advanceTo(t, 14)
			beforeClaim := f.tip(t)
			claim := f.bene.sign(t, claimTx(bUID, prior, 15))
			claimBlock := f.nextBlock(t, claim)
			hash, err := f.proc.ConnectBlock(context.Background(), claimBlock)
			require.NoError(t, err)

			assert.Equal(t, uint64(100*unit-testFee-50*unit), f.balance(t, sUID))
			assert.Equal(t, uint64(10*unit-testFee), f.balance(t, bUID))
			link, ok, err := f.db.GetUtxoTx(prior)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, txid(t, claim), link.SpentBy)

			tip, err := f.proc.DisconnectTip(context.Background())
			require.NoError(t, err)
			assert.Equal(t, beforeClaim, tip)
			link, _, err = f.db.GetUtxoTx(prior)
			require.NoError(t, err)
			assert.False(t, link.IsSpent())
			_, ok, err = f.db.GetUtxoTx(txid(t, claim))
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, uint64(10*unit), f.balance(t, bUID))

			again, err := f.proc.ConnectBlock(context.Background(), claimBlock)
			require.NoError(t, err)
			assert.Equal(t, hash, again)

			for f.tip(t).Height > 0 {
				_, err := f.proc.DisconnectTip(context.Background())
				require.NoError(t, err)
			}
			assert.Equal(t, uint64(100*unit), f.balance(t, sUID))
			_, ok, err = f.db.GetUtxoTx(prior)
			require.NoError(t, err)
			assert.False(t, ok)
			_, err = f.proc.DisconnectTip(context.Background())
			require.ErrorIs(t, err, store.ErrRevertGenesis)

			st := f.proc.Stats()
			assert.Equal(t, uint64(16), st.BlocksConnected)
			assert.Equal(t, uint64(16), st.BlocksDisconnected)
			assert.Equal(t, uint64(1), st.TxRejected)
		})
	}
}

func TestProcessor_SameBlockChainIsRevalidatedAgainstOverlay(t *testing.T) {
	f := newLedgerFixture(t, store.BackendBolt)
	sUID := consensus.NewRegIDUID(f.sRID)
	bUID := consensus.NewRegIDUID(f.bRID)

	lock := f.sender.sign(t, lockTx(sUID, bUID, 20*unit, 0, 1))
	claim := f.bene.sign(t, claimTx(bUID, txid(t, lock), 1))
	f.connect(t, lock, claim)

	assert.GreaterOrEqual(t, f.proc.Stats().TxRevalidated, uint64(1))
	link, ok, err := f.db.GetUtxoTx(txid(t, lock))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, txid(t, claim), link.SpentBy)

	// Same order reversed: the claim cannot see a prior that comes later.
	f2 := newLedgerFixture(t, store.BackendBolt)
	lock2 := f2.sender.sign(t, lockTx(consensus.NewRegIDUID(f2.sRID), consensus.NewRegIDUID(f2.bRID), 20*unit, 0, 1))
	claim2 := f2.bene.sign(t, claimTx(consensus.NewRegIDUID(f2.bRID), txid(t, lock2), 1))
	_, err = f2.proc.ConnectBlock(context.Background(), f2.nextBlock(t, claim2, lock2))
	requireTxCode(t, err, consensus.TX_ERR_MISSING_PRIOR_LINK)
}

func TestProcessor_SenderDrainedByEarlierTxIsCaught(t *testing.T) {
	f := newLedgerFixture(t, store.BackendBolt)
	sUID := consensus.NewRegIDUID(f.sRID)
	bUID := consensus.NewRegIDUID(f.bRID)

	// Each passes alone against the committed balance; together they overspend.
	a := f.sender.sign(t, lockTx(sUID, bUID, 60*unit, 0, 1))
	b := f.sender.sign(t, lockTx(sUID, bUID, 60*unit, 0, 2))
	_, err := f.proc.ConnectBlock(context.Background(), f.nextBlock(t, a, b))
	requireTxCode(t, err, consensus.TX_ERR_INSUFFICIENT_BALANCE)
	var be *BlockError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1, be.Index)
	assert.Equal(t, uint64(100*unit), f.balance(t, sUID), "nothing of the failed block persists")
}

func TestProcessor_StructuralRules(t *testing.T) {
	f := newLedgerFixture(t, store.BackendBolt)
	sUID := consensus.NewRegIDUID(f.sRID)
	bUID := consensus.NewRegIDUID(f.bRID)
	lock := f.sender.sign(t, lockTx(sUID, bUID, 5*unit, 0, 1))
	f.connect(t, lock)
	prior := txid(t, lock)

	reward := consensus.NewCoinRewardTx(&consensus.CoinRewardTx{
		Version: 1, TxUID: sUID, Symbol: consensus.SYMBOL_WICC, Coins: unit, Height: 2,
	})
	c1 := f.bene.sign(t, claimTx(bUID, prior, 2))
	c2 := f.bene.sign(t, claimTx(bUID, prior, 3))

	cases := []struct {
		name  string
		block *Block
	}{
		{"reward not first", f.nextBlock(t, c1, reward)},
		{"duplicate tx", f.nextBlock(t, c1, c1)},
		{"two spends of one prior", f.nextBlock(t, c1, c2)},
		{"replayed committed tx", f.nextBlock(t, lock)},
		{"nil tx", f.nextBlock(t, nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.proc.ConnectBlock(context.Background(), tc.block)
			require.ErrorIs(t, err, ErrBadBlock)
		})
	}

	wrongParent := f.nextBlock(t)
	wrongParent.PrevHash = [32]byte{1}
	_, err := f.proc.ConnectBlock(context.Background(), wrongParent)
	require.ErrorIs(t, err, ErrBadParent)

	f.connect(t, reward, c1)
	assert.Equal(t, uint64(100*unit-testFee-5*unit+unit), f.balance(t, sUID))
}

func TestProcessor_RewardCreatesAccountAndDisconnectRemovesIt(t *testing.T) {
	f := newLedgerFixture(t, store.BackendLevelDB)
	miner := newTestKey(t)
	reward := consensus.NewCoinRewardTx(&consensus.CoinRewardTx{
		Version: 1, TxUID: consensus.NewPubKeyUID(miner.pub), Symbol: consensus.SYMBOL_WICC, Coins: 3 * unit, Height: 1,
	})
	f.connect(t, reward)

	a, ok, err := f.db.GetAccount(consensus.NewRegIDUID(consensus.RegID{Height: 1, Index: 0}))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, miner.keyID(), a.KeyID)
	receipts, ok, err := f.db.GetTxReceipts(txid(t, reward))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, receipts, 1)
	assert.Equal(t, consensus.RECEIPT_BLOCK_REWARD, receipts[0].Code)

	_, err = f.proc.DisconnectTip(context.Background())
	require.NoError(t, err)
	_, ok, err = f.db.GetAccount(consensus.NewKeyIDUID(miner.keyID()))
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = f.db.GetAccount(consensus.NewRegIDUID(consensus.RegID{Height: 1, Index: 0}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcessor_NotInitialized(t *testing.T) {
	db, err := store.Open(t.TempDir(), store.Options{Network: "regtest"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	p := NewProcessor(db, ProcessorOptions{})
	_, err = p.ConnectBlock(context.Background(), &Block{Height: 1})
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = p.DisconnectTip(context.Background())
	require.ErrorIs(t, err, ErrNotInitialized)
}
