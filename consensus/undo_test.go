package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerSnapshot struct {
	accounts map[KeyID]*Account
	links    map[[32]byte]*UtxoLink
}

func snapshotLedger(t *testing.T, l LedgerView, keys []KeyID, txids [][32]byte) ledgerSnapshot {
	t.Helper()
	s := ledgerSnapshot{accounts: map[KeyID]*Account{}, links: map[[32]byte]*UtxoLink{}}
	for _, k := range keys {
		a, ok, err := l.GetAccount(NewKeyIDUID(k))
		require.NoError(t, err)
		if ok {
			s.accounts[k] = a
		}
	}
	for _, id := range txids {
		link, ok, err := l.GetUtxoTx(id)
		require.NoError(t, err)
		if ok {
			s.links[id] = link
		}
	}
	return s
}

func TestUndo_RestoresLedgerBitForBit(t *testing.T) {
	f := newChainFixture(t)
	out := CoinUTXO{CoinSymbol: SYMBOL_WICC, CoinAmount: 40 * unit, ToUID: NewRegIDUID(f.bRID)}
	prior := f.lockGenesis(t, out, 1)
	keys := []KeyID{f.sender.keyID, f.bene.keyID, f.other.keyID}

	claim := signTx(t, f.bene, claimTx(NewRegIDUID(f.bRID), prior, nil,
		CoinUTXO{CoinSymbol: SYMBOL_WICC, CoinAmount: 40 * unit, ToUID: f.other.keyUID()}, 2))
	claimID := txidOf(t, claim)
	before := snapshotLedger(t, f.l, keys, [][32]byte{prior, claimID})
	require.NotContains(t, before.links, claimID)

	ctx := TxContext{Height: 2, Index: 1}
	delta, err := validateAndExecute(t, f.l, claim, ctx)
	require.NoError(t, err)
	mid := snapshotLedger(t, f.l, keys, [][32]byte{prior, claimID})
	require.NotEqual(t, before, mid)

	require.NoError(t, Undo(claim, delta, f.l))
	after := snapshotLedger(t, f.l, keys, [][32]byte{prior, claimID})
	assert.Equal(t, before, after)

	_, ok, err := f.l.GetTxReceipts(claimID)
	require.NoError(t, err)
	assert.False(t, ok)

	// The parent is the resolvable head again.
	_, err = validateAndExecute(t, f.l, claim, ctx)
	require.NoError(t, err)
}

func TestUndo_GenesisCreditsFeeAndLockBack(t *testing.T) {
	f := newChainFixture(t)
	keys := []KeyID{f.sender.keyID}
	before := snapshotLedger(t, f.l, keys, nil)

	tx := signTx(t, f.sender, genesisTx(NewRegIDUID(f.sRID), NewRegIDUID(f.bRID), 30*unit, 0, 1))
	delta, err := validateAndExecute(t, f.l, tx, TxContext{Height: 1, Index: 1})
	require.NoError(t, err)
	require.Len(t, delta.BalanceChanges, 2)

	require.NoError(t, UndoTx(NewCoinUTXOTx(tx), delta, f.l))
	assert.Equal(t, before, snapshotLedger(t, f.l, keys, nil))
	_, ok, err := f.l.GetUtxoTx(txidOf(t, tx))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndo_ClearsAssignedRegID(t *testing.T) {
	l := NewMemLedger()
	s := newTestKey(t)
	seedAccount(t, l, s, RegID{}, map[string]uint64{SYMBOL_WICC: 10 * unit})
	before := snapshotLedger(t, l, []KeyID{s.keyID}, nil)

	tx := signTx(t, s, genesisTx(s.pubUID(), newTestKey(t).keyUID(), unit, 0, 9))
	delta, err := validateAndExecute(t, l, tx, TxContext{Height: 9, Index: 2})
	require.NoError(t, err)

	require.NoError(t, Undo(tx, delta, l))
	assert.Equal(t, before, snapshotLedger(t, l, []KeyID{s.keyID}, nil))
	_, ok, err := l.GetAccount(NewRegIDUID(RegID{Height: 9, Index: 2}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndo_OutOfOrderIsRejected(t *testing.T) {
	f := newChainFixture(t)
	out := CoinUTXO{CoinSymbol: SYMBOL_WICC, CoinAmount: 40 * unit, ToUID: NewRegIDUID(f.bRID)}

	gen := genesisTx(NewRegIDUID(f.sRID), out.ToUID, out.CoinAmount, 0, 1)
	signTx(t, f.sender, gen)
	genDelta, err := validateAndExecute(t, f.l, gen, TxContext{Height: 1, Index: 1})
	require.NoError(t, err)

	claim := signTx(t, f.bene, claimTx(NewRegIDUID(f.bRID), txidOf(t, gen), nil, NullUTXO(), 2))
	claimDelta, err := validateAndExecute(t, f.l, claim, TxContext{Height: 2, Index: 1})
	require.NoError(t, err)

	requireCode(t, Undo(gen, genDelta, f.l), EXEC_ERR_UNDO_MISMATCH)
	requireCode(t, UndoTx(NewCoinUTXOTx(claim), genDelta, f.l), EXEC_ERR_UNDO_MISMATCH)

	require.NoError(t, Undo(claim, claimDelta, f.l))
	require.NoError(t, Undo(gen, genDelta, f.l))
}
