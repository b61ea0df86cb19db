package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlay_ReadsThroughAndShadowsBase(t *testing.T) {
	base := NewMemLedger()
	k := newTestKey(t)
	rid := RegID{Index: 1}
	seedAccount(t, base, k, rid, map[string]uint64{SYMBOL_WICC: 10})

	o := NewOverlay(base)
	a := mustAccount(t, o, NewRegIDUID(rid))
	assert.Equal(t, uint64(10), a.GetBalance(SYMBOL_WICC, FREE_VALUE))

	require.NoError(t, a.OperateBalance(SYMBOL_WICC, SUB_FREE, 4))
	require.NoError(t, o.Apply(&Mutations{Accounts: []*Account{a}}))

	assert.Equal(t, uint64(6), mustAccount(t, o, k.pubUID()).GetBalance(SYMBOL_WICC, FREE_VALUE))
	assert.Equal(t, uint64(6), mustAccount(t, o, NewRegIDUID(rid)).GetBalance(SYMBOL_WICC, FREE_VALUE))
	assert.Equal(t, uint64(10), mustAccount(t, base, k.keyUID()).GetBalance(SYMBOL_WICC, FREE_VALUE))
	assert.True(t, o.TouchesAccount(k.keyID))
}

func TestOverlay_RegIDRemovalHidesBaseEntry(t *testing.T) {
	base := NewMemLedger()
	k := newTestKey(t)
	rid := RegID{Height: 4, Index: 1}
	seedAccount(t, base, k, rid, nil)

	o := NewOverlay(base)
	a := mustAccount(t, o, k.keyUID())
	a.HasRegID = false
	a.RegID = RegID{}
	require.NoError(t, o.Apply(&Mutations{Accounts: []*Account{a}, DelRegIDs: []RegID{rid}}))

	_, ok, err := o.GetAccount(NewRegIDUID(rid))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, o.TouchesRegID(rid))
}

func TestOverlay_MutationsAreNetAndSorted(t *testing.T) {
	base := NewMemLedger()
	o := NewOverlay(base)

	a := NewAccount(KeyID{0x02})
	b := NewAccount(KeyID{0x01})
	require.NoError(t, o.Apply(&Mutations{
		Accounts: []*Account{a, b},
		PutLinks: []LinkPut{{Txid: [32]byte{0x09}, Link: &UtxoLink{Height: 1}}},
	}))
	require.NoError(t, o.Apply(&Mutations{DelLinks: [][32]byte{{0x09}}, DelAccounts: []KeyID{{0x03}}}))

	m := o.Mutations()
	require.Len(t, m.Accounts, 2)
	assert.Equal(t, KeyID{0x01}, m.Accounts[0].KeyID)
	assert.Equal(t, KeyID{0x02}, m.Accounts[1].KeyID)
	assert.Empty(t, m.PutLinks)
	assert.Equal(t, [][32]byte{{0x09}}, m.DelLinks)
	assert.Equal(t, []KeyID{{0x03}}, m.DelAccounts)
	assert.True(t, o.TouchesLink([32]byte{0x09}))

	require.NoError(t, base.Apply(m))
	_, ok, err := base.GetAccount(NewKeyIDUID(KeyID{0x01}))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOverlay_ReturnsCopies(t *testing.T) {
	o := NewOverlay(NewMemLedger())
	a := NewAccount(KeyID{0x05})
	require.NoError(t, o.Apply(&Mutations{Accounts: []*Account{a}}))
	require.NoError(t, a.OperateBalance(SYMBOL_WICC, ADD_FREE, 1))

	got := mustAccount(t, o, NewKeyIDUID(KeyID{0x05}))
	assert.Zero(t, got.GetBalance(SYMBOL_WICC, FREE_VALUE))
	require.NoError(t, got.OperateBalance(SYMBOL_WICC, ADD_FREE, 1))
	assert.Zero(t, mustAccount(t, o, NewKeyIDUID(KeyID{0x05})).GetBalance(SYMBOL_WICC, FREE_VALUE))
}
