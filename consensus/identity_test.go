package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegID_StringParse(t *testing.T) {
	r := RegID{Height: 123, Index: 7}
	assert.Equal(t, "123-7", r.String())
	got, err := ParseRegID("123-7")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	for _, bad := range []string{"123", "a-1", "1-70000", "-1"} {
		_, err := ParseRegID(bad)
		assert.Error(t, err, bad)
	}
}

func TestKeyID_AddressRoundtrip(t *testing.T) {
	k := Hash160([]byte("pubkey"))
	addr := k.Address()
	got, err := ParseAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, k, got)

	// Flip one character to break the checksum.
	b := []byte(addr)
	if b[len(b)-1] == '1' {
		b[len(b)-1] = '2'
	} else {
		b[len(b)-1] = '1'
	}
	_, err = ParseAddress(string(b))
	assert.Error(t, err)
}

func TestParseUserID_AllForms(t *testing.T) {
	k := newTestKey(t)
	for _, u := range []UserID{NewRegIDUID(RegID{Height: 5, Index: 2}), k.keyUID(), k.pubUID()} {
		got, err := ParseUserID(u.String())
		require.NoError(t, err)
		assert.True(t, u.Equal(got), "%s", u)
	}
	null, err := ParseUserID("")
	require.NoError(t, err)
	assert.True(t, null.IsNull())
}

func TestUserID_EqualIsCanonical(t *testing.T) {
	k := newTestKey(t)
	assert.True(t, k.pubUID().Equal(NewPubKeyUID(k.pub)))
	assert.False(t, k.pubUID().Equal(k.keyUID()))
	assert.False(t, NewRegIDUID(RegID{Index: 1}).Equal(NewRegIDUID(RegID{Index: 2})))
}

func TestSameOwner_ResolvesThroughLedger(t *testing.T) {
	l := NewMemLedger()
	k := newTestKey(t)
	rid := RegID{Height: 2, Index: 1}
	seedAccount(t, l, k, rid, nil)

	forms := []UserID{NewRegIDUID(rid), k.keyUID(), k.pubUID()}
	for _, a := range forms {
		for _, b := range forms {
			same, err := SameOwner(l, a, b)
			require.NoError(t, err)
			assert.True(t, same, "%s vs %s", a, b)
		}
	}

	other := newTestKey(t)
	same, err := SameOwner(l, NewRegIDUID(rid), other.pubUID())
	require.NoError(t, err)
	assert.False(t, same)

	same, err = SameOwner(l, NewRegIDUID(RegID{Height: 99, Index: 1}), NewRegIDUID(RegID{Height: 99, Index: 1}))
	require.NoError(t, err)
	assert.True(t, same)

	same, err = SameOwner(l, UserID{}, UserID{})
	require.NoError(t, err)
	assert.False(t, same)
}
