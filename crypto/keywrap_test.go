package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyWrap_Roundtrip(t *testing.T) {
	kek := bytes.Repeat([]byte{0x11}, 32)
	for _, size := range []int{16, 32, 40} {
		key := bytes.Repeat([]byte{0x22}, size)
		wrapped, err := WrapKey(kek, key)
		require.NoError(t, err)
		require.Len(t, wrapped, size+8)

		plain, err := UnwrapKey(kek, wrapped)
		require.NoError(t, err)
		require.Equal(t, key, plain)
	}
}

func TestKeyWrap_WrongKEK(t *testing.T) {
	wrapped, err := WrapKey(bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 32))
	require.NoError(t, err)

	_, err = UnwrapKey(bytes.Repeat([]byte{0x12}, 32), wrapped)
	require.ErrorIs(t, err, ErrKeyWrapIntegrity)

	wrapped[len(wrapped)-1] ^= 1
	_, err = UnwrapKey(bytes.Repeat([]byte{0x11}, 32), wrapped)
	require.ErrorIs(t, err, ErrKeyWrapIntegrity)
}

// RFC 3394 section 4.6: 256 bits of key data under a 256-bit KEK.
func TestKeyWrap_RFC3394Vector(t *testing.T) {
	kek := mustHex(t, "000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F")
	data := mustHex(t, "00112233445566778899AABBCCDDEEFF000102030405060708090A0B0C0D0E0F")
	want := mustHex(t, "28C9F404C4B810F4CBCCB35CFB87F8263F5786E2D80ED326CBC7F0E71A99F43BFB988B9B7A02DD21")

	got, err := WrapKey(kek, data)
	require.NoError(t, err)
	require.Equal(t, want, got)

	plain, err := UnwrapKey(kek, want)
	require.NoError(t, err)
	require.Equal(t, data, plain)
}

func TestKeyWrap_BadLengths(t *testing.T) {
	_, err := WrapKey(make([]byte, 16), make([]byte, 32))
	require.Error(t, err)
	_, err = WrapKey(make([]byte, 32), make([]byte, 20))
	require.Error(t, err)
	_, err = UnwrapKey(make([]byte, 32), make([]byte, 16))
	require.Error(t, err)
}
