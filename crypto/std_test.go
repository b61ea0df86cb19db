package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestStdSHA3_256_KnownVector(t *testing.T) {
	sum := StdCryptoProvider{}.SHA3_256([]byte("abc"))
	// SHA3-256("abc")
	require.Equal(t, "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532", hex.EncodeToString(sum[:]))
}

func TestSignVerifyRoundtrip(t *testing.T) {
	s, err := GenerateSigner()
	require.NoError(t, err)
	require.True(t, IsFullyValidPubKey(s.PubKey()))

	var digest [32]byte
	digest[0] = 0x42
	sig := s.Sign(digest)

	p := StdCryptoProvider{}
	require.True(t, p.VerifySecp256k1(s.PubKey(), sig, digest))

	digest[1] = 0x01
	require.False(t, p.VerifySecp256k1(s.PubKey(), sig, digest), "signature must not verify over a different digest")
}

func TestVerifyRejectsWrongKeyAndGarbage(t *testing.T) {
	a, err := GenerateSigner()
	require.NoError(t, err)
	b, err := GenerateSigner()
	require.NoError(t, err)

	var digest [32]byte
	sig := a.Sign(digest)
	p := StdCryptoProvider{}
	require.False(t, p.VerifySecp256k1(b.PubKey(), sig, digest))
	require.False(t, p.VerifySecp256k1(a.PubKey(), []byte{0x30, 0x01}, digest))
	require.False(t, p.VerifySecp256k1(a.PubKey()[:20], sig, digest))
	require.False(t, p.VerifySecp256k1(a.PubKey(), nil, digest))
}

func TestSignerFromBytesRoundtrip(t *testing.T) {
	s, err := GenerateSigner()
	require.NoError(t, err)
	s2, err := SignerFromBytes(s.Bytes())
	require.NoError(t, err)
	require.Equal(t, s.PubKey(), s2.PubKey())

	_, err = SignerFromBytes(make([]byte, 31))
	require.Error(t, err)
	_, err = SignerFromBytes(make([]byte, 32))
	require.Error(t, err)
}

func TestIsFullyValidPubKey(t *testing.T) {
	require.False(t, IsFullyValidPubKey(nil))
	bad := make([]byte, 33)
	bad[0] = 0x04
	require.False(t, IsFullyValidPubKey(bad))
	require.False(t, IsFullyValidPubKey(bad[:32]))
}
