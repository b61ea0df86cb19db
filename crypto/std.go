package crypto

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

const (
	PubKeyCompressedBytes = 33
	PrivKeyBytes          = 32
)

// StdCryptoProvider backs consensus with SHA3-256 and secp256k1 ECDSA.
type StdCryptoProvider struct{}

func (StdCryptoProvider) SHA3_256(input []byte) [32]byte {
	return sha3.Sum256(input)
}

func (StdCryptoProvider) VerifySecp256k1(pubkey []byte, sig []byte, digest32 [32]byte) bool {
	if len(pubkey) != PubKeyCompressedBytes || len(sig) == 0 {
		return false
	}
	pk, err := secp256k1.ParsePubKey(pubkey)
	if err != nil {
		return false
	}
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return s.Verify(digest32[:], pk)
}

// IsFullyValidPubKey reports whether b is a compressed secp256k1 point on the curve.
func IsFullyValidPubKey(b []byte) bool {
	if len(b) != PubKeyCompressedBytes || (b[0] != 0x02 && b[0] != 0x03) {
		return false
	}
	_, err := secp256k1.ParsePubKey(b)
	return err == nil
}
