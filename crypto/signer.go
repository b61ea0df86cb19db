package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Signer holds a secp256k1 private key. Used by wallets, tooling and tests;
// consensus only ever verifies.
type Signer struct {
	priv *secp256k1.PrivateKey
}

func GenerateSigner() (*Signer, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate secp256k1 key: %w", err)
	}
	return &Signer{priv: k}, nil
}

func SignerFromBytes(b []byte) (*Signer, error) {
	if len(b) != PrivKeyBytes {
		return nil, fmt.Errorf("private key must be %d bytes (got %d)", PrivKeyBytes, len(b))
	}
	k := secp256k1.PrivKeyFromBytes(b)
	if k.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero")
	}
	return &Signer{priv: k}, nil
}

func (s *Signer) PubKey() []byte {
	return s.priv.PubKey().SerializeCompressed()
}

func (s *Signer) Bytes() []byte {
	return s.priv.Serialize()
}

// Sign returns a DER-encoded ECDSA signature over digest32.
func (s *Signer) Sign(digest32 [32]byte) []byte {
	return ecdsa.Sign(s.priv, digest32[:]).Serialize()
}
