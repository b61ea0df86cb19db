package node

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
	"github.com/kongsikongsideveloper/WaykiChain/crypto"
)

const (
	keyStoreVersion = "WKKSv1"
	keyStoreWrapAlg = "AES-256-KW"
	keyStoreKDF     = "scrypt"
)

// ScryptParams sets the passphrase KDF cost.
type ScryptParams struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

var DefaultScryptParams = ScryptParams{N: 1 << 15, R: 8, P: 1}

// KeyStore is a secp256k1 private key wrapped with AES-KW under a
// scrypt-derived KEK.
type KeyStore struct {
	Version      string       `json:"version"`
	PubkeyHex    string       `json:"pubkey_hex"`
	Address      string       `json:"address"`
	KDF          string       `json:"kdf"`
	KDFParams    ScryptParams `json:"kdf_params"`
	SaltHex      string       `json:"salt_hex"`
	WrapAlg      string       `json:"wrap_alg"`
	WrappedSKHex string       `json:"wrapped_sk_hex"`
}

func deriveKEK(passphrase []byte, salt []byte, sp ScryptParams) ([]byte, error) {
	kek, err := scrypt.Key(passphrase, salt, sp.N, sp.R, sp.P, 32)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}
	return kek, nil
}

// EncryptKey wraps s under passphrase. salt must be at least 16 bytes.
func EncryptKey(s *crypto.Signer, passphrase []byte, salt []byte, sp ScryptParams) (*KeyStore, error) {
	if len(salt) < 16 {
		return nil, fmt.Errorf("salt must be at least 16 bytes")
	}
	kek, err := deriveKEK(passphrase, salt, sp)
	if err != nil {
		return nil, err
	}
	wrapped, err := crypto.WrapKey(kek, s.Bytes())
	if err != nil {
		return nil, err
	}
	pub := s.PubKey()
	return &KeyStore{
		Version:      keyStoreVersion,
		PubkeyHex:    hex.EncodeToString(pub),
		Address:      consensus.Hash160(pub).Address(),
		KDF:          keyStoreKDF,
		KDFParams:    sp,
		SaltHex:      hex.EncodeToString(salt),
		WrapAlg:      keyStoreWrapAlg,
		WrappedSKHex: hex.EncodeToString(wrapped),
	}, nil
}

// Decrypt unwraps the key and checks it against the recorded pubkey.
func (ks *KeyStore) Decrypt(passphrase []byte) (*crypto.Signer, error) {
	salt, err := hex.DecodeString(ks.SaltHex)
	if err != nil {
		return nil, fmt.Errorf("salt_hex: %w", err)
	}
	wrapped, err := hex.DecodeString(ks.WrappedSKHex)
	if err != nil {
		return nil, fmt.Errorf("wrapped_sk_hex: %w", err)
	}
	kek, err := deriveKEK(passphrase, salt, ks.KDFParams)
	if err != nil {
		return nil, err
	}
	sk, err := crypto.UnwrapKey(kek, wrapped)
	if err != nil {
		return nil, fmt.Errorf("unwrap (wrong passphrase?): %w", err)
	}
	s, err := crypto.SignerFromBytes(sk)
	if err != nil {
		return nil, err
	}
	if got := hex.EncodeToString(s.PubKey()); !strings.EqualFold(got, ks.PubkeyHex) {
		return nil, fmt.Errorf("keystore pubkey mismatch: embedded=%s derived=%s", ks.PubkeyHex, got)
	}
	return s, nil
}

func WriteKeyStore(path string, ks *KeyStore) error {
	b, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(b, '\n'), 0o600)
}

func ReadKeyStore(path string) (*KeyStore, error) {
	raw, err := ReadFileByPath(path)
	if err != nil {
		return nil, err
	}
	var ks KeyStore
	if err := json.Unmarshal(raw, &ks); err != nil {
		return nil, err
	}
	if ks.Version != keyStoreVersion {
		return nil, fmt.Errorf("unsupported keystore version: %q", ks.Version)
	}
	if strings.ToUpper(ks.WrapAlg) != keyStoreWrapAlg {
		return nil, fmt.Errorf("unsupported wrap_alg: %q", ks.WrapAlg)
	}
	if ks.KDF != keyStoreKDF {
		return nil, fmt.Errorf("unsupported kdf: %q", ks.KDF)
	}
	return &ks, nil
}
