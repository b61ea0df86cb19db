package crypto

// CryptoProvider is the narrow crypto interface used by consensus code.
type CryptoProvider interface {
	SHA3_256(input []byte) [32]byte
	// VerifySecp256k1 checks a DER-encoded ECDSA signature over digest32
	// against a 33-byte compressed public key.
	VerifySecp256k1(pubkey []byte, sig []byte, digest32 [32]byte) bool
}
