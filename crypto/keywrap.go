package crypto

import (
	"crypto/aes"
	"crypto/subtle"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Keystore keys are wrapped with AES-256 key wrap (RFC 3394).

var ErrKeyWrapIntegrity = errors.New("keywrap: integrity check failed")

var keyWrapIV = []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

const (
	keyWrapKEKBytes = 32
	keyWrapMinKey   = 16
	keyWrapMaxKey   = 4096
)

// WrapKey returns IV-checked ciphertext 8 bytes longer than key. key must be
// a multiple of 8 bytes.
func WrapKey(kek, key []byte) ([]byte, error) {
	if len(kek) != keyWrapKEKBytes {
		return nil, errors.Errorf("keywrap: kek is %d bytes, want %d", len(kek), keyWrapKEKBytes)
	}
	if len(key) < keyWrapMinKey || len(key) > keyWrapMaxKey || len(key)%8 != 0 {
		return nil, errors.Errorf("keywrap: bad key length %d", len(key))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, errors.Wrap(err, "keywrap")
	}

	// out = A | R[1..n], updated in place.
	out := make([]byte, 8+len(key))
	copy(out, keyWrapIV)
	copy(out[8:], key)
	n := len(key) / 8

	var buf [aes.BlockSize]byte
	for j := 0; j < 6; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[:8], out[:8])
			copy(buf[8:], out[8*i:8*i+8])
			block.Encrypt(buf[:], buf[:])
			t := uint64(n*j + i) // #nosec G115 -- n is bounded by keyWrapMaxKey.
			binary.BigEndian.PutUint64(out[:8], binary.BigEndian.Uint64(buf[:8])^t)
			copy(out[8*i:8*i+8], buf[8:])
		}
	}
	return out, nil
}

// UnwrapKey reverses WrapKey and fails with ErrKeyWrapIntegrity under the
// wrong kek.
func UnwrapKey(kek, wrapped []byte) ([]byte, error) {
	if len(kek) != keyWrapKEKBytes {
		return nil, errors.Errorf("keywrap: kek is %d bytes, want %d", len(kek), keyWrapKEKBytes)
	}
	if len(wrapped) < keyWrapMinKey+8 || len(wrapped) > keyWrapMaxKey+8 || len(wrapped)%8 != 0 {
		return nil, errors.Errorf("keywrap: bad wrapped length %d", len(wrapped))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, errors.Wrap(err, "keywrap")
	}

	work := append([]byte(nil), wrapped...)
	n := len(work)/8 - 1

	var buf [aes.BlockSize]byte
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i) // #nosec G115 -- n is bounded by keyWrapMaxKey.
			binary.BigEndian.PutUint64(buf[:8], binary.BigEndian.Uint64(work[:8])^t)
			copy(buf[8:], work[8*i:8*i+8])
			block.Decrypt(buf[:], buf[:])
			copy(work[:8], buf[:8])
			copy(work[8*i:8*i+8], buf[8:])
		}
	}
	if subtle.ConstantTimeCompare(work[:8], keyWrapIV) != 1 {
		return nil, ErrKeyWrapIntegrity
	}
	return work[8:], nil
}
