package consensus

import "github.com/kongsikongsideveloper/WaykiChain/crypto"

// SecretDigest is the hash-lock commitment over the locking sender, the
// revealed secret and the locking tx's valid height. The sender is bound by
// its string form, so the same account named by RegID or by pubkey yields
// different digests.
func SecretDigest(p crypto.CryptoProvider, locker UserID, secret []byte, validHeight uint64) [32]byte {
	uid := locker.String()
	preimage := make([]byte, 0, 9+len(uid)+9+len(secret)+8)
	preimage = appendVarBytes(preimage, []byte(uid))
	preimage = appendVarBytes(preimage, secret)
	preimage = appendU64le(preimage, validHeight)
	inner := p.SHA3_256(preimage)
	return p.SHA3_256(inner[:])
}
