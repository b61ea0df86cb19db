package consensus

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // Hash160 is part of the address format.
)

type UIDKind uint8

const (
	UIDNull UIDKind = iota
	UIDRegID
	UIDKeyID
	UIDPubKey
)

const (
	KEY_ID_BYTES     = 20
	PUBKEY_BYTES     = 33
	REG_ID_BYTES     = 6
	addressVersionV1 = 0x49
)

// RegID is the compact account id assigned when an account first appears on chain:
// the height of the registering block and the tx index inside it.
type RegID struct {
	Height uint32
	Index  uint16
}

func (r RegID) IsEmpty() bool { return r == RegID{} }

func (r RegID) String() string {
	return fmt.Sprintf("%d-%d", r.Height, r.Index)
}

func (r RegID) Bytes() []byte {
	out := make([]byte, REG_ID_BYTES)
	binary.BigEndian.PutUint32(out[0:4], r.Height)
	binary.BigEndian.PutUint16(out[4:6], r.Index)
	return out
}

func ParseRegID(s string) (RegID, error) {
	h, i, ok := strings.Cut(s, "-")
	if !ok {
		return RegID{}, fmt.Errorf("regid %q: expected <height>-<index>", s)
	}
	height, err := strconv.ParseUint(h, 10, 32)
	if err != nil {
		return RegID{}, fmt.Errorf("regid %q: height: %w", s, err)
	}
	index, err := strconv.ParseUint(i, 10, 16)
	if err != nil {
		return RegID{}, fmt.Errorf("regid %q: index: %w", s, err)
	}
	return RegID{Height: uint32(height), Index: uint16(index)}, nil
}

// KeyID is Hash160(pubkey); accounts are keyed by it.
type KeyID [KEY_ID_BYTES]byte

func (k KeyID) IsZero() bool { return k == KeyID{} }

// Address renders the KeyID as a versioned base58 string with a 4-byte checksum.
func (k KeyID) Address() string {
	b := make([]byte, 0, 1+KEY_ID_BYTES+4)
	b = append(b, addressVersionV1)
	b = append(b, k[:]...)
	sum := doubleSHA256(b)
	b = append(b, sum[:4]...)
	return base58.Encode(b)
}

func (k KeyID) String() string { return k.Address() }

func ParseAddress(s string) (KeyID, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return KeyID{}, fmt.Errorf("address %q: %w", s, err)
	}
	if len(raw) != 1+KEY_ID_BYTES+4 || raw[0] != addressVersionV1 {
		return KeyID{}, fmt.Errorf("address %q: bad length or version", s)
	}
	sum := doubleSHA256(raw[:1+KEY_ID_BYTES])
	if !bytes.Equal(sum[:4], raw[1+KEY_ID_BYTES:]) {
		return KeyID{}, fmt.Errorf("address %q: checksum mismatch", s)
	}
	var k KeyID
	copy(k[:], raw[1:1+KEY_ID_BYTES])
	return k, nil
}

func Hash160(b []byte) KeyID {
	s := sha256.Sum256(b)
	h := ripemd160.New()
	_, _ = h.Write(s[:])
	var k KeyID
	copy(k[:], h.Sum(nil))
	return k
}

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// UserID identifies a participant. Only the field selected by Kind is meaningful.
type UserID struct {
	Kind   UIDKind
	RegID  RegID
	KeyID  KeyID
	PubKey []byte
}

func NewRegIDUID(r RegID) UserID { return UserID{Kind: UIDRegID, RegID: r} }

func NewKeyIDUID(k KeyID) UserID { return UserID{Kind: UIDKeyID, KeyID: k} }

func NewPubKeyUID(pub []byte) UserID {
	return UserID{Kind: UIDPubKey, PubKey: append([]byte(nil), pub...)}
}

func (u UserID) IsNull() bool { return u.Kind == UIDNull }

// Bytes is the canonical encoding: kind tag followed by the kind's payload.
func (u UserID) Bytes() []byte {
	switch u.Kind {
	case UIDRegID:
		return append([]byte{byte(UIDRegID)}, u.RegID.Bytes()...)
	case UIDKeyID:
		return append([]byte{byte(UIDKeyID)}, u.KeyID[:]...)
	case UIDPubKey:
		return append([]byte{byte(UIDPubKey)}, u.PubKey...)
	default:
		return []byte{byte(UIDNull)}
	}
}

// Equal compares canonical forms. A RegID and the pubkey of the same account are
// different canonical forms; use SameOwner to compare through the ledger.
func (u UserID) Equal(o UserID) bool {
	return bytes.Equal(u.Bytes(), o.Bytes())
}

// KeyIDHint returns the KeyID derivable without a ledger lookup.
func (u UserID) KeyIDHint() (KeyID, bool) {
	switch u.Kind {
	case UIDKeyID:
		return u.KeyID, true
	case UIDPubKey:
		return Hash160(u.PubKey), true
	default:
		return KeyID{}, false
	}
}

func (u UserID) String() string {
	switch u.Kind {
	case UIDRegID:
		return u.RegID.String()
	case UIDKeyID:
		return u.KeyID.Address()
	case UIDPubKey:
		return hex.EncodeToString(u.PubKey)
	default:
		return ""
	}
}

// ParseUserID accepts "<height>-<index>", a base58 address, or a 33-byte hex pubkey.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return UserID{}, nil
	case strings.Contains(s, "-"):
		r, err := ParseRegID(s)
		if err != nil {
			return UserID{}, err
		}
		return NewRegIDUID(r), nil
	case len(s) == 2*PUBKEY_BYTES:
		pub, err := hex.DecodeString(s)
		if err != nil {
			return UserID{}, fmt.Errorf("pubkey %q: %w", s, err)
		}
		return NewPubKeyUID(pub), nil
	default:
		k, err := ParseAddress(s)
		if err != nil {
			return UserID{}, err
		}
		return NewKeyIDUID(k), nil
	}
}

// ResolveKeyID maps any identity form to the KeyID of its account. RegIDs need
// the ledger; unregistered RegIDs resolve to false.
func ResolveKeyID(view AccountReader, u UserID) (KeyID, bool, error) {
	if k, ok := u.KeyIDHint(); ok {
		return k, true, nil
	}
	if u.Kind != UIDRegID {
		return KeyID{}, false, nil
	}
	acct, ok, err := view.GetAccount(u)
	if err != nil || !ok {
		return KeyID{}, false, err
	}
	return acct.KeyID, true, nil
}

// SameOwner reports whether a and b name the same participant: equal canonical
// forms, or forms that resolve to the same account KeyID.
func SameOwner(view AccountReader, a, b UserID) (bool, error) {
	if a.IsNull() || b.IsNull() {
		return false, nil
	}
	if a.Equal(b) {
		return true, nil
	}
	ka, okA, err := ResolveKeyID(view, a)
	if err != nil {
		return false, err
	}
	kb, okB, err := ResolveKeyID(view, b)
	if err != nil {
		return false, err
	}
	return okA && okB && ka == kb, nil
}
