package consensus

import "fmt"

// Wire caps. Tighter policy limits (memo, secret) are enforced by validation
// so that oversize fields surface with their own error codes.
const (
	MAX_WIRE_SYMBOL_BYTES = 32
	MAX_WIRE_MEMO_BYTES   = 4096
	MAX_WIRE_SECRET_BYTES = 4096
	MAX_WIRE_PUBKEY_BYTES = 65
	MAX_WIRE_SIG_BYTES    = 128
)

// ParseTx decodes one transaction from the front of b and returns it with its
// txid and the number of bytes consumed.
func ParseTx(b []byte) (*Tx, [32]byte, int, error) {
	var zero [32]byte
	off := 0

	kind, err := readU8(b, &off)
	if err != nil {
		return nil, zero, 0, err
	}

	tx := &Tx{Kind: TxKind(kind)}
	switch tx.Kind {
	case TX_KIND_COIN_UTXO:
		tx.CoinUTXO, err = parseCoinUTXOTx(b, &off)
	case TX_KIND_COIN_REWARD:
		tx.CoinReward, err = parseCoinRewardTx(b, &off)
	default:
		return nil, zero, 0, txerr(TX_ERR_UNKNOWN_KIND, fmt.Sprintf("unsupported tx_kind %#x", kind))
	}
	if err != nil {
		return nil, zero, 0, err
	}

	txid, err := tx.Txid()
	if err != nil {
		return nil, zero, 0, txerr(TX_ERR_PARSE, err.Error())
	}
	return tx, txid, off, nil
}

// DecodeTx is ParseTx for a buffer holding exactly one transaction.
func DecodeTx(b []byte) (*Tx, [32]byte, error) {
	tx, txid, n, err := ParseTx(b)
	if err != nil {
		return nil, [32]byte{}, err
	}
	if n != len(b) {
		return nil, [32]byte{}, txerr(TX_ERR_PARSE, "trailing bytes")
	}
	return tx, txid, nil
}

func parseCoinUTXOTx(b []byte, off *int) (*CoinUTXOTx, error) {
	t := &CoinUTXOTx{}
	var err error

	if t.Version, err = readU32le(b, off); err != nil {
		return nil, err
	}
	if t.TxUID, err = readUserID(b, off); err != nil {
		return nil, err
	}
	if t.FeeSymbol, err = readSymbol(b, off, "fee_symbol"); err != nil {
		return nil, err
	}
	if t.Fees, err = readU64le(b, off); err != nil {
		return nil, err
	}
	if t.ValidHeight, err = readU64le(b, off); err != nil {
		return nil, err
	}
	if t.Memo, err = readVarBytes(b, off, MAX_WIRE_MEMO_BYTES, "memo"); err != nil {
		return nil, err
	}
	if t.PriorUtxoTxid, err = readHash32(b, off); err != nil {
		return nil, err
	}
	if t.PriorUtxoSecret, err = readVarBytes(b, off, MAX_WIRE_SECRET_BYTES, "prior_secret"); err != nil {
		return nil, err
	}
	if t.Utxo, err = readCoinUTXO(b, off); err != nil {
		return nil, err
	}
	if t.Signature, err = readVarBytes(b, off, MAX_WIRE_SIG_BYTES, "signature"); err != nil {
		return nil, err
	}
	return t, nil
}

func parseCoinRewardTx(b []byte, off *int) (*CoinRewardTx, error) {
	t := &CoinRewardTx{}
	var err error
	if t.Version, err = readU32le(b, off); err != nil {
		return nil, err
	}
	if t.TxUID, err = readUserID(b, off); err != nil {
		return nil, err
	}
	if t.Symbol, err = readSymbol(b, off, "symbol"); err != nil {
		return nil, err
	}
	if t.Coins, err = readU64le(b, off); err != nil {
		return nil, err
	}
	if t.Height, err = readU64le(b, off); err != nil {
		return nil, err
	}
	return t, nil
}

func readCoinUTXO(b []byte, off *int) (CoinUTXO, error) {
	flag, err := readU8(b, off)
	if err != nil {
		return CoinUTXO{}, err
	}
	switch flag {
	case 0x01:
		return NullUTXO(), nil
	case 0x00:
	default:
		return CoinUTXO{}, txerr(TX_ERR_PARSE, "utxo null flag must be 0 or 1")
	}

	var u CoinUTXO
	if u.CoinSymbol, err = readSymbol(b, off, "coin_symbol"); err != nil {
		return CoinUTXO{}, err
	}
	if u.CoinAmount, err = readU64le(b, off); err != nil {
		return CoinUTXO{}, err
	}
	if u.ToUID, err = readUserID(b, off); err != nil {
		return CoinUTXO{}, err
	}
	if u.LockDuration, err = readU64le(b, off); err != nil {
		return CoinUTXO{}, err
	}
	if u.HTLC.SecretHash, err = readHash32(b, off); err != nil {
		return CoinUTXO{}, err
	}
	if u.HTLC.CollectTimeout, err = readU64le(b, off); err != nil {
		return CoinUTXO{}, err
	}
	return u, nil
}

func readUserID(b []byte, off *int) (UserID, error) {
	kind, err := readU8(b, off)
	if err != nil {
		return UserID{}, err
	}
	switch UIDKind(kind) {
	case UIDNull:
		return UserID{}, nil
	case UIDRegID:
		h, err := readU32le(b, off)
		if err != nil {
			return UserID{}, err
		}
		i, err := readU16le(b, off)
		if err != nil {
			return UserID{}, err
		}
		return NewRegIDUID(RegID{Height: h, Index: i}), nil
	case UIDKeyID:
		raw, err := readBytes(b, off, KEY_ID_BYTES)
		if err != nil {
			return UserID{}, err
		}
		var k KeyID
		copy(k[:], raw)
		return NewKeyIDUID(k), nil
	case UIDPubKey:
		pub, err := readVarBytes(b, off, MAX_WIRE_PUBKEY_BYTES, "pubkey")
		if err != nil {
			return UserID{}, err
		}
		return UserID{Kind: UIDPubKey, PubKey: pub}, nil
	default:
		return UserID{}, txerr(TX_ERR_PARSE, fmt.Sprintf("unknown uid kind %d", kind))
	}
}

func readSymbol(b []byte, off *int, name string) (string, error) {
	raw, err := readVarBytes(b, off, MAX_WIRE_SYMBOL_BYTES, name)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
