package consensus

import (
	"fmt"

	"github.com/kongsikongsideveloper/WaykiChain/crypto"
)

// MarshalTx serialises a Tx into its canonical wire-format bytes.
// The output is the exact inverse of ParseTx (roundtrip property).
func MarshalTx(tx *Tx) ([]byte, error) {
	return marshalTx(tx, true)
}

func marshalTx(tx *Tx, withSig bool) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil tx")
	}
	b := []byte{byte(tx.Kind)}
	var err error
	switch tx.Kind {
	case TX_KIND_COIN_UTXO:
		if tx.CoinUTXO == nil {
			return nil, fmt.Errorf("%s without body", tx.Kind)
		}
		b, err = appendCoinUTXOTx(b, tx.CoinUTXO, withSig)
	case TX_KIND_COIN_REWARD:
		if tx.CoinReward == nil {
			return nil, fmt.Errorf("%s without body", tx.Kind)
		}
		b, err = appendCoinRewardTx(b, tx.CoinReward)
	default:
		return nil, fmt.Errorf("unknown tx kind %s", tx.Kind)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func appendCoinUTXOTx(b []byte, t *CoinUTXOTx, withSig bool) ([]byte, error) {
	var err error
	// Header: version(4) | tx_uid | fee_symbol | fees(8) | valid_height(8) | memo
	b = appendU32le(b, t.Version)
	if b, err = appendUserID(b, t.TxUID); err != nil {
		return nil, err
	}
	b = appendVarBytes(b, []byte(t.FeeSymbol))
	b = appendU64le(b, t.Fees)
	b = appendU64le(b, t.ValidHeight)
	b = appendVarBytes(b, t.Memo)

	// Link: prior_txid(32) | prior_secret
	b = append(b, t.PriorUtxoTxid[:]...)
	b = appendVarBytes(b, t.PriorUtxoSecret)

	// Output
	if b, err = appendCoinUTXO(b, &t.Utxo); err != nil {
		return nil, err
	}

	if withSig {
		b = appendVarBytes(b, t.Signature)
	}
	return b, nil
}

func appendCoinRewardTx(b []byte, t *CoinRewardTx) ([]byte, error) {
	var err error
	b = appendU32le(b, t.Version)
	if b, err = appendUserID(b, t.TxUID); err != nil {
		return nil, err
	}
	b = appendVarBytes(b, []byte(t.Symbol))
	b = appendU64le(b, t.Coins)
	b = appendU64le(b, t.Height)
	return b, nil
}

func appendCoinUTXO(b []byte, u *CoinUTXO) ([]byte, error) {
	if u.IsNull {
		return append(b, 0x01), nil
	}
	b = append(b, 0x00)
	b = appendVarBytes(b, []byte(u.CoinSymbol))
	b = appendU64le(b, u.CoinAmount)
	var err error
	if b, err = appendUserID(b, u.ToUID); err != nil {
		return nil, err
	}
	b = appendU64le(b, u.LockDuration)
	b = append(b, u.HTLC.SecretHash[:]...)
	b = appendU64le(b, u.HTLC.CollectTimeout)
	return b, nil
}

func appendUserID(b []byte, u UserID) ([]byte, error) {
	b = append(b, byte(u.Kind))
	switch u.Kind {
	case UIDNull:
		return b, nil
	case UIDRegID:
		b = appendU32le(b, u.RegID.Height)
		return appendU16le(b, u.RegID.Index), nil
	case UIDKeyID:
		return append(b, u.KeyID[:]...), nil
	case UIDPubKey:
		return appendVarBytes(b, u.PubKey), nil
	default:
		return nil, fmt.Errorf("unknown uid kind %d", u.Kind)
	}
}

// CoinUTXOTxid computes the txid of t through the given provider.
func CoinUTXOTxid(p crypto.CryptoProvider, t *CoinUTXOTx) ([32]byte, error) {
	body, err := marshalTx(NewCoinUTXOTx(t), false)
	if err != nil {
		return [32]byte{}, err
	}
	return p.SHA3_256(body), nil
}
