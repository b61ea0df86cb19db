package consensus

import (
	"encoding/hex"
	"fmt"

	"github.com/kongsikongsideveloper/WaykiChain/crypto"
)

type TxKind uint8

const (
	TX_KIND_COIN_REWARD TxKind = 0x01
	TX_KIND_COIN_UTXO   TxKind = 0x1f
)

func (k TxKind) String() string {
	switch k {
	case TX_KIND_COIN_REWARD:
		return "UCOIN_REWARD_TX"
	case TX_KIND_COIN_UTXO:
		return "UCOIN_UTXO_TX"
	default:
		return fmt.Sprintf("TxKind(%#x)", uint8(k))
	}
}

// CoinUTXOTx spends the single output of PriorUtxoTxid (or opens a chain when
// the prior is zero) and creates at most one new output.
type CoinUTXOTx struct {
	Version         uint32
	TxUID           UserID
	FeeSymbol       string
	Fees            uint64
	ValidHeight     uint64
	Memo            []byte
	PriorUtxoTxid   [32]byte
	PriorUtxoSecret []byte
	Utxo            CoinUTXO
	Signature       []byte
}

func (t *CoinUTXOTx) IsGenesis() bool { return t.PriorUtxoTxid == [32]byte{} }

// CoinRewardTx credits a block reward. It carries no signature; only the block
// producer may place it, at index 0.
type CoinRewardTx struct {
	Version uint32
	TxUID   UserID
	Symbol  string
	Coins   uint64
	Height  uint64
}

// Tx is the closed set of transaction kinds this ledger executes.
// Exactly one of the kind pointers is set, matching Kind.
type Tx struct {
	Kind       TxKind
	CoinUTXO   *CoinUTXOTx
	CoinReward *CoinRewardTx
}

func NewCoinUTXOTx(t *CoinUTXOTx) *Tx { return &Tx{Kind: TX_KIND_COIN_UTXO, CoinUTXO: t} }

func NewCoinRewardTx(t *CoinRewardTx) *Tx { return &Tx{Kind: TX_KIND_COIN_REWARD, CoinReward: t} }

// TxContext locates a transaction in the chain being built.
type TxContext struct {
	Height uint64
	Index  uint16
}

// Txid is SHA3-256 of the signature-free encoding.
func (tx *Tx) Txid() ([32]byte, error) {
	body, err := marshalTx(tx, false)
	if err != nil {
		return [32]byte{}, err
	}
	return sha3_256(body), nil
}

// SignatureHash is the digest the sender signs. It equals the txid.
func (tx *Tx) SignatureHash() ([32]byte, error) { return tx.Txid() }

func (tx *Tx) Sender() UserID {
	switch tx.Kind {
	case TX_KIND_COIN_UTXO:
		if tx.CoinUTXO != nil {
			return tx.CoinUTXO.TxUID
		}
	case TX_KIND_COIN_REWARD:
		if tx.CoinReward != nil {
			return tx.CoinReward.TxUID
		}
	}
	return UserID{}
}

func (tx *Tx) String() string {
	switch tx.Kind {
	case TX_KIND_COIN_UTXO:
		t := tx.CoinUTXO
		if t == nil {
			break
		}
		return fmt.Sprintf("%s ver=%d from=%s fee=%d %s valid_height=%d prior=%s memo=%q utxo={%s}",
			tx.Kind, t.Version, t.TxUID, t.Fees, t.FeeSymbol, t.ValidHeight,
			hex.EncodeToString(t.PriorUtxoTxid[:]), t.Memo, t.Utxo.String())
	case TX_KIND_COIN_REWARD:
		t := tx.CoinReward
		if t == nil {
			break
		}
		return fmt.Sprintf("%s ver=%d to=%s %d %s height=%d", tx.Kind, t.Version, t.TxUID, t.Coins, t.Symbol, t.Height)
	}
	return fmt.Sprintf("%s <empty>", tx.Kind)
}

func wrongShape(tx *Tx) error {
	if tx == nil {
		return txerr(TX_ERR_PARSE, "nil tx")
	}
	return txerr(TX_ERR_UNKNOWN_KIND, fmt.Sprintf("kind %s without matching body", tx.Kind))
}

// ValidateTx checks tx against view without mutating anything.
func ValidateTx(p crypto.CryptoProvider, params *Params, tx *Tx, ctx TxContext, view LedgerView) error {
	if tx == nil {
		return wrongShape(tx)
	}
	switch tx.Kind {
	case TX_KIND_COIN_UTXO:
		if tx.CoinUTXO == nil {
			return wrongShape(tx)
		}
		return Validate(p, params, tx.CoinUTXO, ctx, view)
	case TX_KIND_COIN_REWARD:
		if tx.CoinReward == nil {
			return wrongShape(tx)
		}
		return ValidateReward(params, tx.CoinReward, ctx, view)
	default:
		return wrongShape(tx)
	}
}

// ExecuteTx applies a previously validated tx and returns its undo record.
func ExecuteTx(p crypto.CryptoProvider, tx *Tx, ctx TxContext, ledger LedgerWriter) (*StateDelta, error) {
	if tx == nil {
		return nil, wrongShape(tx)
	}
	switch tx.Kind {
	case TX_KIND_COIN_UTXO:
		if tx.CoinUTXO == nil {
			return nil, wrongShape(tx)
		}
		return Execute(p, tx.CoinUTXO, ctx, ledger)
	case TX_KIND_COIN_REWARD:
		if tx.CoinReward == nil {
			return nil, wrongShape(tx)
		}
		return ExecuteReward(tx.CoinReward, ctx, ledger)
	default:
		return nil, wrongShape(tx)
	}
}

// UndoTx reverts the effects recorded in delta.
func UndoTx(tx *Tx, delta *StateDelta, ledger LedgerWriter) error {
	if tx == nil {
		return wrongShape(tx)
	}
	if delta == nil || delta.Kind != tx.Kind {
		return txerr(EXEC_ERR_UNDO_MISMATCH, "delta does not belong to tx")
	}
	switch tx.Kind {
	case TX_KIND_COIN_UTXO:
		if tx.CoinUTXO == nil {
			return wrongShape(tx)
		}
		return Undo(tx.CoinUTXO, delta, ledger)
	case TX_KIND_COIN_REWARD:
		if tx.CoinReward == nil {
			return wrongShape(tx)
		}
		return UndoReward(tx.CoinReward, delta, ledger)
	default:
		return wrongShape(tx)
	}
}
