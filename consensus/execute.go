package consensus

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/kongsikongsideveloper/WaykiChain/crypto"
)

// BalanceChange is one applied balance operation; Undo applies its inverse.
// Created marks a token entry that did not exist before the change.
type BalanceChange struct {
	Owner   KeyID
	Symbol  string
	Op      BalanceOp
	Amount  uint64
	Created bool
}

// StateDelta records everything Execute changed so Undo can revert it exactly.
type StateDelta struct {
	Kind           TxKind
	Txid           [32]byte
	Height         uint64
	Sender         KeyID
	BalanceChanges []BalanceChange
	RegIDAssigned  bool
	RegID          RegID
	OwnerPubKeySet bool
	AccountCreated bool
	Receipts       []Receipt
	LinkIndexed    bool
	PriorTxid      [32]byte
}

// applyBalance performs op on acct and records it in d. Failures map to code.
func (d *StateDelta) applyBalance(acct *Account, symbol string, op BalanceOp, amount uint64, code ErrorCode) error {
	_, existed := acct.Tokens[symbol]
	if err := acct.OperateBalance(symbol, op, amount); err != nil {
		if errors.Is(err, ErrBalanceOverflow) {
			code = EXEC_ERR_BALANCE_OVERFLOW
		}
		return &TxError{Code: code, Msg: fmt.Sprintf("%s %d %s on %s", op, amount, symbol, acct.KeyID), Err: err}
	}
	d.BalanceChanges = append(d.BalanceChanges, BalanceChange{
		Owner:   acct.KeyID,
		Symbol:  symbol,
		Op:      op,
		Amount:  amount,
		Created: !existed,
	})
	return nil
}

// Execute applies a validated CoinUTXOTx. All effects are computed on copies
// and persisted with a single Apply; on error the ledger is untouched.
func Execute(p crypto.CryptoProvider, t *CoinUTXOTx, ctx TxContext, ledger LedgerWriter) (*StateDelta, error) {
	if t == nil {
		return nil, txerr(TX_ERR_PARSE, "nil tx")
	}
	txid, err := CoinUTXOTxid(p, t)
	if err != nil {
		return nil, txerr(TX_ERR_PARSE, err.Error())
	}
	// Rewriting an indexed link would clear its spent-by mark.
	if _, committed, err := ledger.GetUtxoTx(txid); err != nil {
		return nil, corrupt("load own link", err)
	} else if committed {
		return nil, txerr(EXEC_ERR_DUPLICATE_TX, hex.EncodeToString(txid[:]))
	}

	stored, ok, err := ledger.GetAccount(t.TxUID)
	if err != nil {
		return nil, corrupt("load sender account", err)
	}
	if !ok {
		return nil, txerr(EXEC_ERR_ACCOUNT_MISSING, fmt.Sprintf("sender %s", t.TxUID))
	}
	acct := stored.Clone()

	delta := &StateDelta{
		Kind:   TX_KIND_COIN_UTXO,
		Txid:   txid,
		Height: ctx.Height,
		Sender: acct.KeyID,
	}

	if t.TxUID.Kind == UIDPubKey {
		if err := registerSender(acct, t.TxUID.PubKey, ctx, ledger, delta); err != nil {
			return nil, err
		}
	}

	if err := delta.applyBalance(acct, t.FeeSymbol, SUB_FREE, t.Fees, EXEC_ERR_INSUFFICIENT_FEE); err != nil {
		return nil, err
	}

	m := &Mutations{}
	if t.IsGenesis() {
		if err := delta.applyBalance(acct, t.Utxo.CoinSymbol, SUB_FREE, t.Utxo.CoinAmount, EXEC_ERR_INSUFFICIENT_LOCKED_FUNDS); err != nil {
			return nil, err
		}
	} else {
		link, ok, err := ledger.GetUtxoTx(t.PriorUtxoTxid)
		if err != nil {
			return nil, corrupt("load prior link", err)
		}
		if !ok || link == nil || link.IsSpent() {
			return nil, txerr(EXEC_ERR_PRIOR_LINK_DIVERGED, fmt.Sprintf("prior %x no longer spendable", t.PriorUtxoTxid))
		}
		spent := link.Clone()
		spent.SpentBy = txid
		m.PutLinks = append(m.PutLinks, LinkPut{Txid: t.PriorUtxoTxid, Link: spent})
		delta.PriorTxid = t.PriorUtxoTxid
	}

	if !t.Utxo.IsNull {
		delta.Receipts = []Receipt{{
			FromUID: t.TxUID,
			ToUID:   t.Utxo.ToUID,
			Symbol:  t.Utxo.CoinSymbol,
			Amount:  t.Utxo.CoinAmount,
			Code:    RECEIPT_TRANSFER_UTXO_COINS,
		}}
		m.PutReceipts = append(m.PutReceipts, ReceiptPut{Txid: txid, Receipts: delta.Receipts})
	}

	m.Accounts = append(m.Accounts, acct)
	m.PutLinks = append(m.PutLinks, LinkPut{Txid: txid, Link: &UtxoLink{Height: ctx.Height, Tx: t}})
	delta.LinkIndexed = true
	m.Sort()

	if err := ledger.Apply(m); err != nil {
		return nil, &TxError{Code: EXEC_ERR_PERSIST, Msg: "apply mutations", Err: err}
	}
	return delta, nil
}

// registerSender gives a pubkey-only sender its RegID and owner key on first use.
func registerSender(acct *Account, pub []byte, ctx TxContext, view AccountReader, delta *StateDelta) error {
	if len(acct.OwnerPubKey) == 0 {
		acct.OwnerPubKey = append([]byte(nil), pub...)
		delta.OwnerPubKeySet = true
	}
	if acct.HasRegID {
		return nil
	}
	if ctx.Height > uint64(^uint32(0)) {
		return txerr(EXEC_ERR_REGID_TAKEN, fmt.Sprintf("height %d does not fit a regid", ctx.Height))
	}
	rid := RegID{Height: uint32(ctx.Height), Index: ctx.Index}
	if _, taken, err := view.GetAccount(NewRegIDUID(rid)); err != nil {
		return corrupt("load regid", err)
	} else if taken {
		return txerr(EXEC_ERR_REGID_TAKEN, rid.String())
	}
	acct.RegID = rid
	acct.HasRegID = true
	delta.RegIDAssigned = true
	delta.RegID = rid
	return nil
}
